// internal/config/global.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/archzfs-tools/zkmod/internal/utils/logger"
)

// GlobalConfig holds tool-level configuration parameters
type GlobalConfig struct {
	// VariantsFile is an optional YAML file with extra kernel variant
	// definitions merged into the built-in catalog (default: none).
	VariantsFile string `yaml:"variants_file,omitempty" json:"variants_file,omitempty"`

	// FilterKernels controls whether the scanner hides incompatible
	// kernel/mode combinations (default: true). The ZKMOD_FILTER_KERNELS
	// environment variable overrides it at scan time.
	FilterKernels bool `yaml:"filter_kernels" json:"filter_kernels"`

	// ArchZFS configures the binary-release index used as a fallback when
	// the system package index does not know the module packages.
	ArchZFS ArchZFSConfig `yaml:"archzfs" json:"archzfs"`

	// ReleaseAPI is the base URL of the metadata service queried for module
	// release notes (default: the GitHub REST endpoint).
	ReleaseAPI string `yaml:"release_api" json:"release_api"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ArchZFSConfig locates the archzfs binary-release database.
type ArchZFSConfig struct {
	DBURL       string `yaml:"db_url" json:"db_url"`                                   // URL of the repository database archive
	KeyringPath string `yaml:"keyring_path,omitempty" json:"keyring_path,omitempty"` // Optional armored public key; enables detached-signature verification of the database
}

// LoggingConfig controls basic logging behavior
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`                   // Log verbosity level: debug, info (default), warn, error
	File  string `yaml:"file,omitempty" json:"file,omitempty"` // Optional log file path for teeing output to disk
}

// Global singleton variables
var (
	globalInstance *GlobalConfig
	globalMutex    sync.RWMutex
	once           sync.Once
)

// SetGlobal sets the global config instance (call once at startup in main.go)
func SetGlobal(config *GlobalConfig) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	globalInstance = config
}

// Global returns the global config instance
func Global() *GlobalConfig {
	once.Do(func() {
		globalMutex.Lock()
		defer globalMutex.Unlock()
		if globalInstance == nil {
			globalInstance = DefaultGlobalConfig()
		}
	})

	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return globalInstance
}

// DefaultGlobalConfig returns a GlobalConfig with sensible defaults
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		FilterKernels: true,
		ArchZFS: ArchZFSConfig{
			DBURL: "https://github.com/archzfs/archzfs/releases/download/experimental/archzfs.db",
		},
		ReleaseAPI: "https://api.github.com",

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// FindConfigFile looks for a zkmod.yaml in the conventional locations and
// returns the first hit, or "" when none exists.
func FindConfigFile() string {
	candidates := []string{"./zkmod.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "zkmod", "zkmod.yaml"))
	}
	candidates = append(candidates, "/etc/zkmod/zkmod.yaml")

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// LoadGlobalConfig loads configuration from the specified path
func LoadGlobalConfig(configPath string) (*GlobalConfig, error) {
	log := logger.Logger()

	// Start with defaults
	config := DefaultGlobalConfig()

	// If no config file specified or doesn't exist, return defaults
	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return config, nil // Return defaults if file doesn't exist
		}
		if errors.Is(err, os.ErrPermission) {
			log.Warnf("Config file %s is not accessible (%v); using defaults", configPath, err)
			return config, nil
		}
		log.Errorf("Error accessing config file %s: %v", configPath, err)
		return nil, fmt.Errorf("accessing config file %s: %w", configPath, err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		log.Errorf("Error reading config file %s: %v", configPath, err)
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			log.Errorf("Error parsing YAML config: %v", err)
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	default:
		log.Errorf("Unsupported config file format: %s", ext)
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml)", ext)
	}

	if err := config.Validate(); err != nil {
		log.Errorf("Config validation failed: %v", err)
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks the loaded configuration for obvious mistakes.
func (gc *GlobalConfig) Validate() error {
	if gc.ArchZFS.DBURL == "" {
		return fmt.Errorf("archzfs.db_url cannot be empty")
	}
	if gc.ReleaseAPI == "" {
		return fmt.Errorf("release_api cannot be empty")
	}
	switch strings.ToLower(gc.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown logging level: %s", gc.Logging.Level)
	}
	return nil
}

// Convenience accessors mirroring the fields of the global instance.

func VariantsFile() string { return Global().VariantsFile }

func FilterKernelsDefault() bool { return Global().FilterKernels }

func ArchZFSDBURL() string { return Global().ArchZFS.DBURL }

func ArchZFSKeyringPath() string { return Global().ArchZFS.KeyringPath }

func ReleaseAPIBase() string { return Global().ReleaseAPI }
