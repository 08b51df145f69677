package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/archzfs-tools/zkmod/internal/compat"
	"github.com/archzfs-tools/zkmod/internal/config"
	"github.com/archzfs-tools/zkmod/internal/kernel"
	"github.com/archzfs-tools/zkmod/internal/pacman"
	"github.com/archzfs-tools/zkmod/internal/utils/logger"
	"github.com/archzfs-tools/zkmod/internal/zfsrelease"
)

// Command-line flags that can override config file settings
var (
	configFile string = "" // Path to config file
	logLevel   string = "" // Empty means use config file value
)

func main() {
	configFilePath := configFile
	if configFilePath == "" {
		configFilePath = config.FindConfigFile()
	}

	globalConfig, err := config.LoadGlobalConfig(configFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	config.SetGlobal(globalConfig)

	_, cleanup := logger.InitWithLevel(globalConfig.Logging.Level)
	defer cleanup()

	rootCmd := createRootCommand()

	// Handle log level override after flag parsing
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			globalConfig.Logging.Level = logLevel
			config.SetGlobal(globalConfig)
			logger.SetLogLevel(logLevel)
		}
	}

	log := logger.Logger()
	if configFilePath != "" {
		log.Infof("Using configuration from: %s", configFilePath)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// createRootCommand creates and configures the root cobra command with all subcommands
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zkmod",
		Short: "ZFS kernel module compatibility checker and installer",
		Long: `zkmod decides whether a precompiled ZFS module binary or a module
built from source (DKMS) matches a target kernel, and installs the module
with a deterministic fallback that never silently changes the kernel.

Use 'zkmod --help' to see available commands.
Use 'zkmod <command> --help' for more information about a command.`,
	}

	// Accept underscore spellings of multi-word flags (--log_level).
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")

	// Add all subcommands
	rootCmd.AddCommand(createScanCommand())
	rootCmd.AddCommand(createCheckCommand())
	rootCmd.AddCommand(createInstallCommand())
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createCompletionCommand())

	return rootCmd
}

// buildCatalog assembles the kernel catalog from built-ins, the optional
// variants file and repository auto-detection.
func buildCatalog(resolver *pacman.Resolver) *kernel.Catalog {
	log := logger.Logger()

	catalog := kernel.NewCatalog()
	if path := config.VariantsFile(); path != "" {
		if err := catalog.LoadFile(path); err != nil {
			log.Warnf("Failed to load kernel variants from %s: %v", path, err)
		}
	}
	catalog.AutoDetect(resolver)
	return catalog
}

// buildChecker wires the compatibility checker against the configured
// package index and release metadata service.
func buildChecker() (*pacman.Resolver, *compat.Checker) {
	db := pacman.NewDBClient(config.ArchZFSDBURL(), config.ArchZFSKeyringPath())
	resolver := pacman.NewResolver(db)
	releases := zfsrelease.NewClient(config.ReleaseAPIBase())
	return resolver, compat.NewChecker(resolver, releases)
}
