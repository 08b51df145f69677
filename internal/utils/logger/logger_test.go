package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// resetLogger resets the global logger state for testing
func resetLogger() {
	mu.Lock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	sugarLogger = nil
	baseLogger = nil
	atomicLevel = zap.AtomicLevel{}
	currentConfig = Config{}
	mu.Unlock()
	once = sync.Once{}
}

func TestNopSyncer(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "test_nopsyncer")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	syncer := nopSyncer{writer: tmpFile}

	testData := []byte("test data")
	n, err := syncer.Write(testData)
	if err != nil {
		t.Errorf("Write failed: %v", err)
	}
	if n != len(testData) {
		t.Errorf("Expected to write %d bytes, got %d", len(testData), n)
	}

	if err := syncer.Sync(); err != nil {
		t.Errorf("Sync should be no-op but returned error: %v", err)
	}
}

func TestInit(t *testing.T) {
	resetLogger()

	sugar, cleanup := Init()
	defer cleanup()

	if sugar == nil {
		t.Fatal("Init should return a non-nil SugaredLogger")
	}
	if baseLogger == nil {
		t.Fatal("baseLogger should not be nil after Init")
	}
	if sugarLogger == nil {
		t.Fatal("sugarLogger should not be nil after Init")
	}

	// Calling Init again must not panic and must hand back the same logger.
	sugar2, cleanup2 := Init()
	defer cleanup2()

	if sugar != sugar2 {
		t.Error("Multiple calls to Init should return the same logger instance")
	}
}

func TestInitWithLevel(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		expectedLevel zapcore.Level
	}{
		{"debug level", "debug", zapcore.DebugLevel},
		{"info level", "info", zapcore.InfoLevel},
		{"warn level", "warn", zapcore.WarnLevel},
		{"warning level", "warning", zapcore.WarnLevel},
		{"error level", "error", zapcore.ErrorLevel},
		{"invalid level defaults to info", "invalid", zapcore.InfoLevel},
		{"case insensitive", "DEBUG", zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetLogger()

			sugar, cleanup := InitWithLevel(tt.level)
			defer cleanup()

			if sugar == nil {
				t.Fatal("InitWithLevel should return a non-nil SugaredLogger")
			}
			if atomicLevel.Level() != tt.expectedLevel {
				t.Errorf("Expected level %v, got %v", tt.expectedLevel, atomicLevel.Level())
			}
		})
	}
}

func TestInitWithLevelMultipleCalls(t *testing.T) {
	resetLogger()

	sugar1, cleanup1 := InitWithLevel("debug")
	defer cleanup1()

	sugar2, cleanup2 := InitWithLevel("error")
	defer cleanup2()

	if sugar1 == nil {
		t.Fatal("First InitWithLevel call returned nil logger")
	}
	if sugar2 == nil {
		t.Fatal("Second InitWithLevel call returned nil logger")
	}
	if sugar2 != Logger() {
		t.Error("Latest InitWithLevel call did not update the global logger instance")
	}
	if atomicLevel.Level() != zapcore.ErrorLevel {
		t.Errorf("Expected log level to be error, got %v", atomicLevel.Level())
	}
}

func TestInitWithConfigFile(t *testing.T) {
	resetLogger()

	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	sugar, cleanup, err := InitWithConfig(Config{Level: "info", FilePath: logPath})
	if err != nil {
		t.Fatalf("InitWithConfig returned error: %v", err)
	}

	sugar.Info("file logging test")
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "file logging test") {
		t.Errorf("log file does not contain expected message: %s", data)
	}
}

func TestInitWithConfigReturnsError(t *testing.T) {
	resetLogger()

	tmpDir := t.TempDir()
	blockingFile := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blockingFile, []byte("x"), 0o600); err != nil {
		t.Fatalf("failed to create blocking file: %v", err)
	}

	// A log path nested under an existing file makes directory creation fail.
	_, _, err := InitWithConfig(Config{Level: "info", FilePath: filepath.Join(blockingFile, "app.log")})
	if err == nil {
		t.Fatal("InitWithConfig should return an error when log file cannot be created")
	}
}

func TestLogger(t *testing.T) {
	resetLogger()

	logger := Logger()
	if logger == nil {
		t.Fatal("Logger should return a non-nil SugaredLogger")
	}

	logger2 := Logger()
	if logger != logger2 {
		t.Error("Multiple calls to Logger should return the same instance")
	}
}

func TestWith(t *testing.T) {
	resetLogger()

	logger := With("key", "value")
	if logger == nil {
		t.Fatal("With should return a non-nil SugaredLogger")
	}

	logger2 := With("key1", "value1", "key2", "value2")
	if logger2 == nil {
		t.Fatal("With should return a non-nil SugaredLogger with multiple args")
	}
}

func TestSetLogLevel(t *testing.T) {
	resetLogger()
	Logger()

	tests := []struct {
		name          string
		level         string
		expectedLevel zapcore.Level
	}{
		{"set debug", "debug", zapcore.DebugLevel},
		{"set info", "info", zapcore.InfoLevel},
		{"set warn", "warn", zapcore.WarnLevel},
		{"set warning", "warning", zapcore.WarnLevel},
		{"set error", "error", zapcore.ErrorLevel},
		{"set invalid defaults to info", "invalid", zapcore.InfoLevel},
		{"case insensitive", "ERROR", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)

			if atomicLevel.Level() != tt.expectedLevel {
				t.Errorf("Expected level %v, got %v", tt.expectedLevel, atomicLevel.Level())
			}
		})
	}
}

func TestSetLogLevelBeforeInit(t *testing.T) {
	resetLogger()

	// Must not panic before initialization.
	SetLogLevel("debug")

	if atomicLevel != (zap.AtomicLevel{}) {
		t.Error("SetLogLevel before initialization should not modify atomicLevel")
	}
}

func TestReplaceStderrWriter(t *testing.T) {
	resetLogger()

	var buf bytes.Buffer
	old := ReplaceStderrWriter(&buf)
	defer ReplaceStderrWriter(old)

	Logger().Info("captured message")

	if !strings.Contains(buf.String(), "captured message") {
		t.Errorf("expected message in replacement writer, got: %s", buf.String())
	}
}

func TestLoggerConfiguration(t *testing.T) {
	resetLogger()

	sugar, cleanup := InitWithLevel("debug")
	defer cleanup()

	// Logging at every level must not panic.
	sugar.Debug("test debug message")
	sugar.Info("test info message")
	sugar.Warn("test warn message")
	sugar.Error("test error message")
}

// TestConcurrentAccess tests that the logger can be safely accessed from multiple goroutines
func TestConcurrentAccess(t *testing.T) {
	resetLogger()

	const numGoroutines = 10
	const numOperations = 100

	done := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer func() { done <- true }()

			for j := 0; j < numOperations; j++ {
				logger := Logger()
				if logger == nil {
					t.Errorf("Logger returned nil in goroutine")
					return
				}

				withLogger := With("iteration", j)
				if withLogger == nil {
					t.Errorf("With returned nil in goroutine")
					return
				}

				levels := []string{"debug", "info", "warn", "error"}
				SetLogLevel(levels[j%len(levels)])
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}
}
