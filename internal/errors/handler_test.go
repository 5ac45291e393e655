package errors

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestNewErrorHandler(t *testing.T) {
	t.Setenv(logDirEnv, filepath.Join(t.TempDir(), "logs"))

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}
	if handler.logger == nil {
		t.Error("ErrorHandler.logger is nil")
	}
	if handler.console == nil {
		t.Error("ErrorHandler.console is nil")
	}
}

func TestErrorHandler_Handle_DenError(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	t.Setenv(logDirEnv, logDir)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	handler.Handle(NewBootstrapError(
		"Failed to start the dashboard service",
		"docker compose up exited with status 1",
		"Run 'den svc up' after fixing the compose error",
		errors.New("exit status 1"),
	))

	content, err := os.ReadFile(filepath.Join(logDir, logFileName))
	if err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
	for _, want := range []string{`"type":"bootstrap_failed"`, `"cause":"docker compose up exited with status 1"`} {
		if !strings.Contains(string(content), want) {
			t.Errorf("log file missing %s, got %s", want, content)
		}
	}
}

func TestErrorHandler_Handle_GenericError(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	t.Setenv(logDirEnv, logDir)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	handler.Handle(errors.New("generic test error"))

	content, err := os.ReadFile(filepath.Join(logDir, logFileName))
	if err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
	if !strings.Contains(string(content), `"type":"generic"`) {
		t.Errorf("expected generic error record, got %s", content)
	}
}

func TestErrorHandler_Handle_NilError(t *testing.T) {
	t.Setenv(logDirEnv, t.TempDir())

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}
	handler.Handle(nil)
}

func TestErrorTypeName(t *testing.T) {
	tests := []struct {
		errorType error
		expected  string
	}{
		{ErrPreconditionUnmet, "precondition_unmet"},
		{ErrQueryFailed, "query_failed"},
		{ErrBootstrapFailed, "bootstrap_failed"},
		{ErrInstallFailed, "install_failed"},
		{ErrConfigInvalid, "config_invalid"},
		{ErrFileSystemFailed, "filesystem_failed"},
		{ErrSourceFailed, "source_failed"},
		{errors.New("unknown"), "unknown"},
	}

	for _, test := range tests {
		if got := errorTypeName(test.errorType); got != test.expected {
			t.Errorf("errorTypeName(%v) = %q, want %q", test.errorType, got, test.expected)
		}
	}
}

func TestGetDefaultHandler(t *testing.T) {
	t.Setenv(logDirEnv, t.TempDir())
	resetDefaultHandler()
	defer resetDefaultHandler()

	handler1, err := GetDefaultHandler()
	if err != nil {
		t.Fatalf("GetDefaultHandler() first call failed: %v", err)
	}
	handler2, err := GetDefaultHandler()
	if err != nil {
		t.Fatalf("GetDefaultHandler() second call failed: %v", err)
	}
	if handler1 != handler2 {
		t.Error("GetDefaultHandler() should return the same instance on multiple calls")
	}
}

func TestHandleError(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	t.Setenv(logDirEnv, logDir)
	resetDefaultHandler()
	defer resetDefaultHandler()

	HandleError(errors.New("test error for HandleError"))

	if _, err := os.Stat(filepath.Join(logDir, logFileName)); os.IsNotExist(err) {
		t.Error("Log file was not created by HandleError")
	}
}

func TestDenError_ErrorAndUnwrap(t *testing.T) {
	originalErr := errors.New("original error message")
	denErr := NewInstallError("context", "cause", "suggestion", originalErr)

	if denErr.Error() != originalErr.Error() {
		t.Errorf("DenError.Error() = %q, want %q", denErr.Error(), originalErr.Error())
	}
	if denErr.Unwrap() != originalErr {
		t.Error("DenError.Unwrap() should return the original error")
	}
}

func TestDenError_IsMatchesType(t *testing.T) {
	wrapped := fmt.Errorf("install: %w", NewPreconditionError("gate", "", "upgrade docker", nil))

	if !errors.Is(wrapped, ErrPreconditionUnmet) {
		t.Error("errors.Is should match the DenError type through wrapping")
	}
	if errors.Is(wrapped, ErrBootstrapFailed) {
		t.Error("errors.Is should not match an unrelated type")
	}
}

func TestNewDenError_NilOriginalUsesType(t *testing.T) {
	err := NewQueryError("context", "cause", "suggestion", nil)
	if err.Error() != ErrQueryFailed.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), ErrQueryFailed.Error())
	}
}

func TestErrorConstructors(t *testing.T) {
	originalErr := errors.New("test error")

	tests := []struct {
		name         string
		constructor  func(string, string, string, error) *DenError
		expectedType error
	}{
		{"NewPreconditionError", NewPreconditionError, ErrPreconditionUnmet},
		{"NewQueryError", NewQueryError, ErrQueryFailed},
		{"NewBootstrapError", NewBootstrapError, ErrBootstrapFailed},
		{"NewInstallError", NewInstallError, ErrInstallFailed},
		{"NewConfigError", NewConfigError, ErrConfigInvalid},
		{"NewFileSystemError", NewFileSystemError, ErrFileSystemFailed},
		{"NewSourceError", NewSourceError, ErrSourceFailed},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.constructor("context", "cause", "suggestion", originalErr)

			if err.Type != test.expectedType {
				t.Errorf("%s created error with type %v, want %v", test.name, err.Type, test.expectedType)
			}
			if err.Context != "context" || err.Cause != "cause" || err.Suggestion != "suggestion" {
				t.Errorf("%s did not keep context/cause/suggestion: %+v", test.name, err)
			}
			if err.OriginalErr != originalErr {
				t.Errorf("%s created error with originalErr %v, want %v", test.name, err.OriginalErr, originalErr)
			}
		})
	}
}

func TestLogDirectory(t *testing.T) {
	t.Run("environment variable override", func(t *testing.T) {
		t.Setenv(logDirEnv, "/custom/log/dir")

		got, err := logDirectory()
		if err != nil {
			t.Fatalf("logDirectory() failed: %v", err)
		}
		if got != "/custom/log/dir" {
			t.Errorf("logDirectory() = %q, want %q", got, "/custom/log/dir")
		}
	})

	t.Run("platform-specific directories", func(t *testing.T) {
		t.Setenv(logDirEnv, "")

		got, err := logDirectory()
		if err != nil {
			t.Fatalf("logDirectory() failed: %v", err)
		}

		homeDir, _ := os.UserHomeDir()
		var want string
		switch runtime.GOOS {
		case "darwin":
			want = filepath.Join(homeDir, "Library", "Logs", "Den")
		case "linux", "freebsd", "openbsd", "netbsd":
			want = filepath.Join(homeDir, ".local", "share", "den", "logs")
		default:
			want = filepath.Join(homeDir, ".den", "logs")
		}
		if got != want {
			t.Errorf("logDirectory() = %q, want %q", got, want)
		}
	})
}

func TestCheckLogRotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	t.Run("no rotation needed for small file", func(t *testing.T) {
		if err := os.WriteFile(logPath, []byte(strings.Repeat("small log entry\n", 10)), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		if err := checkLogRotation(logPath); err != nil {
			t.Errorf("checkLogRotation() failed: %v", err)
		}
		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Error("Original log file should still exist")
		}
	})

	t.Run("rotation needed for large file", func(t *testing.T) {
		if err := os.WriteFile(logPath, make([]byte, maxLogSizeBytes), 0644); err != nil {
			t.Fatalf("Failed to create large test file: %v", err)
		}
		if err := checkLogRotation(logPath); err != nil {
			t.Errorf("checkLogRotation() failed: %v", err)
		}
		if _, err := os.Stat(logPath + ".1"); os.IsNotExist(err) {
			t.Error("Rotated log file should exist")
		}
	})

	t.Run("non-existent file", func(t *testing.T) {
		if err := checkLogRotation(filepath.Join(t.TempDir(), "missing.log")); err != nil {
			t.Errorf("checkLogRotation() should not fail for non-existent file: %v", err)
		}
	})
}

func TestRotateLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	files := []string{logPath, logPath + ".1", logPath + ".2", logPath + ".3", logPath + ".4"}
	for i, file := range files {
		if err := os.WriteFile(file, []byte(fmt.Sprintf("Log file content %d\n", i)), 0644); err != nil {
			t.Fatalf("Failed to create test file %s: %v", file, err)
		}
	}

	if err := rotateLogFile(logPath); err != nil {
		t.Fatalf("rotateLogFile() failed: %v", err)
	}

	for i := 1; i <= 4; i++ {
		content, err := os.ReadFile(fmt.Sprintf("%s.%d", logPath, i))
		if err != nil {
			t.Fatalf("Failed to read rotated file .%d: %v", i, err)
		}
		want := fmt.Sprintf("Log file content %d\n", i-1)
		if string(content) != want {
			t.Errorf("Rotated file .%d content = %q, want %q", i, content, want)
		}
	}

	if _, err := os.Stat(logPath + ".5"); !os.IsNotExist(err) {
		t.Error("Oldest log file should be removed")
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("Original log file should be moved")
	}
}

func TestEnsureLogDirectory_Fallback(t *testing.T) {
	originalWd, _ := os.Getwd()
	tempDir := t.TempDir()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(originalWd)

	blocker := filepath.Join(tempDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	t.Setenv(logDirEnv, filepath.Join(blocker, "logs"))

	dir, fallback, err := ensureLogDirectory()
	if err != nil {
		t.Fatalf("ensureLogDirectory() failed: %v", err)
	}
	if !fallback {
		t.Error("ensureLogDirectory() should use fallback when directory cannot be created")
	}
	cwd, _ := os.Getwd()
	if dir != cwd {
		t.Errorf("ensureLogDirectory() = %q, want %q", dir, cwd)
	}
}
