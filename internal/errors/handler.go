package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"deninstall/internal/ui"
)

const (
	logDirEnv       = "DEN_INSTALLER_LOG_DIR"
	logFileName     = "deninstall.log"
	maxLogSizeBytes = 10 * 1024 * 1024
	maxLogFiles     = 5
)

type ErrorHandler struct {
	logger  *slog.Logger
	console *ui.Console
}

func NewErrorHandler() (*ErrorHandler, error) {
	logFile, err := createLogFile()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &ErrorHandler{
		logger:  logger,
		console: ui.NewConsole(),
	}, nil
}

// logDirectory returns the per-OS log directory, honouring DEN_INSTALLER_LOG_DIR.
func logDirectory() (string, error) {
	if custom := os.Getenv(logDirEnv); custom != "" {
		return custom, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Logs", "Den"), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return filepath.Join(homeDir, ".local", "share", "den", "logs"), nil
	default:
		return filepath.Join(homeDir, ".den", "logs"), nil
	}
}

// ensureLogDirectory creates the log directory, falling back to the working
// directory when it cannot be written.
func ensureLogDirectory() (string, bool, error) {
	logDir, err := logDirectory()
	if err == nil {
		if err = os.MkdirAll(logDir, 0750); err == nil {
			probe := filepath.Join(logDir, ".write_probe")
			var f *os.File
			if f, err = os.Create(probe); err == nil {
				if cerr := f.Close(); cerr != nil {
					slog.Warn("Failed to close write probe", "path", probe, "error", cerr)
				}
				if rerr := os.Remove(probe); rerr != nil {
					slog.Warn("Failed to remove write probe", "path", probe, "error", rerr)
				}
				return logDir, false, nil
			}
		}
	}

	cwd, cwdErr := os.Getwd()
	if cwdErr != nil {
		return "", true, fmt.Errorf("cannot determine current directory for fallback logging: %w", cwdErr)
	}

	fmt.Fprintf(os.Stderr, "Warning: cannot use log directory %s: %v. Falling back to current directory for logging.\n", logDir, err)
	return cwd, true, nil
}

// rotateLogFile shifts deninstall.log -> .1 -> .2 ... dropping the oldest.
func rotateLogFile(logPath string) error {
	oldest := fmt.Sprintf("%s.%d", logPath, maxLogFiles-1)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.Remove(oldest); err != nil {
			slog.Warn("Failed to remove old log file", "path", oldest, "error", err)
		}
	}

	for i := maxLogFiles - 2; i > 0; i-- {
		from := fmt.Sprintf("%s.%d", logPath, i)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		to := fmt.Sprintf("%s.%d", logPath, i+1)
		if err := os.Rename(from, to); err != nil {
			slog.Warn("Failed to rotate log file", "old", from, "new", to, "error", err)
		}
	}

	if _, err := os.Stat(logPath); err == nil {
		return os.Rename(logPath, logPath+".1")
	}
	return nil
}

func checkLogRotation(logPath string) error {
	info, err := os.Stat(logPath)
	if err != nil {
		return nil
	}
	if info.Size() >= maxLogSizeBytes {
		return rotateLogFile(logPath)
	}
	return nil
}

func createLogFile() (*os.File, error) {
	logDir, _, err := ensureLogDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, logFileName)
	if err := checkLogRotation(logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to rotate log file: %v\n", err)
	}

	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	var denErr *DenError
	if errors.As(err, &denErr) {
		h.logStructuredError(denErr)
		h.console.PrintError(h.console.FormatErrorMessage(denErr.Context, denErr.Cause, denErr.Suggestion))
		return
	}

	h.logger.Error("Unhandled error occurred",
		"error", err.Error(),
		"type", "generic",
	)
	h.console.PrintError(err.Error())
}

func (h *ErrorHandler) logStructuredError(err *DenError) {
	attrs := []slog.Attr{
		slog.String("error", err.OriginalErr.Error()),
		slog.String("type", errorTypeName(err.Type)),
		slog.String("context", err.Context),
	}
	if err.Cause != "" {
		attrs = append(attrs, slog.String("cause", err.Cause))
	}
	if err.Suggestion != "" {
		attrs = append(attrs, slog.String("suggestion", err.Suggestion))
	}

	h.logger.LogAttrs(context.TODO(), slog.LevelError, "Den installer error occurred", attrs...)
}

func errorTypeName(errType error) string {
	switch errType {
	case ErrPreconditionUnmet:
		return "precondition_unmet"
	case ErrQueryFailed:
		return "query_failed"
	case ErrBootstrapFailed:
		return "bootstrap_failed"
	case ErrInstallFailed:
		return "install_failed"
	case ErrConfigInvalid:
		return "config_invalid"
	case ErrFileSystemFailed:
		return "filesystem_failed"
	case ErrSourceFailed:
		return "source_failed"
	default:
		return "unknown"
	}
}
