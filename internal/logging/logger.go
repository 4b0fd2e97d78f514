package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New initializes a JSON logger that writes to stdout, and additionally
// to a log file when logFileName is non-empty. The returned file (nil
// when no file logging is configured) must be closed by the caller.
func New(outputDir, logFileName, level string) (*slog.Logger, *os.File) {
	var logWriter io.Writer = os.Stdout
	var logFile *os.File

	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	if logFileName != "" {
		logPath := filepath.Join(outputDir, logFileName)
		var err error
		logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			slog.Error("Failed to open log file, continuing with stdout only", "error", err, "path", logPath)
		} else {
			logWriter = io.MultiWriter(os.Stdout, logFile)
		}
	}

	logger := slog.New(slog.NewJSONHandler(logWriter, handlerOpts))
	slog.SetDefault(logger)

	return logger, logFile
}
