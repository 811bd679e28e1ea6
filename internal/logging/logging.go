// Package logging wraps charmbracelet/log behind a process-wide logger.
// Diagnostics go to stderr so they never mix with command output; the
// default level is warn because routine progress is reported by the UI
// layer, not the log.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	instance *log.Logger
	once     sync.Once
)

// Get returns the singleton logger, honoring $BINGE_LOG on first use.
func Get() *log.Logger {
	once.Do(func() {
		instance = log.NewWithOptions(os.Stderr, log.Options{
			Level:      log.WarnLevel,
			TimeFormat: "15:04:05",
		})
		if env := os.Getenv("BINGE_LOG"); env != "" {
			instance.SetLevel(parseLevel(env))
		}
	})
	return instance
}

// SetVerbosity applies the --verbose and --quiet flags. Flags outrank
// $BINGE_LOG; verbose wins if both are set.
func SetVerbosity(verbose, quiet bool) {
	l := Get()
	switch {
	case verbose:
		l.SetLevel(log.DebugLevel)
		l.SetReportTimestamp(true)
	case quiet:
		l.SetLevel(log.ErrorLevel)
	}
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}

// Debug logs a debug message through the singleton.
func Debug(msg string, keyvals ...any) {
	Get().Debug(msg, keyvals...)
}

// Info logs an info message through the singleton.
func Info(msg string, keyvals ...any) {
	Get().Info(msg, keyvals...)
}

// Warn logs a warning through the singleton.
func Warn(msg string, keyvals ...any) {
	Get().Warn(msg, keyvals...)
}

// Error logs an error through the singleton.
func Error(msg string, keyvals ...any) {
	Get().Error(msg, keyvals...)
}
