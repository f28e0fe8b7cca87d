// Package logger provides centralized logging for claudeweb.
// It wraps charmbracelet/log with a process-wide logger and component loggers.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the global logger instance used throughout claudeweb.
var Logger *log.Logger

// logFile is the file opened by the last Configure, if any.
var logFile *os.File

func init() {
	Logger = log.New(os.Stderr)
	Logger.SetTimeFormat("")
	Logger.SetLevel(log.InfoLevel)
}

// Configure sets the level and output of the global logger. An empty
// logFile keeps stderr. The MCP stdio server must not log to stdout, so
// stdout is never an option here. A file opened by an earlier call is
// closed once the new output is in place.
func Configure(logLevel string, path string) error {
	var output io.Writer = os.Stderr
	var file *os.File
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return err
		}
		file = f
		output = f
	}

	Logger = log.NewWithOptions(output, log.Options{
		ReportTimestamp: path != "",
		TimeFormat:      "2006-01-02 15:04:05",
		Level:           parseLogLevel(logLevel),
	})

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = file
	return nil
}

// parseLogLevel converts string to log level
func parseLogLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "info", "":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// New returns a component logger sharing the global output and level.
func New(component string) *log.Logger {
	return Logger.WithPrefix(component)
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}
