// Package logger provides the process-wide structured logger
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var Logger *log.Logger

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "vmshm",
		ReportTimestamp: true,
	})
	SetLevel(os.Getenv("VMSHM_LOG_LEVEL"))
}

// SetLevel parses a level name and applies it. Unknown or empty names fall
// back to INFO.
func SetLevel(name string) {
	Logger.SetLevel(ParseLevel(name))
}

// ParseLevel maps a case-insensitive level name to a log.Level
func ParseLevel(name string) log.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return log.DebugLevel
	case "WARN", "WARNING":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	case "FATAL":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// SetOutput redirects log output, mainly for tests
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// With returns a child logger carrying the given key/value pairs
func With(keyvals ...interface{}) *log.Logger {
	return Logger.With(keyvals...)
}

func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}
