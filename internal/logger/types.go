// Package logger is the structured logger shared by every component.
package logger

import "go.uber.org/zap/zapcore"

// LogLevel represents logging levels as strings
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

const (
	// DefaultLogLevel is used when the config leaves the level empty
	DefaultLogLevel = InfoLevel

	// Rotation of the JSON log file
	DefaultMaxSizeMB  = 20
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 15

	// ErrorKey is the field name used for errors
	ErrorKey = "error"
)

// Logger is a leveled logger with map fields. A child from WithField
// carries the field on every entry.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})

	WithField(key string, value interface{}) Logger
	Sync() error
}

// ValidLevel reports whether s names one of the supported levels
func ValidLevel(s string) bool {
	_, ok := zapLevel(LogLevel(s))
	return ok
}

func zapLevel(l LogLevel) (zapcore.Level, bool) {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel, true
	case InfoLevel:
		return zapcore.InfoLevel, true
	case WarnLevel:
		return zapcore.WarnLevel, true
	case ErrorLevel:
		return zapcore.ErrorLevel, true
	}
	return zapcore.InfoLevel, false
}
