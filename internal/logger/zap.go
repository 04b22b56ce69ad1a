package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logger configuration options
type Config struct {
	LogLevel LogLevel

	// FilePath is the rotated JSON log file. Empty disables file logging.
	FilePath string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// UseConsole tees human readable output to Console (stdout when nil)
	UseConsole bool
	Console    io.Writer
}

// ZapLogger implements Logger on zap with a rotating file core and an
// optional console core.
type ZapLogger struct {
	zap *zap.Logger
	cfg Config
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger builds the logger. Unknown levels fall back to info.
func NewZapLogger(cfg Config) (*ZapLogger, error) {
	cfg = cfg.withDefaults()
	level, _ := zapLevel(cfg.LogLevel)

	var cores []zapcore.Core
	if cfg.FilePath != "" {
		core, err := fileCore(cfg, level)
		if err != nil {
			return nil, err
		}
		cores = append(cores, core)
	}
	if cfg.UseConsole {
		cores = append(cores, consoleCore(cfg, level))
	}

	z := zap.NewNop()
	if len(cores) > 0 {
		z = zap.New(zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddCallerSkip(2),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	}
	return &ZapLogger{zap: z, cfg: cfg}, nil
}

func (c Config) withDefaults() Config {
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = DefaultMaxAgeDays
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = DefaultMaxSizeMB
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = DefaultMaxBackups
	}
	if _, ok := zapLevel(c.LogLevel); !ok {
		c.LogLevel = DefaultLogLevel
	}
	if c.Console == nil {
		c.Console = os.Stdout
	}
	return c
}

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	ec.EncodeDuration = zapcore.StringDurationEncoder
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	return ec
}

func fileCore(cfg Config, level zapcore.Level) (zapcore.Core, error) {
	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	})
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, level), nil
}

// consoleCore prints short colored lines: time, level, message, fields
func consoleCore(cfg Config, level zapcore.Level) zapcore.Core {
	ec := encoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.CallerKey = zapcore.OmitKey
	ec.StacktraceKey = zapcore.OmitKey
	return zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.AddSync(cfg.Console), level)
}

// toFields converts map fields in key order so console lines are stable
func toFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok && k == ErrorKey {
			out = append(out, zap.Error(err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

func (l *ZapLogger) write(level zapcore.Level, msg string, fields map[string]interface{}) {
	if ce := l.zap.Check(level, msg); ce != nil {
		ce.Write(toFields(fields)...)
	}
}

func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.write(zapcore.DebugLevel, msg, fields)
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.write(zapcore.InfoLevel, msg, fields)
}

func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.write(zapcore.WarnLevel, msg, fields)
}

func (l *ZapLogger) Error(msg string, fields map[string]interface{}) {
	l.write(zapcore.ErrorLevel, msg, fields)
}

// WithField returns a child logger that adds key to every entry
func (l *ZapLogger) WithField(key string, value interface{}) Logger {
	return &ZapLogger{
		zap: l.zap.With(toFields(map[string]interface{}{key: value})...),
		cfg: l.cfg,
	}
}

// Sync flushes buffered entries. Syncing a terminal fails on some systems,
// so only the file sink's error is reported.
func (l *ZapLogger) Sync() error {
	err := l.zap.Sync()
	if err != nil && l.cfg.FilePath == "" {
		return nil
	}
	return err
}
