package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Interface interface {
	Debug(message string, args ...interface{})
	Info(message string, args ...interface{})
	Warn(message string, args ...interface{})
	Error(err error, message string, args ...interface{})
	Fatal(err error)

	// Structured variants, keysAndValues are alternating key/value pairs.
	Infow(message string, keysAndValues ...interface{})
	Warnw(message string, keysAndValues ...interface{})
	Errorw(message string, keysAndValues ...interface{})
}

type Logger struct {
	sugar *zap.SugaredLogger
}

var _ Interface = (*Logger)(nil)

type Option func(*options)

type options struct {
	path       string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

// File adds a rotating JSON file sink next to stdout.
func File(path string, maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(o *options) {
		o.path = path
		o.maxSizeMB = maxSizeMB
		o.maxBackups = maxBackups
		o.maxAgeDays = maxAgeDays
	}
}

func New(level string, opts ...Option) *Logger {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	lvl := parseLevel(level)

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(os.Stdout), lvl),
	}

	if o.path != "" {
		if dir := filepath.Dir(o.path); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}

		lj := &lumberjack.Logger{
			Filename:   o.path,
			MaxSize:    o.maxSizeMB,
			MaxBackups: o.maxBackups,
			MaxAge:     o.maxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(lj), lvl))
	}

	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	return &Logger{sugar: zl.Sugar()}
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) Debug(message string, args ...interface{}) {
	l.sugar.Debugf(message, args...)
}

func (l *Logger) Info(message string, args ...interface{}) {
	l.sugar.Infof(message, args...)
}

func (l *Logger) Warn(message string, args ...interface{}) {
	l.sugar.Warnf(message, args...)
}

func (l *Logger) Error(err error, message string, args ...interface{}) {
	l.sugar.Errorw(fmt.Sprintf(message, args...), "error", err)
}

func (l *Logger) Fatal(err error) {
	l.sugar.Fatalw("fatal error", "error", err)
}

func (l *Logger) Infow(message string, keysAndValues ...interface{}) {
	l.sugar.Infow(message, keysAndValues...)
}

func (l *Logger) Warnw(message string, keysAndValues ...interface{}) {
	l.sugar.Warnw(message, keysAndValues...)
}

func (l *Logger) Errorw(message string, keysAndValues ...interface{}) {
	l.sugar.Errorw(message, keysAndValues...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
