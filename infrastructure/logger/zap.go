// ABOUTME: Zap-backed implementation of the Logger interface
// ABOUTME: Uses the sugared logger so field maps pass through as key/value pairs

package logger

import (
	"io"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap.SugaredLogger to interfaces.Logger
type ZapLogger struct {
	log *zap.SugaredLogger
}

// NewZapLogger builds a zap logger writing to out
func NewZapLogger(out io.Writer, level, format string) (*ZapLogger, error) {
	lvl, err := zapcore.ParseLevel(normalizeLevel(level))
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if format == "text" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), lvl)
	return &ZapLogger{log: zap.New(core).Sugar()}, nil
}

// Debug logs a debug message
func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.Debugw(msg, keysAndValues(fields)...)
}

// Info logs an info message
func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.log.Infow(msg, keysAndValues(fields)...)
}

// Warn logs a warning message
func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.Warnw(msg, keysAndValues(fields)...)
}

// Error logs an error message
func (l *ZapLogger) Error(msg string, fields map[string]interface{}) {
	l.log.Errorw(msg, keysAndValues(fields)...)
}

// Sync flushes buffered entries
func (l *ZapLogger) Sync() error {
	return l.log.Sync()
}

// keysAndValues flattens fields in key order so output is stable
func keysAndValues(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	return kv
}
