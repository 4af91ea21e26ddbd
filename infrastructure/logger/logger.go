// ABOUTME: Builds the configured Logger backend
// ABOUTME: Routes output to stdout or a lumberjack rotating file

package logger

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"content-fetch-api/core/interfaces"
	"content-fetch-api/pkg/config"
)

// New returns a logger for cfg and a function that releases its output
func New(cfg config.LogConfig) (interfaces.Logger, func() error, error) {
	out, closeOut := output(cfg.File)

	switch cfg.Backend {
	case "", "logrus":
		l, err := NewLogrusLogger(out, cfg.Level, cfg.Format)
		if err != nil {
			closeOut()
			return nil, nil, errors.Wrap(err, "logrus logger")
		}
		return l, closeOut, nil
	case "zap":
		l, err := NewZapLogger(out, cfg.Level, cfg.Format)
		if err != nil {
			closeOut()
			return nil, nil, errors.Wrap(err, "zap logger")
		}
		return l, func() error {
			_ = l.Sync()
			return closeOut()
		}, nil
	default:
		closeOut()
		return nil, nil, errors.Newf("unknown log backend %q", cfg.Backend)
	}
}

func output(file string) (io.Writer, func() error) {
	if file == "" {
		return os.Stdout, func() error { return nil }
	}
	w := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    500, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return w, w.Close
}

func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "":
		return "info"
	case "warning":
		return "warn"
	}
	return level
}

// Nop discards everything
type Nop struct{}

func (Nop) Debug(string, map[string]interface{}) {}
func (Nop) Info(string, map[string]interface{})  {}
func (Nop) Warn(string, map[string]interface{})  {}
func (Nop) Error(string, map[string]interface{}) {}
