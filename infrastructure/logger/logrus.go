// ABOUTME: Logrus-backed implementation of the Logger interface
// ABOUTME: Supports JSON or text output with an optional rotating log file

package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus.Logger to interfaces.Logger
type LogrusLogger struct {
	log *logrus.Logger
}

// NewLogrusLogger builds a logrus logger writing to out
func NewLogrusLogger(out io.Writer, level, format string) (*LogrusLogger, error) {
	lvl, err := logrus.ParseLevel(normalizeLevel(level))
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	if format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return &LogrusLogger{log: log}, nil
}

// Debug logs a debug message
func (l *LogrusLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.WithFields(fields).Debug(msg)
}

// Info logs an info message
func (l *LogrusLogger) Info(msg string, fields map[string]interface{}) {
	l.log.WithFields(fields).Info(msg)
}

// Warn logs a warning message
func (l *LogrusLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.WithFields(fields).Warn(msg)
}

// Error logs an error message
func (l *LogrusLogger) Error(msg string, fields map[string]interface{}) {
	l.log.WithFields(fields).Error(msg)
}
