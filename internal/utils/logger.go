package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus logger with module/operation fields
type Logger struct {
	log *logrus.Logger
}

// NewLogger creates a new JSON logger
func NewLogger() *Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	l.SetOutput(os.Stdout)
	return &Logger{log: l}
}

// Info logs an informational message for a module operation
func (l *Logger) Info(module, op, msg string) {
	l.log.WithFields(logrus.Fields{"module": module, "op": op}).Info(msg)
}

// Error logs an error with its module operation context
func (l *Logger) Error(module, op string, err error) {
	l.log.WithFields(logrus.Fields{"module": module, "op": op}).Error(err.Error())
}
