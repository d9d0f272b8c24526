package helpers

import (
	"fmt"

	"github.com/golang/glog"
)

// Logger provides simplified logging with prefixes on top of glog
type Logger struct {
	prefix string
}

// NewLogger creates a new logger with a prefix
func NewLogger(prefix string) *Logger {
	return &Logger{prefix: "[" + prefix + "]"}
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	glog.InfoDepth(1, l.format(msg, args))
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	glog.WarningDepth(1, l.format(msg, args))
}

// Error logs an error message
func (l *Logger) Error(msg string, err error, args ...interface{}) {
	glog.ErrorDepth(1, fmt.Sprintf("%s %s - %v", l.prefix, msg, err)+suffix(args))
}

// Debug logs a debug message, shown with -v=2 or higher
func (l *Logger) Debug(msg string, args ...interface{}) {
	if glog.V(2) {
		glog.InfoDepth(1, l.format(msg, args))
	}
}

func (l *Logger) format(msg string, args []interface{}) string {
	return l.prefix + " " + msg + suffix(args)
}

func suffix(args []interface{}) string {
	if len(args) == 0 {
		return ""
	}
	return fmt.Sprintf(" %v", args)
}
