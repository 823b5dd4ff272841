// Package logger provides a basic structured logger implementing core.Logger.
package logger

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/planweaver/planweaver/core"
)

// LogLevel controls which messages are emitted
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// SimpleLogger provides a basic structured logger implementation
type SimpleLogger struct {
	level  LogLevel
	fields map[string]interface{}
}

// NewSimpleLogger creates a new simple logger at INFO level
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		level:  InfoLevel,
		fields: make(map[string]interface{}),
	}
}

// NewWithLevel creates a logger with the given level string
func NewWithLevel(level string) *SimpleLogger {
	l := NewSimpleLogger()
	l.SetLevel(level)
	return l
}

// Debug logs a debug message
func (l *SimpleLogger) Debug(msg string, fields map[string]interface{}) {
	if l.level <= DebugLevel {
		l.log("DEBUG", msg, fields)
	}
}

// Info logs an info message
func (l *SimpleLogger) Info(msg string, fields map[string]interface{}) {
	if l.level <= InfoLevel {
		l.log("INFO", msg, fields)
	}
}

// Warn logs a warning message
func (l *SimpleLogger) Warn(msg string, fields map[string]interface{}) {
	if l.level <= WarnLevel {
		l.log("WARN", msg, fields)
	}
}

// Error logs an error message
func (l *SimpleLogger) Error(msg string, fields map[string]interface{}) {
	if l.level <= ErrorLevel {
		l.log("ERROR", msg, fields)
	}
}

// SetLevel sets the logging level
func (l *SimpleLogger) SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		l.level = DebugLevel
	case "INFO":
		l.level = InfoLevel
	case "WARN", "WARNING":
		l.level = WarnLevel
	case "ERROR":
		l.level = ErrorLevel
	}
}

// WithField returns a logger with an additional persistent field
func (l *SimpleLogger) WithField(key string, value interface{}) *SimpleLogger {
	newFields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		newFields[k] = v
	}
	newFields[key] = value

	return &SimpleLogger{
		level:  l.level,
		fields: newFields,
	}
}

// log performs the actual logging
func (l *SimpleLogger) log(level, msg string, fields map[string]interface{}) {
	parts := []string{fmt.Sprintf("[%s]", level), msg}

	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, merged[k]))
	}

	log.Println(strings.Join(parts, " "))
}

// Compile-time interface check
var _ core.Logger = (*SimpleLogger)(nil)
