package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/user/mediaio/pkg/ports"
)

// LogEntry is one recorded log call.
type LogEntry struct {
	Level     ports.LogLevel
	Component string
	Message   string
}

// Logger records log calls for verification. Component loggers share the
// parent's record.
type Logger struct {
	component string
	record    *logRecord
}

type logRecord struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogger creates a recording logger.
func NewLogger() *Logger {
	return &Logger{record: &logRecord{}}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.add(ports.LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.add(ports.LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.add(ports.LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.add(ports.LevelError, msg, args) }

func (l *Logger) WithComponent(component string) ports.Logger {
	return &Logger{component: component, record: l.record}
}

func (l *Logger) add(level ports.LogLevel, msg string, args []interface{}) {
	l.record.mu.Lock()
	defer l.record.mu.Unlock()
	l.record.entries = append(l.record.entries, LogEntry{
		Level:     level,
		Component: l.component,
		Message:   fmt.Sprintf(msg, args...),
	})
}

// Entries returns all recorded entries.
func (l *Logger) Entries() []LogEntry {
	l.record.mu.Lock()
	defer l.record.mu.Unlock()
	return append([]LogEntry(nil), l.record.entries...)
}

// Count returns the number of entries at level whose message contains substr.
func (l *Logger) Count(level ports.LogLevel, substr string) int {
	n := 0
	for _, e := range l.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

var _ ports.Logger = (*Logger)(nil)
