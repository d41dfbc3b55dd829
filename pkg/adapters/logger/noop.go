package logger

import "github.com/user/mediaio/pkg/ports"

// NoopLogger discards everything. It backs --quiet.
type NoopLogger struct{}

// NewNoop returns a NoopLogger.
func NewNoop() NoopLogger { return NoopLogger{} }

func (NoopLogger) Debug(string, ...interface{})          {}
func (NoopLogger) Info(string, ...interface{})           {}
func (NoopLogger) Warn(string, ...interface{})           {}
func (NoopLogger) Error(string, ...interface{})          {}
func (n NoopLogger) WithComponent(string) ports.Logger { return n }

var _ ports.Logger = NoopLogger{}
