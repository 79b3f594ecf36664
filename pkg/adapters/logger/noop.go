package logger

import "github.com/user/framepump/pkg/ports"

// NoopLogger discards all messages. It is the logger of the CLI in quiet mode.
type NoopLogger struct {
	ports.NopLogger
}

// NewNoop creates a new no-op logger.
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

// WithComponent returns the same no-op logger.
func (l *NoopLogger) WithComponent(component string) ports.Logger {
	return l
}

var _ ports.Logger = (*NoopLogger)(nil)
