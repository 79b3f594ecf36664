package logger

import (
	"io"

	"github.com/ideamans/go-l10n"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/user/framepump/pkg/ports"
)

// ZapLogger writes structured entries through zap. The component is
// attached as a field rather than a prefix.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZap creates a zap-backed logger writing to w. Format is "json" or
// "console"; anything else falls back to console.
func NewZap(level ports.LogLevel, format string, w io.Writer) *ZapLogger {
	if level >= ports.LevelQuiet {
		return &ZapLogger{logger: zap.NewNop()}
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	var enc zapcore.Encoder
	if format == "json" {
		cfg = zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapLevel(level))
	return &ZapLogger{logger: zap.New(core)}
}

// NewZapFrom wraps an existing zap logger.
func NewZapFrom(l *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: l}
}

func zapLevel(level ports.LogLevel) zapcore.Level {
	switch level {
	case ports.LevelDebug:
		return zapcore.DebugLevel
	case ports.LevelWarn:
		return zapcore.WarnLevel
	case ports.LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.logger.Debug(l10n.F(msg, args...))
}

func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.logger.Info(l10n.F(msg, args...))
}

func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warn(l10n.F(msg, args...))
}

func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.logger.Error(l10n.F(msg, args...))
}

// WithComponent returns a logger whose entries carry a component field.
func (l *ZapLogger) WithComponent(component string) ports.Logger {
	return &ZapLogger{logger: l.logger.With(zap.String("component", component))}
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

var _ ports.Logger = (*ZapLogger)(nil)
