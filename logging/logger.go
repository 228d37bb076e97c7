package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger defines the minimal logging interface for the coordination core.
// This allows users to provide their own logger implementation or use the
// built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// CoordLogger wraps slog.Logger adding contextual cloning helpers and
// coordination-specific convenience methods. It is cheap to copy via the
// With* methods.
type CoordLogger struct {
	logger    *slog.Logger
	level     LogLevel
	component string
	agentID   string
	attrs     map[string]any
}

// LoggerConfig configures construction of a CoordLogger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // json or text
	Output    io.Writer
	Component string
}

// NewCoordLogger builds a CoordLogger writing to stdout in the given format.
func NewCoordLogger(level LogLevel, format string) *CoordLogger {
	return NewCoordLoggerWithConfig(&LoggerConfig{Level: level, Format: format, Output: os.Stdout})
}

// NewCoordLoggerWithConfig builds a CoordLogger from an explicit config.
func NewCoordLoggerWithConfig(cfg *LoggerConfig) *CoordLogger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &CoordLogger{logger: slog.New(handler), level: cfg.Level, component: cfg.Component, attrs: map[string]any{}}
}

func (l *CoordLogger) clone() *CoordLogger {
	nl := *l
	nl.attrs = make(map[string]any, len(l.attrs))
	for k, v := range l.attrs {
		nl.attrs[k] = v
	}
	return &nl
}

// WithComponent sets the logical component (bus, sharedctx, delegation, team, lock).
func (l *CoordLogger) WithComponent(c string) *CoordLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithAgent attaches the acting agent id to every entry.
func (l *CoordLogger) WithAgent(agentID string) *CoordLogger {
	nl := l.clone()
	nl.agentID = agentID
	return nl
}

// WithAttr adds a key/value attribute attached to every log entry.
func (l *CoordLogger) WithAttr(key string, value any) *CoordLogger {
	nl := l.clone()
	nl.attrs[key] = value
	return nl
}

func (l *CoordLogger) buildAttrs(extra ...any) []any {
	attrs := make([]any, 0, len(l.attrs)*2+len(extra)+4)
	if l.component != "" {
		attrs = append(attrs, "component", l.component)
	}
	if l.agentID != "" {
		attrs = append(attrs, "agent_id", l.agentID)
	}
	for k, v := range l.attrs {
		attrs = append(attrs, k, v)
	}
	return append(attrs, extra...)
}

func (l *CoordLogger) log(level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}
	l.logger.Log(context.Background(), level, msg, l.buildAttrs(args...)...)
}

// Debug logs at debug level.
func (l *CoordLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *CoordLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *CoordLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *CoordLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, l.level <= LogLevelError, msg, args...)
}

// LogDelivery records a message delivery.
func (l *CoordLogger) LogDelivery(msgType, from, to string, broadcast bool) {
	l.Debug("message delivered", "type", msgType, "from", from, "to", to, "broadcast", broadcast)
}

// LogLease records a lease lifecycle event (acquired, renewed, released, expired, contended).
func (l *CoordLogger) LogLease(event, resourceID, agentID string, expiresAt time.Time) {
	l.Debug("lease "+event, "resource_id", resourceID, "agent_id", agentID, "expires_at", expiresAt)
}

// LogDelegation records a delegation status transition.
func (l *CoordLogger) LogDelegation(delegationID, from, to, status string) {
	l.Info("delegation "+status, "delegation_id", delegationID, "from", from, "to", to)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
