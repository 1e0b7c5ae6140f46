package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldDispatchID is the field name for dispatch ID.
	LogFieldDispatchID = "dispatch_id"
	// LogFieldSessionID is the field name for session ID.
	LogFieldSessionID = "session_id"
	// LogFieldRole is the field name for dialogue role.
	LogFieldRole = "role"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldMessageLen is the field name for message length.
	LogFieldMessageLen = "message_length"
	// LogFieldFingerprint is the field name for dispatch fingerprint.
	LogFieldFingerprint = "fingerprint"
	// LogFieldAction is the field name for workflow action.
	LogFieldAction = "action"
	// LogFieldEventType is the field name for realtime event type.
	LogFieldEventType = "event_type"
)

// DispatchContext carries structured logging state for a single dispatch.
type DispatchContext struct {
	DispatchID string
	SessionID  string
	Role       string
	StartTime  time.Time
	Logger     *slog.Logger
}

// NewDispatchContext creates a new dispatch context with a generated dispatch ID.
func NewDispatchContext(logger *slog.Logger, role, sessionID string) *DispatchContext {
	return &DispatchContext{
		DispatchID: uuid.New().String(),
		SessionID:  sessionID,
		Role:       role,
		StartTime:  time.Now(),
		Logger:     logger,
	}
}

// Info logs an info message.
func (d *DispatchContext) Info(msg string, attrs ...slog.Attr) {
	d.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, d.baseAttrsAppended(attrs...)...)
}

// Debug logs a debug message.
func (d *DispatchContext) Debug(msg string, attrs ...slog.Attr) {
	d.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, d.baseAttrsAppended(attrs...)...)
}

// Warn logs a warning message.
func (d *DispatchContext) Warn(msg string, attrs ...slog.Attr) {
	d.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, d.baseAttrsAppended(attrs...)...)
}

// Error logs an error message with the error.
func (d *DispatchContext) Error(msg string, err error, attrs ...slog.Attr) {
	allAttrs := append(attrs, slog.String("error", err.Error()))
	d.Logger.LogAttrs(context.Background(), slog.LevelError, msg, d.baseAttrsAppended(allAttrs...)...)
}

// Duration returns the elapsed time since the dispatch started.
func (d *DispatchContext) Duration() time.Duration {
	return time.Since(d.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (d *DispatchContext) DurationMs() int64 {
	return d.Duration().Milliseconds()
}

func (d *DispatchContext) baseAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String(LogFieldDispatchID, d.DispatchID),
		slog.String(LogFieldSessionID, d.SessionID),
		slog.String(LogFieldRole, d.Role),
	}
}

func (d *DispatchContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	return append(d.baseAttrs(), attrs...)
}

type ctxKey struct{}

// WithDispatchContext adds the dispatch context to the context.
func WithDispatchContext(ctx context.Context, dc *DispatchContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, dc)
}

// FromContext extracts the dispatch context from the context.
func FromContext(ctx context.Context) (*DispatchContext, bool) {
	dc, ok := ctx.Value(ctxKey{}).(*DispatchContext)
	return dc, ok
}
