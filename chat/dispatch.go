package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/proxiehq/proxie-go/api"
	clienterrors "github.com/proxiehq/proxie-go/internal/errors"
	"github.com/proxiehq/proxie-go/internal/observability"
	"github.com/proxiehq/proxie-go/media"
	"github.com/proxiehq/proxie-go/store"
)

// ApologyMessage is appended verbatim when a dispatch fails at the
// transport. Retries are exclusively user-initiated.
const ApologyMessage = "I'm sorry, I'm having trouble connecting. Please check your connection."

// ChatSender is the slice of the backend client the engine needs.
type ChatSender interface {
	SendChat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
}

// ChannelJoiner joins the realtime channel for a resolved session id.
type ChannelJoiner interface {
	Join(sessionID string)
}

// Speaker plays back assistant content when voice output is on.
type Speaker interface {
	Enabled() bool
	Speak(ctx context.Context, text string) error
}

// Engine is the single-flight send/receive pipeline of a dialogue view.
type Engine struct {
	api      ChatSender
	guard    *Guard
	session  *Session
	devices  store.KV
	pipeline *media.Pipeline
	channel  ChannelJoiner // optional
	speaker  Speaker       // optional
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithChannel attaches the realtime channel adapter.
func WithChannel(ch ChannelJoiner) EngineOption {
	return func(e *Engine) { e.channel = ch }
}

// WithSpeaker attaches the voice output adapter.
func WithSpeaker(sp Speaker) EngineOption {
	return func(e *Engine) { e.speaker = sp }
}

// WithPipeline attaches the staged media pipeline.
func WithPipeline(p *media.Pipeline) EngineOption {
	return func(e *Engine) { e.pipeline = p }
}

// NewEngine creates a dispatch engine bound to one session.
func NewEngine(sender ChatSender, guard *Guard, session *Session, devices store.KV, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		api:     sender,
		guard:   guard,
		session: session,
		devices: devices,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session returns the session the engine dispatches for.
func (e *Engine) Session() *Session {
	return e.session
}

// SendIntent dispatches a panel intent.
func (e *Engine) SendIntent(ctx context.Context, intent Intent) error {
	return e.Send(ctx, intent.Text, intent.Action)
}

// Send issues one chat turn. Staged attachments, if any, are drained from
// the pipeline and carried along. Duplicate or re-entrant sends are dropped
// silently; transport failures surface as an apology message in the log and
// a TRANSPORT_FAILED error for callers that care.
func (e *Engine) Send(ctx context.Context, text, action string) error {
	dc := observability.NewDispatchContext(e.logger, string(e.session.Role()), e.session.ID())
	ctx = observability.WithDispatchContext(ctx, dc)

	var staged []media.Attachment
	if e.pipeline != nil {
		staged = e.pipeline.Staged()
	}

	if strings.TrimSpace(text) == "" && len(staged) == 0 && action == "" {
		return nil
	}

	// Claim the in-flight flag before recording anything: a send dropped
	// here must not leave a fingerprint behind that would suppress the
	// user's retry of the same message.
	if !e.session.TryBeginSend() {
		dc.Warn("dispatch already outstanding, ignoring send")
		return nil
	}

	fp := Fingerprint(text, action, len(staged))
	if e.guard.ShouldSuppress(text, action, len(staged)) {
		e.session.EndSend()
		return nil
	}
	if !e.guard.BeginFlight(fp) {
		e.session.EndSend()
		return nil
	}
	defer func() {
		e.session.EndSend()
		e.guard.EndFlight(fp)
	}()

	dc.Debug("dispatching chat turn",
		slog.String(observability.LogFieldAction, action),
		slog.Int(observability.LogFieldMessageLen, len(text)),
	)

	// Optimistic append; the staged set is cleared no matter how the send
	// turns out.
	e.session.Append(NewUserMessage(text, staged))
	if e.pipeline != nil {
		e.pipeline.Drain()
	}

	resp, err := e.api.SendChat(ctx, e.buildRequest(ctx, text, action, staged))
	if err != nil {
		dc.Error("chat dispatch failed", err, slog.Int64(observability.LogFieldDuration, dc.DurationMs()))
		e.session.Append(NewAssistantMessage(ApologyMessage, nil, nil, false))
		return clienterrors.TransportFailed("chat dispatch", err)
	}

	if e.session.ID() == "" && resp.SessionID != "" {
		e.session.SetID(resp.SessionID)
		if e.channel != nil {
			e.channel.Join(resp.SessionID)
		}
	}

	data, dataErr := DecodePanelData(resp.Data)
	draft, draftErr := DecodeDraft(resp.Draft)
	if dataErr != nil || draftErr != nil {
		// Malformed structured payloads degrade to a plain text message;
		// the response text is still shown.
		if dataErr != nil {
			dc.Warn("dropping malformed structured data", slog.String("error", dataErr.Error()))
		}
		if draftErr != nil {
			dc.Warn("dropping malformed draft", slog.String("error", draftErr.Error()))
		}
		data, draft = nil, nil
	}

	e.session.Append(NewAssistantMessage(resp.Message, data, draft, resp.AwaitingApproval))

	if data != nil && data.EnrollmentResult != nil && data.EnrollmentResult.Status == EnrollmentStatusVerified {
		pid := data.EnrollmentResult.ProviderID
		if pid != "" {
			if err := e.devices.Set(ctx, store.KeyProviderID, pid); err != nil {
				dc.Warn("failed to persist provider id", slog.String("error", err.Error()))
			}
		}
	}

	e.speak(ctx, resp.Message)

	dc.Info("chat dispatch complete",
		slog.Int(observability.LogFieldMessageLen, len(resp.Message)),
		slog.Int64(observability.LogFieldDuration, dc.DurationMs()),
	)
	return nil
}

func (e *Engine) buildRequest(ctx context.Context, text, action string, staged []media.Attachment) *api.ChatRequest {
	req := &api.ChatRequest{
		Message: text,
		Role:    string(e.session.Role()),
	}
	if id := e.session.ID(); id != "" {
		req.SessionID = &id
	}
	if cid, ok, _ := e.devices.Get(ctx, store.KeyConsumerID); ok && cid != "" {
		req.ConsumerID = &cid
	}
	if pid := e.session.ProviderID(); pid != "" {
		req.ProviderID = &pid
	}
	if eid := e.session.EnrollmentID(); eid != "" {
		req.EnrollmentID = &eid
	}
	if action != "" {
		req.Action = &action
	}
	for _, att := range staged {
		req.Media = append(req.Media, api.MediaPayload{
			Type:     string(att.Kind),
			Data:     att.Data,
			MimeType: att.MimeType,
		})
	}
	return req
}

// speak is fire-and-forget; playback failures never affect the dispatch.
func (e *Engine) speak(ctx context.Context, text string) {
	if e.speaker == nil || !e.speaker.Enabled() || text == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := e.speaker.Speak(ctx, text); err != nil {
			if dc, ok := observability.FromContext(ctx); ok {
				dc.Warn("voice playback failed", slog.String("error", err.Error()))
			} else {
				e.logger.Warn("voice playback failed", slog.String("error", err.Error()))
			}
		}
	}()
}
