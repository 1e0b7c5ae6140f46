package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxiehq/proxie-go/api"
	clienterrors "github.com/proxiehq/proxie-go/internal/errors"
	"github.com/proxiehq/proxie-go/internal/testutil"
	"github.com/proxiehq/proxie-go/media"
	"github.com/proxiehq/proxie-go/store"
)

type testEngine struct {
	engine   *Engine
	session  *Session
	devices  *store.MemoryKV
	pipeline *media.Pipeline
}

func newTestEngine(t *testing.T, baseURL string, role Role, opts ...EngineOption) *testEngine {
	t.Helper()
	logger := discardLogger()
	session := NewSession(role)
	devices := store.NewMemoryKV()
	pipeline := media.NewPipeline(5)
	guard := NewGuard(store.NewMemoryKV(), logger)

	opts = append([]EngineOption{WithPipeline(pipeline)}, opts...)
	return &testEngine{
		engine:   NewEngine(api.NewClient(baseURL), guard, session, devices, logger, opts...),
		session:  session,
		devices:  devices,
		pipeline: pipeline,
	}
}

func TestSendAdoptsSessionID(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	defer srv.Close()

	te := newTestEngine(t, srv.URL(), RoleConsumer)
	ctx := context.Background()

	require.NoError(t, te.engine.Send(ctx, "I need a plumber", ""))
	assert.Equal(t, "sess-test", te.session.ID())

	require.NoError(t, te.engine.Send(ctx, "for tomorrow morning", ""))

	reqs := srv.ChatRequests()
	require.Len(t, reqs, 2)
	assert.Nil(t, reqs[0].SessionID, "first turn carries no session id")
	require.NotNil(t, reqs[1].SessionID)
	assert.Equal(t, "sess-test", *reqs[1].SessionID)
}

func TestSendAppendsBothSides(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	defer srv.Close()

	te := newTestEngine(t, srv.URL(), RoleConsumer)
	require.NoError(t, te.engine.Send(context.Background(), "hello", ""))

	msgs := te.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, OriginUser, msgs[0].Origin)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, OriginAssistant, msgs[1].Origin)
	assert.Equal(t, "Echo: hello", msgs[1].Content)
}

func TestSendTransportFailure(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	url := srv.URL()
	srv.Close() // unreachable backend

	te := newTestEngine(t, url, RoleConsumer)
	err := te.engine.Send(context.Background(), "hello", "")
	require.Error(t, err)
	assert.True(t, clienterrors.IsCode(err, clienterrors.ErrCodeTransportFailed))

	// The user message stays, followed by the apology. No retry happens.
	msgs := te.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, ApologyMessage, msgs[1].Content)
	assert.False(t, te.session.InFlight(), "in-flight flag must clear after a failure")
}

func TestSendErrorStatus(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	defer srv.Close()
	srv.ChatHandler = func(api.ChatRequest) (api.ChatResponse, int) {
		return api.ChatResponse{}, http.StatusInternalServerError
	}

	te := newTestEngine(t, srv.URL(), RoleConsumer)
	err := te.engine.Send(context.Background(), "hello", "")
	require.Error(t, err)
	assert.True(t, clienterrors.IsCode(err, clienterrors.ErrCodeTransportFailed))
}

func TestSendSuppressesDuplicates(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	defer srv.Close()

	te := newTestEngine(t, srv.URL(), RoleConsumer)
	ctx := context.Background()

	require.NoError(t, te.engine.SendIntent(ctx, ApproveDraftIntent()))
	require.NoError(t, te.engine.SendIntent(ctx, ApproveDraftIntent()))

	assert.Equal(t, 1, srv.ChatCalls(), "double-fired intent must reach the network once")
	assert.Len(t, te.session.Messages(), 2, "the suppressed send leaves no trace in the log")
}

func TestSendDroppedSendDoesNotSuppressRetry(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	defer srv.Close()

	te := newTestEngine(t, srv.URL(), RoleConsumer)
	ctx := context.Background()

	// Hold the in-flight flag as an outstanding dispatch would.
	require.True(t, te.session.TryBeginSend())
	require.NoError(t, te.engine.Send(ctx, "hello", ""))
	assert.Equal(t, 0, srv.ChatCalls())
	te.session.EndSend()

	// The dropped send left no fingerprint, so the retry goes out.
	require.NoError(t, te.engine.Send(ctx, "hello", ""))
	assert.Equal(t, 1, srv.ChatCalls())
}

func TestSendIgnoresBlankInput(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	defer srv.Close()

	te := newTestEngine(t, srv.URL(), RoleConsumer)
	require.NoError(t, te.engine.Send(context.Background(), "   ", ""))
	assert.Equal(t, 0, srv.ChatCalls())
	assert.Empty(t, te.session.Messages())
}

func TestSendCarriesStagedMedia(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	defer srv.Close()

	te := newTestEngine(t, srv.URL(), RoleConsumer)
	require.NoError(t, te.pipeline.Restage(media.Attachment{
		ID:       "m1",
		Kind:     media.KindImage,
		Data:     "ZmFrZQ==",
		MimeType: "image/jpeg",
	}))

	require.NoError(t, te.engine.Send(context.Background(), "look at this", ""))

	reqs := srv.ChatRequests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Media, 1)
	assert.Equal(t, "image", reqs[0].Media[0].Type)
	assert.Equal(t, "ZmFrZQ==", reqs[0].Media[0].Data)
	assert.Zero(t, te.pipeline.Len(), "staged media drains on send")
}

func TestSendThreadsCorrelationIDs(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	defer srv.Close()

	te := newTestEngine(t, srv.URL(), RoleProvider)
	ctx := context.Background()
	require.NoError(t, te.devices.Set(ctx, store.KeyConsumerID, "cons-1"))
	te.session.SetProviderID("prov-1")
	te.session.SetEnrollmentID("enr-1")

	require.NoError(t, te.engine.Send(ctx, "show my leads", ""))

	reqs := srv.ChatRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "provider", reqs[0].Role)
	require.NotNil(t, reqs[0].ConsumerID)
	assert.Equal(t, "cons-1", *reqs[0].ConsumerID)
	require.NotNil(t, reqs[0].ProviderID)
	assert.Equal(t, "prov-1", *reqs[0].ProviderID)
	require.NotNil(t, reqs[0].EnrollmentID)
	assert.Equal(t, "enr-1", *reqs[0].EnrollmentID)
}

func TestSendPersistsVerifiedProviderID(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	defer srv.Close()
	srv.ChatHandler = func(api.ChatRequest) (api.ChatResponse, int) {
		return api.ChatResponse{
			SessionID: "sess-test",
			Message:   "You're all set!",
			Data:      json.RawMessage(`{"enrollment_result": {"status": "verified", "provider_id": "prov-9"}}`),
		}, http.StatusOK
	}

	te := newTestEngine(t, srv.URL(), RoleEnrollment)
	ctx := context.Background()
	require.NoError(t, te.engine.SendIntent(ctx, ConfirmEnrollmentIntent()))

	pid, ok, err := te.devices.Get(ctx, store.KeyProviderID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "prov-9", pid)
}

func TestSendDegradesMalformedPayload(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	defer srv.Close()
	srv.ChatHandler = func(api.ChatRequest) (api.ChatResponse, int) {
		return api.ChatResponse{
			SessionID: "sess-test",
			Message:   "Here are your offers",
			Data:      json.RawMessage(`"oops"`),
		}, http.StatusOK
	}

	te := newTestEngine(t, srv.URL(), RoleConsumer)
	require.NoError(t, te.engine.Send(context.Background(), "show offers", ""))

	msg, ok := te.session.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "Here are your offers", msg.Content, "the text still renders")
	assert.Nil(t, msg.Data, "the malformed payload is dropped")
}

type recordingJoiner struct {
	joins []string
}

func (r *recordingJoiner) Join(sessionID string) {
	r.joins = append(r.joins, sessionID)
}

func TestSendJoinsChannelOnce(t *testing.T) {
	srv := testutil.NewMarketplaceServer()
	defer srv.Close()

	joiner := &recordingJoiner{}
	te := newTestEngine(t, srv.URL(), RoleConsumer, WithChannel(joiner))
	ctx := context.Background()

	require.NoError(t, te.engine.Send(ctx, "first", ""))
	require.NoError(t, te.engine.Send(ctx, "second", ""))

	assert.Equal(t, []string{"sess-test"}, joiner.joins)
}
