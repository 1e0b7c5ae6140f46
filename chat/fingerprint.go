package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	clienterrors "github.com/proxiehq/proxie-go/internal/errors"
	"github.com/proxiehq/proxie-go/internal/observability"
	"github.com/proxiehq/proxie-go/store"
)

const (
	// suppressWindow is how long an identical dispatch is considered a
	// duplicate of a previous one.
	suppressWindow = 3 * time.Second
	// cleanupDelay is how long a registry entry lingers before it is purged.
	cleanupDelay = 10 * time.Second
	// releaseGrace absorbs trailing duplicate events after a round trip
	// completes before the in-progress marker is released.
	releaseGrace = 1 * time.Second

	fingerprintKeyPrefix = "proxie_request_"
	fingerprintMaxRunes  = 50
)

// Fingerprint derives the short-lived identity of an outbound message from
// its truncated content, workflow action and attachment count.
func Fingerprint(content, action string, mediaCount int) string {
	if action == "" {
		action = "none"
	}
	runes := []rune(content)
	if len(runes) > fingerprintMaxRunes {
		runes = runes[:fingerprintMaxRunes]
	}
	return fmt.Sprintf("%s_%s_%d", string(runes), action, mediaCount)
}

// Guard suppresses duplicate dispatches. It keeps a time-windowed registry
// in ephemeral per-view storage and a secondary in-progress marker that
// covers two near-simultaneous sends falling just outside the wall-clock
// window but overlapping in flight.
type Guard struct {
	registry store.KV
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}

	window  time.Duration
	cleanup time.Duration
	grace   time.Duration
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithClock overrides the guard's clock. Used by tests.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// WithReleaseGrace overrides the in-progress release grace delay.
func WithReleaseGrace(d time.Duration) GuardOption {
	return func(g *Guard) { g.grace = d }
}

// NewGuard creates a fingerprint guard over the given per-view registry.
func NewGuard(registry store.KV, logger *slog.Logger, opts ...GuardOption) *Guard {
	g := &Guard{
		registry: registry,
		logger:   logger,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
		window:   suppressWindow,
		cleanup:  cleanupDelay,
		grace:    releaseGrace,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldSuppress reports whether a dispatch with this fingerprint must be
// aborted because an equal one was recorded within the suppression window.
// When it returns false the dispatch is recorded; the check-and-set happens
// synchronously, before any suspension point, so re-entrant initialization
// cannot slip two sends through.
func (g *Guard) ShouldSuppress(content, action string, mediaCount int) bool {
	fp := Fingerprint(content, action, mediaCount)
	key := fingerprintKeyPrefix + fp
	ctx := context.Background()

	if recorded, ok, _ := g.registry.Get(ctx, key); ok {
		if ts, err := strconv.ParseInt(recorded, 10, 64); err == nil {
			age := g.now().Sub(time.UnixMilli(ts))
			if age < g.window {
				g.logger.Warn("duplicate dispatch suppressed",
					slog.String("code", string(clienterrors.ErrCodeDuplicateSuppressed)),
					slog.String(observability.LogFieldFingerprint, fp),
					slog.Int64("age_ms", age.Milliseconds()),
				)
				return true
			}
		}
	}

	if err := g.registry.Set(ctx, key, strconv.FormatInt(g.now().UnixMilli(), 10)); err != nil {
		g.logger.Warn("failed to record dispatch fingerprint", slog.String("error", err.Error()))
	}
	time.AfterFunc(g.cleanup, func() {
		_ = g.registry.Delete(context.Background(), key)
	})
	return false
}

// BeginFlight marks the fingerprint as in progress. Returns false when an
// equal dispatch is still in flight, in which case the caller must abort.
func (g *Guard) BeginFlight(fp string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[fp]; busy {
		g.logger.Warn("dispatch already in flight", slog.String(observability.LogFieldFingerprint, fp))
		return false
	}
	g.inFlight[fp] = struct{}{}
	return true
}

// EndFlight releases the in-progress marker after the round trip completes,
// keeping it for a short grace delay to absorb trailing duplicate events.
func (g *Guard) EndFlight(fp string) {
	time.AfterFunc(g.grace, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.inFlight, fp)
	})
}
