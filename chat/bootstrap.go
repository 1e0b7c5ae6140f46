package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/proxiehq/proxie-go/api"
	clienterrors "github.com/proxiehq/proxie-go/internal/errors"
	"github.com/proxiehq/proxie-go/media"
	"github.com/proxiehq/proxie-go/store"
)

// Role-specific greetings inserted at view activation.
const (
	greetingConsumer   = "Hi! I'm Proxie, your personal agent for finding skilled service providers. What can I help you with today?"
	greetingProvider   = "Hi! I'm Proxie. I'm ready to help you manage your business. Would you like to see your new leads or manage active offers?"
	greetingEnrollment = "Hi! I'm Proxie. I'm ready to help you enroll as a provider. Let's start by getting to know you and your business!"
)

const (
	greetingGuardPrefix = "proxie_greeting_added_"
	initialGuardPrefix  = "proxie_initial_sent_"
	enrollmentGuardKey  = "proxie_enrollment_started"
)

// Greeting returns the greeting text for a role.
func Greeting(role Role) string {
	switch role {
	case RoleProvider:
		return greetingProvider
	case RoleEnrollment:
		return greetingEnrollment
	default:
		return greetingConsumer
	}
}

// EnrollmentAPI is the slice of the backend client bootstrap needs for the
// enrollment dialogue.
type EnrollmentAPI interface {
	StartEnrollment(ctx context.Context) (string, error)
	GetServiceCatalog(ctx context.Context) ([]api.ServiceCategory, error)
}

// Activation is the context a dialogue view is opened with. At most one of
// the contextual fields resolves into an initial dispatch.
type Activation struct {
	// Initial is a free-text first message.
	Initial string
	// RebookID references a previous booking to rebook.
	RebookID string
	// LeadID references a lead a provider wants details on.
	LeadID string
	// EditRequest asks the agent to edit an existing request.
	EditRequest *EditRequestContext
	// BookProvider asks the agent to book a specific provider.
	BookProvider *BookProviderContext
	// InitialMedia is media staged before the view opened.
	InitialMedia []media.Attachment
}

// EditRequestContext carries the request being edited.
type EditRequestContext struct {
	ServiceType string
	RawInput    string
}

// BookProviderContext carries the provider being booked.
type BookProviderContext struct {
	Name           string
	Specialization string
}

func (a Activation) empty() bool {
	return a.Initial == "" && a.RebookID == "" && a.LeadID == "" &&
		a.EditRequest == nil && a.BookProvider == nil
}

// Bootstrapper establishes role, correlation identifiers and the one-time
// greeting and initial dispatch of a dialogue view. Initialization may run
// more than once concurrently; the guard keys are checked and set before
// any suspension point so only one run has any effect.
type Bootstrapper struct {
	engine     *Engine
	views      store.KV // ephemeral per-view storage scope
	devices    store.KV
	enrollment EnrollmentAPI
	logger     *slog.Logger

	// mu serializes the guard check-and-set (the KV has no atomic
	// test-and-set of its own) and protects catalog.
	mu      sync.Mutex
	catalog []api.ServiceCategory
}

// NewBootstrapper creates a bootstrapper for the engine's session.
func NewBootstrapper(engine *Engine, views, devices store.KV, enrollment EnrollmentAPI, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{
		engine:     engine,
		views:      views,
		devices:    devices,
		enrollment: enrollment,
		logger:     logger,
	}
}

// Catalog returns the service catalog fetched during enrollment bootstrap.
func (b *Bootstrapper) Catalog() []api.ServiceCategory {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.catalog
}

// Greet inserts the role-specific greeting into the session log, at most
// once per role within the view storage scope. Returns whether the greeting
// was inserted by this call.
func (b *Bootstrapper) Greet(ctx context.Context) (bool, error) {
	role := b.engine.Session().Role()

	// Claim before appending; a concurrent second activation must see the
	// guard immediately.
	claimed, err := b.claimGuard(ctx, greetingGuardPrefix+string(role))
	if err != nil || !claimed {
		return false, err
	}

	b.engine.Session().Append(NewAssistantMessage(Greeting(role), nil, nil, false))
	return true, nil
}

// claimGuard atomically checks and sets a one-shot guard key. Returns
// whether this caller won the claim.
func (b *Bootstrapper) claimGuard(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok, err := b.views.Get(ctx, key); err != nil {
		return false, clienterrors.StoreFailed("read bootstrap guard", err)
	} else if ok {
		return false, nil
	}
	if err := b.views.Set(ctx, key, "true"); err != nil {
		return false, clienterrors.StoreFailed("set bootstrap guard", err)
	}
	return true, nil
}

// SendInitial resolves the activation context into at most one dispatch,
// guarded so a reload or re-render cannot re-fire it. For the enrollment
// role it first obtains an enrollment id and the service catalog; if that
// fails the guard is rolled back so a later activation may retry.
func (b *Bootstrapper) SendInitial(ctx context.Context, act Activation) error {
	role := b.engine.Session().Role()

	// The enrollment dialogue needs its enrollment id and the service
	// catalog before any dispatch, whether or not an activation context
	// came along with the view.
	if role == RoleEnrollment {
		if err := b.ensureEnrollment(ctx); err != nil {
			return err
		}
	}

	if act.empty() {
		return nil
	}

	key := fmt.Sprintf("%s%s_%s_%s_%s", initialGuardPrefix, role, act.Initial, act.RebookID, act.LeadID)
	claimed, err := b.claimGuard(ctx, key)
	if err != nil || !claimed {
		return err
	}

	if role == RoleEnrollment {
		if act.Initial == "" {
			return nil
		}
		b.stageInitialMedia(act)
		return b.engine.Send(ctx, act.Initial, "")
	}

	switch {
	case act.RebookID != "":
		return b.engine.Send(ctx, fmt.Sprintf("I want to rebook the previous service (Booking ID: %s)", act.RebookID), "")
	case act.LeadID != "" && role == RoleProvider:
		return b.engine.Send(ctx, fmt.Sprintf("Tell me about lead %s", act.LeadID), "")
	case act.EditRequest != nil:
		return b.engine.Send(ctx, fmt.Sprintf("I want to edit my request for %s. Here are the current details: %s",
			act.EditRequest.ServiceType, act.EditRequest.RawInput), "")
	case act.BookProvider != nil:
		specialization := act.BookProvider.Specialization
		if specialization == "" {
			specialization = "service"
		}
		return b.engine.Send(ctx, fmt.Sprintf("I want to book %s for %s", act.BookProvider.Name, specialization), "")
	case act.Initial != "":
		b.stageInitialMedia(act)
		return b.engine.Send(ctx, act.Initial, "")
	}
	return nil
}

// ensureEnrollment runs enrollment start and the catalog fetch at most once
// per view. On failure its guard rolls back so a later activation retries.
func (b *Bootstrapper) ensureEnrollment(ctx context.Context) error {
	claimed, err := b.claimGuard(ctx, enrollmentGuardKey)
	if err != nil || !claimed {
		return err
	}
	if err := b.bootstrapEnrollment(ctx); err != nil {
		if derr := b.views.Delete(ctx, enrollmentGuardKey); derr != nil {
			b.logger.Warn("failed to roll back enrollment-start guard", slog.String("error", derr.Error()))
		}
		return err
	}
	return nil
}

func (b *Bootstrapper) bootstrapEnrollment(ctx context.Context) error {
	if b.enrollment == nil {
		return clienterrors.BootstrapFailed("enrollment collaborator not configured", nil)
	}

	id, err := b.enrollment.StartEnrollment(ctx)
	if err != nil {
		return clienterrors.BootstrapFailed("start enrollment", err)
	}
	if err := b.devices.Set(ctx, store.KeyEnrollmentID, id); err != nil {
		b.logger.Warn("failed to persist enrollment id", slog.String("error", err.Error()))
	}
	b.engine.Session().SetEnrollmentID(id)

	catalog, err := b.enrollment.GetServiceCatalog(ctx)
	if err != nil {
		return clienterrors.BootstrapFailed("fetch service catalog", err)
	}
	b.mu.Lock()
	b.catalog = catalog
	b.mu.Unlock()
	return nil
}

func (b *Bootstrapper) stageInitialMedia(act Activation) {
	if len(act.InitialMedia) == 0 || b.engine.pipeline == nil {
		return
	}
	for _, att := range act.InitialMedia {
		if err := b.engine.pipeline.Restage(att); err != nil {
			b.logger.Warn("failed to stage initial media", slog.String("error", err.Error()))
		}
	}
}
