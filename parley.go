package parley

import (
	"context"
	"log/slog"
	"time"

	"github.com/parley-dev/parley/internal/adapters/memory"
	"github.com/parley-dev/parley/internal/logging"
	"github.com/parley-dev/parley/pkg/consensus"
	"github.com/parley-dev/parley/pkg/domain"
	"github.com/parley-dev/parley/pkg/ports"
)

// Version is the release version. Overridden via ldflags at build time.
var Version = "0.2.0"

// Mediator is the high-level entry point for the Parley library.
// It wraps the consensus controller and provides a simplified API for
// consumers embedding the mediation loop.
type Mediator struct {
	session   *domain.Session
	providers []ports.Provider
	store     ports.TurnStore
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	retry     consensus.RetryPolicy
	now       func() time.Time

	controller *consensus.Controller
}

// Option defines a functional option for configuring the Mediator.
type Option func(*Mediator)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mediator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithStore injects the turn store. Defaults to an in-memory store.
func WithStore(store ports.TurnStore) Option {
	return func(m *Mediator) {
		m.store = store
	}
}

// WithProviders injects the model providers, one per participant in
// participant-index order.
func WithProviders(providers ...ports.Provider) Option {
	return func(m *Mediator) {
		m.providers = providers
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Mediator) {
		m.hooks = hooks
	}
}

// WithRetryPolicy overrides the bounded retry policy for provider calls.
func WithRetryPolicy(policy consensus.RetryPolicy) Option {
	return func(m *Mediator) {
		m.retry = policy
	}
}

// WithClock overrides the time source used for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Mediator) {
		m.now = now
	}
}

// New validates the session and assembles a Mediator.
func New(session *domain.Session, opts ...Option) (*Mediator, error) {
	m := &Mediator{
		session: session,
		logger:  logging.NewNop(),
		retry:   consensus.DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		m.store = memory.New()
	}

	ctrlOpts := []consensus.ControllerOption{
		consensus.WithLogger(m.logger),
		consensus.WithLifecycleHooks(m.hooks),
		consensus.WithRetryPolicy(m.retry),
	}
	if m.now != nil {
		ctrlOpts = append(ctrlOpts, consensus.WithClock(m.now))
	}

	controller, err := consensus.NewController(session, m.providers, m.store, ctrlOpts...)
	if err != nil {
		return nil, err
	}
	m.controller = controller

	return m, nil
}

// Run executes the mediation until convergence, the round limit, or an
// abort. The returned Outcome is always non-nil.
func (m *Mediator) Run(ctx context.Context) (*domain.Outcome, error) {
	return m.controller.Run(ctx)
}

// Store returns the turn store backing this mediation, for review access.
func (m *Mediator) Store() ports.TurnStore {
	return m.store
}
