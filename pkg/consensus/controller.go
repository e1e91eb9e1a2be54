package consensus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parley-dev/parley/internal/logging"
	"github.com/parley-dev/parley/pkg/domain"
	"github.com/parley-dev/parley/pkg/ports"
)

// RetryPolicy bounds the controller's retries for transient provider
// failures. Backoff doubles per attempt.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls per turn, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
}

// DefaultRetryPolicy mirrors the bounded policy of the original tool: a few
// attempts, short exponential backoff.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: 500 * time.Millisecond,
}

// Controller drives one session through its lifecycle:
//
//	INIT -> RUNNING -> {CONVERGED, MAX_REACHED, ABORTED} -> TERMINATED
//
// It exclusively owns the memory buffer and the round aggregates for the
// duration of the run; neither is exposed for concurrent external mutation.
type Controller struct {
	session   *domain.Session
	providers []ports.Provider
	recorder  ports.TurnRecorder
	composer  *Composer

	logger *slog.Logger
	hooks  domain.LifecycleHooks
	retry  RetryPolicy
	now    func() time.Time
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets a structured logger for round and turn progress.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) ControllerOption {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithRetryPolicy overrides the default provider retry policy.
func WithRetryPolicy(policy RetryPolicy) ControllerOption {
	return func(c *Controller) {
		if policy.MaxAttempts > 0 {
			c.retry = policy
		}
	}
}

// WithClock overrides the controller's time source (timestamps on turns).
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController validates the session parameters and assembles a controller.
// Validation failure is fatal: the session never starts.
func NewController(session *domain.Session, providers []ports.Provider, recorder ports.TurnRecorder, opts ...ControllerOption) (*Controller, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if len(providers) != len(session.Participants) {
		return nil, &domain.ConfigError{
			Field:  "providers",
			Reason: fmt.Sprintf("expected %d providers, got %d", len(session.Participants), len(providers)),
		}
	}
	if recorder == nil {
		return nil, &domain.ConfigError{Field: "store", Reason: "turn recorder is required"}
	}

	c := &Controller{
		session:   session,
		providers: providers,
		recorder:  recorder,
		composer:  NewComposer(session),
		logger:    logging.NewNop(),
		retry:     DefaultRetryPolicy,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// turnResult carries one participant's fan-out result across the join.
type turnResult struct {
	prompt   string
	response string
	err      error
	duration time.Duration
}

// Run executes rounds until convergence, the round limit, or an abort.
// The returned Outcome is always non-nil, even on error, so callers can
// report how far the discussion progressed.
func (c *Controller) Run(ctx context.Context) (*domain.Outcome, error) {
	n := len(c.session.Participants)
	buffer := NewMemoryBuffer(n, c.session.ResearchPrompt)
	outcome := &domain.Outcome{Session: c.session}

	for round := 1; round <= c.session.MaxRounds; round++ {
		c.logger.Info("round starting", "session_id", c.session.ID, "round", round)
		c.fireRoundStart(ctx, round)

		// Freeze the pre-round view before any provider is called. Every
		// participant in this round composes against this snapshot, never
		// the live buffer.
		snapshot := buffer.Snapshot()
		buffer.BeginRound()

		results := c.fanOut(ctx, round, snapshot)

		if err := ctx.Err(); err != nil {
			outcome.State = domain.StateAborted
			c.logger.Warn("session cancelled", "session_id", c.session.ID, "round", round)
			return outcome, err
		}

		// Fan-in: turns are constructed, persisted, and applied to the
		// buffer strictly in participant-index order after the join.
		scores := make(map[int]int)
		for i := range c.session.Participants {
			p := c.session.Participants[i]
			res := results[i]

			turn := &domain.Turn{
				ParticipantIndex: p.Index,
				Participant:      p.Name,
				Round:            round,
				Prompt:           res.prompt,
				CreatedAt:        c.now(),
			}
			if res.err != nil {
				turn.Failed = true
				c.logger.Warn("turn failed after retries",
					"session_id", c.session.ID, "round", round, "participant", p.Name, "err", res.err)
			} else {
				turn.Response = res.response
				turn.Convergence = ExtractConvergence(res.response)
			}

			if err := c.recorder.Record(ctx, turn); err != nil {
				perr := &domain.PersistenceError{Op: "record turn", Err: err}
				outcome.State = domain.StateAborted
				c.logger.Error("persistence failure, aborting",
					"session_id", c.session.ID, "round", round, "participant", p.Name, "err", err)
				return outcome, perr
			}

			if !turn.Failed {
				if err := buffer.Set(p.Index, turn.Response); err != nil {
					// A duplicate write here means the orchestration itself
					// is broken; stop rather than corrupt the peer view.
					outcome.State = domain.StateAborted
					return outcome, err
				}
			}
			if turn.Convergence != nil {
				scores[p.Index] = *turn.Convergence
			}

			c.fireTurn(ctx, turn, res.duration)
		}

		stat, reached := AggregateRound(c.session.Threshold, scores)
		agg := domain.RoundAggregate{Round: round, Scores: scores, Stat: stat, Reached: reached}
		outcome.Rounds = append(outcome.Rounds, agg)
		c.fireRoundComplete(ctx, &agg)
		c.logger.Info("round complete",
			"session_id", c.session.ID, "round", round, "scores", len(scores), "stat", stat, "reached", reached)

		if reached {
			outcome.State = domain.StateConverged
			return outcome, nil
		}
	}

	outcome.State = domain.StateMaxReached
	return outcome, nil
}

// fanOut issues the N provider calls for a round as parallel tasks and joins
// on all of them. Parallelism is a pure latency optimization: prompts depend
// only on the frozen snapshot, so completion order cannot influence output.
func (c *Controller) fanOut(ctx context.Context, round int, snapshot []string) []turnResult {
	results := make([]turnResult, len(c.session.Participants))

	var wg sync.WaitGroup
	for i := range c.session.Participants {
		p := c.session.Participants[i]
		prompt := c.composer.Compose(p.Index, snapshot)
		results[i].prompt = prompt

		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			response, err := c.generate(ctx, round, p, prompt)
			results[i].response = response
			results[i].err = err
			results[i].duration = time.Since(start)
		}()
	}
	wg.Wait()

	return results
}

// generate calls one provider with the bounded retry policy. Transient
// failures (timeout, rate limit, unknown) are retried with doubling backoff;
// auth failures and context cancellation are returned immediately.
func (c *Controller) generate(ctx context.Context, round int, p domain.Participant, prompt string) (string, error) {
	backoff := c.retry.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		response, err := c.providers[p.Index].Generate(ctx, prompt)
		if err == nil {
			return response, nil
		}
		lastErr = err

		var perr *domain.ProviderError
		if errors.As(err, &perr) && !perr.Transient() {
			return "", err
		}
		if ctx.Err() != nil {
			return "", err
		}
		if attempt == c.retry.MaxAttempts {
			break
		}

		c.fireRetry(ctx, round, p, attempt, err)
		c.logger.Debug("retrying provider call",
			"round", round, "participant", p.Name, "attempt", attempt, "err", err)

		select {
		case <-ctx.Done():
			return "", lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return "", lastErr
}

func (c *Controller) fireRoundStart(ctx context.Context, round int) {
	if c.hooks.OnRoundStart != nil {
		c.hooks.OnRoundStart(ctx, &domain.RoundEvent{Round: round})
	}
}

func (c *Controller) fireRoundComplete(ctx context.Context, agg *domain.RoundAggregate) {
	if c.hooks.OnRoundComplete != nil {
		c.hooks.OnRoundComplete(ctx, &domain.RoundEvent{
			Round:   agg.Round,
			Scores:  agg.Scores,
			Stat:    agg.Stat,
			Reached: agg.Reached,
		})
	}
}

func (c *Controller) fireTurn(ctx context.Context, turn *domain.Turn, duration time.Duration) {
	if c.hooks.OnTurn != nil {
		c.hooks.OnTurn(ctx, &domain.TurnEvent{
			Round:            turn.Round,
			ParticipantIndex: turn.ParticipantIndex,
			Participant:      turn.Participant,
			Failed:           turn.Failed,
			Convergence:      turn.Convergence,
			Duration:         duration,
		})
	}
}

func (c *Controller) fireRetry(ctx context.Context, round int, p domain.Participant, attempt int, err error) {
	if c.hooks.OnProviderRetry != nil {
		c.hooks.OnProviderRetry(ctx, &domain.RetryEvent{
			Round:            round,
			ParticipantIndex: p.Index,
			Participant:      p.Name,
			Attempt:          attempt,
			Err:              err,
		})
	}
}
