package consensus_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parley-dev/parley/pkg/consensus"
	"github.com/parley-dev/parley/pkg/domain"
	"github.com/parley-dev/parley/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns one canned response per call, in order.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	delay     time.Duration
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	call := p.calls
	p.calls++
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.delay):
		}
	}
	if call < len(p.errs) && p.errs[call] != nil {
		return "", p.errs[call]
	}
	if call < len(p.responses) {
		return p.responses[call], nil
	}
	return "", &domain.ProviderError{Provider: "scripted", Kind: domain.ProviderErrUnknown, Err: errors.New("script exhausted")}
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// captureStore records turns in memory and can be armed to fail.
type captureStore struct {
	mu      sync.Mutex
	turns   []domain.Turn
	failAt  int // 1-based record count at which Record starts failing; 0 = never
	records int
}

func (s *captureStore) Record(ctx context.Context, turn *domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records++
	if s.failAt > 0 && s.records >= s.failAt {
		return errors.New("disk full")
	}
	s.turns = append(s.turns, *turn)
	return nil
}

func (s *captureStore) byRound(round int) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Turn
	for _, t := range s.turns {
		if t.Round == round {
			out = append(out, t)
		}
	}
	return out
}

func agreeing(score int, opinion string) string {
	return fmt.Sprintf("%s\nI am in agreement with %d%% of the overall opinions given by my peers.", opinion, score)
}

func fastRetry() consensus.ControllerOption {
	return consensus.WithRetryPolicy(consensus.RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond})
}

func TestController_ConvergesAtRoundFour(t *testing.T) {
	session := testSession("alpha", "beta", "gamma")
	session.Threshold = 90
	session.MaxRounds = 5

	// Rounds 1-2 low, round 3 {70,95,91} -> min 70, round 4 {92,95,91} -> min 91 >= 90.
	providers := []ports.Provider{
		&scriptedProvider{responses: []string{agreeing(10, "a1"), agreeing(40, "a2"), agreeing(70, "a3"), agreeing(92, "a4")}},
		&scriptedProvider{responses: []string{agreeing(20, "b1"), agreeing(50, "b2"), agreeing(95, "b3"), agreeing(95, "b4")}},
		&scriptedProvider{responses: []string{agreeing(30, "c1"), agreeing(60, "c2"), agreeing(91, "c3"), agreeing(91, "c4")}},
	}
	store := &captureStore{}

	ctrl, err := consensus.NewController(session, providers, store, fastRetry())
	require.NoError(t, err)

	outcome, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StateConverged, outcome.State)
	require.Len(t, outcome.Rounds, 4, "controller must stop at round 4, never later")

	round3 := outcome.Rounds[2]
	assert.Equal(t, 70, round3.Stat)
	assert.False(t, round3.Reached)

	round4 := outcome.Rounds[3]
	assert.Equal(t, 91, round4.Stat)
	assert.True(t, round4.Reached)

	// One turn per participant per completed round.
	assert.Len(t, store.turns, 12)
}

func TestController_MaxReachedAfterFinalRound(t *testing.T) {
	session := testSession("alpha", "beta")
	session.MaxRounds = 2

	providers := []ports.Provider{
		&scriptedProvider{responses: []string{agreeing(10, "a1"), agreeing(20, "a2")}},
		&scriptedProvider{responses: []string{agreeing(15, "b1"), agreeing(25, "b2")}},
	}
	store := &captureStore{}

	ctrl, err := consensus.NewController(session, providers, store, fastRetry())
	require.NoError(t, err)

	outcome, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StateMaxReached, outcome.State)
	assert.Len(t, outcome.Rounds, 2, "terminal state after round 2, not before")
}

func TestController_ParticipantFailureDegradesRound(t *testing.T) {
	session := testSession("alpha", "beta", "gamma")
	session.MaxRounds = 2

	transient := &domain.ProviderError{Provider: "openai-chatgpt", Kind: domain.ProviderErrTimeout}
	failing := &scriptedProvider{errs: []error{transient, transient, transient, transient, transient, transient}}

	providers := []ports.Provider{
		&scriptedProvider{responses: []string{agreeing(50, "a1"), agreeing(60, "a2")}},
		&scriptedProvider{responses: []string{agreeing(55, "b1"), agreeing(65, "b2")}},
		failing,
	}
	store := &captureStore{}

	ctrl, err := consensus.NewController(session, providers, store, fastRetry())
	require.NoError(t, err)

	outcome, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	// The session survives and computes round 1 from the remaining scores.
	assert.Equal(t, domain.StateMaxReached, outcome.State)
	require.Len(t, outcome.Rounds, 2)
	assert.Equal(t, map[int]int{0: 50, 1: 55}, outcome.Rounds[0].Scores)
	assert.Equal(t, 50, outcome.Rounds[0].Stat)

	// The failed turn is still recorded, with no response and nil convergence.
	round1 := store.byRound(1)
	require.Len(t, round1, 3)
	gammaTurn := round1[2]
	assert.True(t, gammaTurn.Failed)
	assert.Empty(t, gammaTurn.Response)
	assert.Nil(t, gammaTurn.Convergence)

	// Round 2 prompts still show gamma's seeded position: a failed turn must
	// not corrupt the peer view.
	round2 := store.byRound(2)
	require.Len(t, round2, 3)
	assert.Contains(t, round2[0].Prompt, "gamma: "+session.ResearchPrompt)
}

func TestController_PersistenceFailureAborts(t *testing.T) {
	session := testSession("alpha", "beta")
	session.MaxRounds = 4

	providers := []ports.Provider{
		&scriptedProvider{responses: []string{agreeing(10, "a1"), agreeing(20, "a2")}},
		&scriptedProvider{responses: []string{agreeing(15, "b1"), agreeing(25, "b2")}},
	}
	// Round 1 persists fine (2 records), the first record of round 2 fails.
	store := &captureStore{failAt: 3}

	ctrl, err := consensus.NewController(session, providers, store, fastRetry())
	require.NoError(t, err)

	outcome, err := ctrl.Run(context.Background())
	require.Error(t, err)

	var perr *domain.PersistenceError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.StateAborted, outcome.State)

	// Round 1 aggregates remain reportable.
	require.Len(t, outcome.Rounds, 1)
	assert.Equal(t, 10, outcome.Rounds[0].Stat)
}

func TestController_AuthErrorNotRetried(t *testing.T) {
	session := testSession("alpha", "beta")
	session.MaxRounds = 2

	authErr := &domain.ProviderError{Provider: "anthropic-claude", Kind: domain.ProviderErrAuth}
	failing := &scriptedProvider{errs: []error{authErr, authErr}}

	providers := []ports.Provider{
		&scriptedProvider{responses: []string{agreeing(10, "a1"), agreeing(20, "a2")}},
		failing,
	}
	store := &captureStore{}

	ctrl, err := consensus.NewController(session, providers, store, fastRetry())
	require.NoError(t, err)

	outcome, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StateMaxReached, outcome.State)
	// One call per round: auth failures never heal on retry.
	assert.Equal(t, 2, failing.callCount())
}

func TestController_TransientErrorRetriedThenSucceeds(t *testing.T) {
	session := testSession("alpha", "beta")
	session.MaxRounds = 2
	session.Threshold = 50

	rateLimited := &domain.ProviderError{Provider: "openai-chatgpt", Kind: domain.ProviderErrRateLimit}
	flaky := &scriptedProvider{
		errs:      []error{rateLimited, nil},
		responses: []string{"", agreeing(90, "recovered")},
	}

	var retries int
	hooks := domain.LifecycleHooks{
		OnProviderRetry: func(ctx context.Context, e *domain.RetryEvent) { retries++ },
	}

	providers := []ports.Provider{
		&scriptedProvider{responses: []string{agreeing(95, "a1")}},
		flaky,
	}
	store := &captureStore{}

	ctrl, err := consensus.NewController(session, providers, store, fastRetry(), consensus.WithLifecycleHooks(hooks))
	require.NoError(t, err)

	outcome, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StateConverged, outcome.State)
	require.Len(t, outcome.Rounds, 1)
	assert.Equal(t, 90, outcome.Rounds[0].Stat)
	assert.Equal(t, 1, retries)
}

func TestController_PromptsComposedFromFrozenSnapshot(t *testing.T) {
	session := testSession("alpha", "beta")
	session.MaxRounds = 2

	// Alpha answers instantly, beta slowly. If composition read the live
	// buffer, beta's round-1 prompt could leak alpha's round-1 answer.
	providers := []ports.Provider{
		&scriptedProvider{responses: []string{agreeing(10, "alpha round one"), agreeing(20, "alpha round two")}},
		&scriptedProvider{delay: 30 * time.Millisecond, responses: []string{agreeing(15, "beta round one"), agreeing(25, "beta round two")}},
	}
	store := &captureStore{}

	ctrl, err := consensus.NewController(session, providers, store, fastRetry())
	require.NoError(t, err)

	_, err = ctrl.Run(context.Background())
	require.NoError(t, err)

	round1 := store.byRound(1)
	require.Len(t, round1, 2)
	betaPrompt := round1[1].Prompt
	assert.NotContains(t, betaPrompt, "alpha round one")
	assert.Contains(t, betaPrompt, "alpha: "+session.ResearchPrompt)

	// Round 2 sees round 1 positions for both peers.
	round2 := store.byRound(2)
	require.Len(t, round2, 2)
	assert.True(t, strings.Contains(round2[0].Prompt, "beta round one"))
	assert.True(t, strings.Contains(round2[1].Prompt, "alpha round one"))
}

func TestController_CancellationAborts(t *testing.T) {
	session := testSession("alpha", "beta")
	session.MaxRounds = 5

	providers := []ports.Provider{
		&scriptedProvider{delay: 5 * time.Second},
		&scriptedProvider{delay: 5 * time.Second},
	}
	store := &captureStore{}

	ctrl, err := consensus.NewController(session, providers, store, fastRetry())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcome, err := ctrl.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, domain.StateAborted, outcome.State)
	assert.Empty(t, outcome.Rounds)
}

func TestNewController_Validation(t *testing.T) {
	store := &captureStore{}
	twoProviders := []ports.Provider{&scriptedProvider{}, &scriptedProvider{}}

	t.Run("threshold out of range", func(t *testing.T) {
		session := testSession("alpha", "beta")
		session.Threshold = 150
		_, err := consensus.NewController(session, twoProviders, store)
		var cerr *domain.ConfigError
		assert.ErrorAs(t, err, &cerr)
	})

	t.Run("too few participants", func(t *testing.T) {
		session := testSession("alpha")
		_, err := consensus.NewController(session, []ports.Provider{&scriptedProvider{}}, store)
		var cerr *domain.ConfigError
		assert.ErrorAs(t, err, &cerr)
	})

	t.Run("max rounds below two", func(t *testing.T) {
		session := testSession("alpha", "beta")
		session.MaxRounds = 1
		_, err := consensus.NewController(session, twoProviders, store)
		var cerr *domain.ConfigError
		assert.ErrorAs(t, err, &cerr)
	})

	t.Run("provider count mismatch", func(t *testing.T) {
		session := testSession("alpha", "beta")
		_, err := consensus.NewController(session, []ports.Provider{&scriptedProvider{}}, store)
		var cerr *domain.ConfigError
		assert.ErrorAs(t, err, &cerr)
	})
}
