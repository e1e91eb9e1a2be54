package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/parley-dev/parley/internal/logging"
	"github.com/parley-dev/parley/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout progress UI).
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

// progressHooks prints round and turn progress to stdout for interactive runs.
func progressHooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRoundStart: func(ctx context.Context, e *domain.RoundEvent) {
			printSystemMessage("Round %d: querying participants...", e.Round)
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			switch {
			case e.Failed:
				printSystemMessage("  %s: failed this round", e.Participant)
			case e.Convergence != nil:
				printSystemMessage("  %s: %d%% agreement (%.1fs)", e.Participant, *e.Convergence, e.Duration.Seconds())
			default:
				printSystemMessage("  %s: no agreement statement found (%.1fs)", e.Participant, e.Duration.Seconds())
			}
		},
		OnRoundComplete: func(ctx context.Context, e *domain.RoundEvent) {
			if len(e.Scores) < 2 {
				printSystemMessage("Round %d complete: not enough scores to evaluate convergence", e.Round)
				return
			}
			printSystemMessage("Round %d complete: panel minimum %d%%", e.Round, e.Stat)
		},
	}
}

// createDebugHooks logs lifecycle events through the structured logger.
func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRoundStart: func(ctx context.Context, e *domain.RoundEvent) {
			logger.Debug("Round Start", "round", e.Round)
		},
		OnRoundComplete: func(ctx context.Context, e *domain.RoundEvent) {
			logger.Debug("Round Complete", "round", e.Round, "stat", e.Stat, "reached", e.Reached)
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Debug("Turn", "round", e.Round, "participant", e.Participant, "failed", e.Failed)
		},
		OnProviderRetry: func(ctx context.Context, e *domain.RetryEvent) {
			logger.Debug("Provider Retry", "round", e.Round, "participant", e.Participant, "attempt", e.Attempt, "err", e.Err)
		},
	}
}

// mergeHooks fans one lifecycle event out to every hook set.
func mergeHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRoundStart: func(ctx context.Context, e *domain.RoundEvent) {
			for _, h := range sets {
				if h.OnRoundStart != nil {
					h.OnRoundStart(ctx, e)
				}
			}
		},
		OnRoundComplete: func(ctx context.Context, e *domain.RoundEvent) {
			for _, h := range sets {
				if h.OnRoundComplete != nil {
					h.OnRoundComplete(ctx, e)
				}
			}
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			for _, h := range sets {
				if h.OnTurn != nil {
					h.OnTurn(ctx, e)
				}
			}
		},
		OnProviderRetry: func(ctx context.Context, e *domain.RetryEvent) {
			for _, h := range sets {
				if h.OnProviderRetry != nil {
					h.OnProviderRetry(ctx, e)
				}
			}
		},
	}
}
