package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/parley-dev/parley"
	"github.com/parley-dev/parley/internal/adapters/memory"
	"github.com/parley-dev/parley/internal/adapters/provider"
	"github.com/parley-dev/parley/internal/adapters/redis"
	"github.com/parley-dev/parley/internal/adapters/sqlite"
	"github.com/parley-dev/parley/internal/config"
	"github.com/parley-dev/parley/internal/metrics"
	"github.com/parley-dev/parley/internal/presentation/tui"
	"github.com/parley-dev/parley/pkg/domain"
	"github.com/parley-dev/parley/pkg/ports"
)

// RunOptions configures one mediation run.
type RunOptions struct {
	ConfigPath     string
	Title          string
	ResearchPrompt string
	MaxRounds      int
	Store          string // "sqlite", "redis", or "memory"
	RedisURL       string
	MetricsAddr    string
	Render         bool
	Quiet          bool
	Debug          bool
}

// SessionFolderName builds the per-run folder: "<title> - <timestamp>".
func SessionFolderName(title string, at time.Time) string {
	return fmt.Sprintf("%s - %s", title, at.Format("20060102150405"))
}

// RunMediation wires config, providers, and a store into a mediation run
// and reports the outcome.
func RunMediation(ctx context.Context, opts RunOptions) error {
	logger := createLogger(opts.Debug)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	session := domain.NewSession(opts.Title, cfg.Participants(), cfg.ConvergenceThreshold, opts.MaxRounds, opts.ResearchPrompt)

	providers, err := provider.ForConfig(cfg)
	if err != nil {
		return err
	}

	store, sessionDir, err := openRunStore(cfg, opts, session)
	if err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	hookSets := []domain.LifecycleHooks{createDebugHooks(logger)}
	if !opts.Quiet {
		hookSets = append(hookSets, progressHooks())
	}
	if opts.MetricsAddr != "" {
		collectors := metrics.New()
		hookSets = append(hookSets, collectors.Hooks())
		go func() {
			logger.Info("Metrics server listening", "address", opts.MetricsAddr)
			if err := http.ListenAndServe(opts.MetricsAddr, collectors.Handler()); err != nil {
				logger.Error("Metrics server failed", "err", err)
			}
		}()
	}

	m, err := parley.New(session,
		parley.WithProviders(providers...),
		parley.WithStore(store),
		parley.WithLogger(logger),
		parley.WithLifecycleHooks(mergeHooks(hookSets...)),
	)
	if err != nil {
		return err
	}

	if !opts.Quiet {
		printSystemMessage("Session %q: %d participants, threshold %d%%, up to %d rounds.",
			session.Title, len(session.Participants), session.Threshold, session.MaxRounds)
	}

	outcome, runErr := m.Run(ctx)

	if !opts.Quiet {
		reportOutcome(outcome)
	}
	if opts.Render && outcome.State != domain.StateAborted {
		renderFinalPositions(ctx, store, outcome)
	}
	if sessionDir != "" && !opts.Quiet {
		printSystemMessage("Transcript saved to %q. Run 'parley review --dir %q' to inspect it.", sessionDir, sessionDir)
	}

	if runErr != nil && errors.Is(runErr, context.Canceled) {
		return nil // interrupted by the user
	}
	return runErr
}

// openRunStore selects the persistence backend. SQLite writes to a fresh
// session folder; the returned directory is empty for the other backends.
func openRunStore(cfg *config.Config, opts RunOptions, session *domain.Session) (ports.TurnStore, string, error) {
	switch opts.Store {
	case "memory":
		return memory.New(), "", nil
	case "redis":
		addr := opts.RedisURL
		if addr == "" {
			addr = "localhost:6379"
		}
		return redis.New(addr, "", 0, redis.WithPrefix("parley:"+session.ID+":")), "", nil
	case "", "sqlite":
		dir := filepath.Join(cfg.ResponsesDir, SessionFolderName(session.Title, session.CreatedAt))
		store, err := sqlite.New(dir)
		if err != nil {
			return nil, "", err
		}
		return store, dir, nil
	default:
		return nil, "", &domain.ConfigError{
			Field:  "store",
			Reason: fmt.Sprintf("unsupported store %q (expected sqlite, redis, or memory)", opts.Store),
		}
	}
}

func reportOutcome(outcome *domain.Outcome) {
	switch outcome.State {
	case domain.StateConverged:
		final := outcome.Final()
		printSystemMessage("Consensus reached in round %d (panel minimum %d%%).", final.Round, final.Stat)
	case domain.StateMaxReached:
		printSystemMessage("Round limit reached after %d rounds without consensus.", len(outcome.Rounds))
	case domain.StateAborted:
		printSystemMessage("Session aborted after %d completed rounds.", len(outcome.Rounds))
	}
}

// renderFinalPositions prints each participant's latest response as styled
// markdown.
func renderFinalPositions(ctx context.Context, store ports.TurnStore, outcome *domain.Outcome) {
	render := tui.NewRenderer()

	for _, p := range outcome.Session.Participants {
		turns, err := store.Turns(ctx, p.Name)
		if err != nil || len(turns) == 0 {
			continue
		}

		latest := turns[0]
		if latest.Failed {
			printSystemMessage("%s: no final position (last round failed)", p.Name)
			continue
		}

		printSystemMessage("Final position of %s (round %d):", p.Name, latest.Round)
		out, err := render(latest.Response)
		if err != nil {
			out = latest.Response
		}
		fmt.Println(out)
	}
}
