package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/parley-dev/parley/internal/adapters/httpapi"
	"github.com/parley-dev/parley/internal/adapters/redis"
	"github.com/parley-dev/parley/internal/adapters/sqlite"
	"github.com/parley-dev/parley/pkg/ports"
)

// ReviewOptions configures the review server.
type ReviewOptions struct {
	Dir      string
	RedisURL string
	Prefix   string
	Addr     string
	Debug    bool
}

// OpenReviewStore opens the read side of a recorded session: Redis when a
// URL is given, otherwise the SQLite session folder.
func OpenReviewStore(opts ReviewOptions) (ports.TurnReader, func() error, error) {
	if opts.RedisURL != "" {
		var storeOpts []redis.Option
		if opts.Prefix != "" {
			storeOpts = append(storeOpts, redis.WithPrefix(opts.Prefix))
		}
		store := redis.New(opts.RedisURL, "", 0, storeOpts...)
		return store, store.Close, nil
	}

	if opts.Dir == "" {
		return nil, nil, errors.New("either --dir or --redis-url is required")
	}
	store, err := sqlite.New(opts.Dir)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// RunReview serves the review UI over a recorded session until the context
// is cancelled.
func RunReview(ctx context.Context, opts ReviewOptions) error {
	logger := createLogger(opts.Debug)

	store, closeStore, err := OpenReviewStore(opts)
	if err != nil {
		return err
	}
	defer closeStore()

	title := "Consensus Review"
	if opts.Dir != "" {
		title = filepath.Base(opts.Dir)
	}

	httpServer := &http.Server{
		Addr:    opts.Addr,
		Handler: httpapi.NewHandler(store, httpapi.WithLogger(logger), httpapi.WithTitle(title)),
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage("Review server listening on http://localhost%s", opts.Addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}
