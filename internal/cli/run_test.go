package cli

import (
	"context"
	"testing"
	"time"

	"github.com/parley-dev/parley/internal/adapters/memory"
	"github.com/parley-dev/parley/internal/config"
	"github.com/parley-dev/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionFolderName(t *testing.T) {
	at := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	assert.Equal(t, "Gene therapy - 20260314150926", SessionFolderName("Gene therapy", at))
}

func TestOpenRunStore(t *testing.T) {
	cfg := &config.Config{ResponsesDir: t.TempDir()}
	session := &domain.Session{ID: "s1", Title: "T", CreatedAt: time.Now()}

	t.Run("memory", func(t *testing.T) {
		store, dir, err := openRunStore(cfg, RunOptions{Store: "memory"}, session)
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, store)
		assert.Empty(t, dir)
	})

	t.Run("sqlite default", func(t *testing.T) {
		store, dir, err := openRunStore(cfg, RunOptions{}, session)
		require.NoError(t, err)
		require.NotNil(t, store)
		assert.Contains(t, dir, "T - ")
	})

	t.Run("unsupported", func(t *testing.T) {
		_, _, err := openRunStore(cfg, RunOptions{Store: "postgres"}, session)
		var cerr *domain.ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "store", cerr.Field)
	})
}

func TestMergeHooks(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnRoundStart: func(ctx context.Context, e *domain.RoundEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnRoundStart: func(ctx context.Context, e *domain.RoundEvent) { calls = append(calls, "b") },
		OnTurn:       func(ctx context.Context, e *domain.TurnEvent) { calls = append(calls, "b-turn") },
	}

	merged := mergeHooks(a, b)
	merged.OnRoundStart(context.Background(), &domain.RoundEvent{Round: 1})
	merged.OnTurn(context.Background(), &domain.TurnEvent{Round: 1})
	merged.OnProviderRetry(context.Background(), &domain.RetryEvent{})

	assert.Equal(t, []string{"a", "b", "b-turn"}, calls)
}
