package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parley-dev/parley/pkg/domain"
)

// RunTurnStoreContract is a reusable test suite that verifies an adapter
// complies with the TurnStore semantics. Adapter packages call it from their
// own tests with a freshly initialized store.
func RunTurnStoreContract(t *testing.T, store TurnStore) {
	t.Helper()
	ctx := context.Background()

	turn := func(participant string, index, round, score int) *domain.Turn {
		return &domain.Turn{
			ParticipantIndex: index,
			Participant:      participant,
			Round:            round,
			Prompt:           "prompt",
			Response:         "first line\n\nsecond line\nthird line",
			Convergence:      &score,
			CreatedAt:        time.Now(),
		}
	}

	t.Run("UnknownParticipant", func(t *testing.T) {
		_, err := store.Turns(ctx, "nobody")
		if !errors.Is(err, domain.ErrParticipantNotFound) {
			t.Fatalf("expected ErrParticipantNotFound, got %v", err)
		}
	})

	t.Run("RecordAndRead", func(t *testing.T) {
		for round := 1; round <= 3; round++ {
			if err := store.Record(ctx, turn("alpha", 0, round, 50+round)); err != nil {
				t.Fatalf("record round %d: %v", round, err)
			}
		}
		if err := store.Record(ctx, turn("beta", 1, 1, 40)); err != nil {
			t.Fatalf("record beta: %v", err)
		}

		turns, err := store.Turns(ctx, "alpha")
		if err != nil {
			t.Fatalf("read alpha: %v", err)
		}
		if len(turns) != 3 {
			t.Fatalf("expected 3 turns, got %d", len(turns))
		}
		// Round-descending order is part of the review contract.
		for i, want := range []int{3, 2, 1} {
			if turns[i].Round != want {
				t.Errorf("turn %d: expected round %d, got %d", i, want, turns[i].Round)
			}
		}
		if turns[0].Convergence == nil || *turns[0].Convergence != 53 {
			t.Errorf("convergence not round-tripped: %v", turns[0].Convergence)
		}
	})

	t.Run("NilConvergence", func(t *testing.T) {
		failed := &domain.Turn{
			ParticipantIndex: 2,
			Participant:      "gamma",
			Round:            1,
			Prompt:           "prompt",
			Failed:           true,
			CreatedAt:        time.Now(),
		}
		if err := store.Record(ctx, failed); err != nil {
			t.Fatalf("record failed turn: %v", err)
		}
		turns, err := store.Turns(ctx, "gamma")
		if err != nil {
			t.Fatalf("read gamma: %v", err)
		}
		if len(turns) != 1 || turns[0].Convergence != nil || !turns[0].Failed {
			t.Fatalf("failed turn not preserved: %+v", turns)
		}
	})

	t.Run("DuplicateRecordRejected", func(t *testing.T) {
		if err := store.Record(ctx, turn("alpha", 0, 1, 99)); err == nil {
			t.Fatal("expected error for duplicate (participant, round) record")
		}
	})

	t.Run("Participants", func(t *testing.T) {
		names, err := store.Participants(ctx)
		if err != nil {
			t.Fatalf("participants: %v", err)
		}
		lookup := make(map[string]bool)
		for _, n := range names {
			lookup[n] = true
		}
		for _, want := range []string{"alpha", "beta", "gamma"} {
			if !lookup[want] {
				t.Errorf("participant %s missing from list", want)
			}
		}
	})
}
