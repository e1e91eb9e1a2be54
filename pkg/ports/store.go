package ports

import (
	"context"

	"github.com/parley-dev/parley/pkg/domain"
)

// TurnRecorder is the persistence sink for completed turns. Records are
// append-only: one logical store per participant, round order preserved.
type TurnRecorder interface {
	// Record appends a turn. Appending twice for the same (participant, round)
	// is an error.
	Record(ctx context.Context, turn *domain.Turn) error
}

// TurnReader exposes stored turns to the review consumer.
type TurnReader interface {
	// Participants lists participant names that have stored turns.
	Participants(ctx context.Context) ([]string, error)

	// Turns returns a participant's turns in round-descending order.
	// Returns domain.ErrParticipantNotFound for unknown participants.
	Turns(ctx context.Context, participant string) ([]domain.Turn, error)
}

// TurnStore combines recording and review access. Adapters implement both
// sides over the same backing storage.
type TurnStore interface {
	TurnRecorder
	TurnReader
}
