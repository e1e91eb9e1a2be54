// Package memory provides an in-memory TurnStore, used by tests and as the
// reference implementation of the store contract.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/parley-dev/parley/pkg/domain"
)

// Store implements ports.TurnStore with plain maps.
type Store struct {
	mu    sync.RWMutex
	turns map[string][]domain.Turn
	seen  map[string]bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		turns: make(map[string][]domain.Turn),
		seen:  make(map[string]bool),
	}
}

func turnKey(participant string, round int) string {
	return fmt.Sprintf("%s/%d", participant, round)
}

// Record appends a turn, rejecting duplicate (participant, round) pairs.
func (s *Store) Record(ctx context.Context, turn *domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := turnKey(turn.Participant, turn.Round)
	if s.seen[key] {
		return fmt.Errorf("turn already recorded for %s round %d", turn.Participant, turn.Round)
	}
	s.seen[key] = true
	s.turns[turn.Participant] = append(s.turns[turn.Participant], *turn)
	return nil
}

// Participants lists participant names in sorted order.
func (s *Store) Participants(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.turns))
	for name := range s.turns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Turns returns a participant's turns in round-descending order.
func (s *Store) Turns(ctx context.Context, participant string) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.turns[participant]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}

	out := make([]domain.Turn, len(stored))
	copy(out, stored)
	sort.Slice(out, func(i, j int) bool { return out[i].Round > out[j].Round })
	return out, nil
}
