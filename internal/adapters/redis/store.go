// Package redis provides a Redis-backed TurnStore for sessions shared across
// processes, such as running the mediation on one host and reviewing on
// another.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/parley-dev/parley/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.TurnStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix for session data.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "parley:session:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) participantsKey() string {
	return s.prefix + "participants"
}

func (s *Store) turnsKey(participant string) string {
	return s.prefix + "turns:" + participant
}

func (s *Store) seenKey(participant string) string {
	return s.prefix + "seen:" + participant
}

// Record appends a turn. The per-participant seen set makes a second write
// for the same round fail before anything is pushed.
func (s *Store) Record(ctx context.Context, turn *domain.Turn) error {
	added, err := s.client.SAdd(ctx, s.seenKey(turn.Participant), turn.Round).Result()
	if err != nil {
		return fmt.Errorf("failed to mark round: %w", err)
	}
	if added == 0 {
		return fmt.Errorf("turn already recorded for %s round %d", turn.Participant, turn.Round)
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, s.participantsKey(), turn.Participant)
	pipe.RPush(ctx, s.turnsKey(turn.Participant), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}

	return nil
}

// Participants lists participant names in sorted order.
func (s *Store) Participants(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.participantsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Turns returns a participant's turns in round-descending order. Turns are
// pushed in round order, so reversing the list is enough.
func (s *Store) Turns(ctx context.Context, participant string) ([]domain.Turn, error) {
	exists, err := s.client.SIsMember(ctx, s.participantsKey(), participant).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if !exists {
		return nil, domain.ErrParticipantNotFound
	}

	raw, err := s.client.LRange(ctx, s.turnsKey(participant), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}

	turns := make([]domain.Turn, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var turn domain.Turn
		if err := json.Unmarshal([]byte(raw[i]), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}

	return turns, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
