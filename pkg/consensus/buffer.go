package consensus

import (
	"fmt"

	"github.com/parley-dev/parley/pkg/domain"
)

// MemoryBuffer holds each participant's most recent response, keyed by
// participant ordinal. Capacity is exactly N: a new turn overwrites its
// participant's slot, never appends, so memory stays O(N) regardless of how
// many rounds have elapsed. Full history is the turn store's responsibility.
//
// The buffer is not synchronized. The controller is its sole writer and only
// mutates it after the round's fan-in join, so no concurrent access occurs.
type MemoryBuffer struct {
	slots   []string
	written []bool
}

// NewMemoryBuffer creates a buffer of n slots, each seeded with the research
// prompt. The identical seed means round-1 prompts differ only by participant
// identity.
func NewMemoryBuffer(n int, seed string) *MemoryBuffer {
	slots := make([]string, n)
	for i := range slots {
		slots[i] = seed
	}
	return &MemoryBuffer{
		slots:   slots,
		written: make([]bool, n),
	}
}

// Len returns the fixed capacity N.
func (b *MemoryBuffer) Len() int { return len(b.slots) }

// Get returns the latest buffered response for a participant.
func (b *MemoryBuffer) Get(index int) (string, error) {
	if index < 0 || index >= len(b.slots) {
		return "", fmt.Errorf("buffer index %d out of range [0, %d)", index, len(b.slots))
	}
	return b.slots[index], nil
}

// Set overwrites a participant's slot with its newest response. Writing the
// same slot twice within one round returns domain.ErrDuplicateTurn: that is
// the guard against a provider retry silently corrupting the view peers will
// read next round.
func (b *MemoryBuffer) Set(index int, text string) error {
	if index < 0 || index >= len(b.slots) {
		return fmt.Errorf("buffer index %d out of range [0, %d)", index, len(b.slots))
	}
	if b.written[index] {
		return fmt.Errorf("participant %d: %w", index, domain.ErrDuplicateTurn)
	}
	b.slots[index] = text
	b.written[index] = true
	return nil
}

// BeginRound clears the per-round duplicate-write guard. The controller calls
// it once per round, right after taking the pre-round snapshot.
func (b *MemoryBuffer) BeginRound() {
	for i := range b.written {
		b.written[i] = false
	}
}

// Snapshot returns a read-only copy frozen at round start. Composition uses
// the snapshot, never the live buffer, so every participant in a round sees
// exactly the same peer state independent of call order or latency.
func (b *MemoryBuffer) Snapshot() []string {
	snap := make([]string, len(b.slots))
	copy(snap, b.slots)
	return snap
}
