package domain

import (
	"context"
	"time"
)

// RoundEvent describes the start or completion of a discussion round.
type RoundEvent struct {
	Round   int         `json:"round"`
	Scores  map[int]int `json:"scores,omitempty"`
	Stat    int         `json:"stat,omitempty"`
	Reached bool        `json:"reached,omitempty"`
}

// TurnEvent describes one participant's completed turn within a round.
type TurnEvent struct {
	Round            int           `json:"round"`
	ParticipantIndex int           `json:"participant_index"`
	Participant      string        `json:"participant"`
	Failed           bool          `json:"failed,omitempty"`
	Convergence      *int          `json:"convergence,omitempty"`
	Duration         time.Duration `json:"duration"`
}

// RetryEvent describes a retried provider call.
type RetryEvent struct {
	Round            int    `json:"round"`
	ParticipantIndex int    `json:"participant_index"`
	Participant      string `json:"participant"`
	Attempt          int    `json:"attempt"`
	Err              error  `json:"-"`
}

// LifecycleHooks defines callbacks for controller observability.
// All hooks are optional; nil hooks are skipped.
type LifecycleHooks struct {
	OnRoundStart    func(context.Context, *RoundEvent)
	OnRoundComplete func(context.Context, *RoundEvent)
	OnTurn          func(context.Context, *TurnEvent)
	OnProviderRetry func(context.Context, *RetryEvent)
}
