package domain

import (
	"time"

	"github.com/google/uuid"
)

// Participant is one configured model endpoint taking part in the discussion.
// The Index fixes deterministic iteration order and never changes after the
// session is created.
type Participant struct {
	// Index is the stable ordinal (0..N-1) of the participant.
	Index int `json:"index"`

	// Name is the display name, also used to key the participant's record store.
	Name string `json:"name"`

	// Provider identifies the backend implementation (e.g. "openai-chatgpt").
	Provider string `json:"provider"`

	// Model is the provider-specific model version string.
	Model string `json:"model"`

	// Credential is an opaque reference passed through to the provider adapter.
	Credential string `json:"-"`
}

// Session is an immutable discussion definition. It owns the participant list;
// all mutable per-round state lives in the controller, never here.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`

	// Participants in fixed index order.
	Participants []Participant `json:"participants"`

	// Threshold is the convergence threshold in [0, 100]. Comparison is inclusive.
	Threshold int `json:"threshold"`

	// MaxRounds is the maximum number of interactions (>= 2).
	MaxRounds int `json:"max_rounds"`

	// ResearchPrompt seeds every buffer slot before round 1.
	ResearchPrompt string `json:"research_prompt"`
}

// NewSession creates a Session with a fresh ID and normalized participant indices.
func NewSession(title string, participants []Participant, threshold, maxRounds int, researchPrompt string) *Session {
	ps := make([]Participant, len(participants))
	copy(ps, participants)
	for i := range ps {
		ps[i].Index = i
	}
	return &Session{
		ID:             uuid.New().String(),
		Title:          title,
		CreatedAt:      time.Now(),
		Participants:   ps,
		Threshold:      threshold,
		MaxRounds:      maxRounds,
		ResearchPrompt: researchPrompt,
	}
}

// Validate checks the session parameters the controller requires at INIT.
func (s *Session) Validate() error {
	if len(s.Participants) < 2 {
		return &ConfigError{Field: "participants", Reason: "at least 2 participants are required"}
	}
	if s.Threshold < 0 || s.Threshold > 100 {
		return &ConfigError{Field: "threshold", Reason: "must be in [0, 100]"}
	}
	if s.MaxRounds < 2 {
		return &ConfigError{Field: "max_rounds", Reason: "must be at least 2"}
	}
	if s.ResearchPrompt == "" {
		return &ConfigError{Field: "research_prompt", Reason: "cannot be empty"}
	}
	for i, p := range s.Participants {
		if p.Name == "" {
			return &ConfigError{Field: "participants", Reason: "participant name cannot be empty"}
		}
		if p.Index != i {
			return &ConfigError{Field: "participants", Reason: "participant indices must be contiguous"}
		}
	}
	return nil
}
