package domain

import (
	"strings"
	"time"
)

// TerminalState is the absorbing result of a session run.
type TerminalState string

const (
	// StateConverged means a round's aggregate met the threshold.
	StateConverged TerminalState = "converged"

	// StateMaxReached means the round limit was hit without convergence.
	StateMaxReached TerminalState = "max_reached"

	// StateAborted means an unrecoverable configuration or persistence fault
	// stopped the session. Turns already persisted remain valid.
	StateAborted TerminalState = "aborted"
)

// Turn is one participant's record for a given round. It is created exactly
// once per participant per round and is immutable thereafter.
type Turn struct {
	ParticipantIndex int    `json:"participant_index"`
	Participant      string `json:"participant"`
	Round            int    `json:"round"`

	Prompt   string `json:"prompt"`
	Response string `json:"response"`

	// Convergence is the extracted percentage, or nil when extraction failed
	// or the provider call did not produce a response.
	Convergence *int `json:"convergence"`

	// Failed marks a turn whose provider call exhausted all retries.
	// Response text is absent for failed turns.
	Failed bool `json:"failed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Preview returns the review-UI summary of the response: the first two
// non-empty lines, or the first 100 characters when fewer lines exist.
func (t *Turn) Preview() string {
	var lines []string
	for _, line := range strings.Split(t.Response, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
		if len(lines) == 2 {
			return strings.Join(lines, "\n")
		}
	}
	if len(t.Response) > 100 {
		return t.Response[:100] + "..."
	}
	return t.Response
}

// RoundAggregate summarizes one round's convergence evidence.
type RoundAggregate struct {
	Round int `json:"round"`

	// Scores maps participant index to that round's extracted percentage.
	// Entries are absent when extraction failed or the turn failed.
	Scores map[int]int `json:"scores"`

	// Stat is the representative statistic: the minimum of all present scores.
	// Zero when no scores are present.
	Stat int `json:"stat"`

	// Reached reports whether this round satisfied the termination policy.
	Reached bool `json:"reached"`
}

// Outcome is what a session run returns to its caller, even on early
// termination, so progress can always be reported.
type Outcome struct {
	State   TerminalState    `json:"state"`
	Rounds  []RoundAggregate `json:"rounds"`
	Session *Session         `json:"session"`
}

// Final returns the last computed RoundAggregate, or nil when the session
// aborted before completing a round.
func (o *Outcome) Final() *RoundAggregate {
	if len(o.Rounds) == 0 {
		return nil
	}
	return &o.Rounds[len(o.Rounds)-1]
}
