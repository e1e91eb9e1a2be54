package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateTurn is returned when a buffer slot is written twice within the
// same round. It signals an orchestration bug (e.g. a retry that escaped the
// controller), never an expected runtime condition.
var ErrDuplicateTurn = errors.New("duplicate turn for participant in this round")

// ErrParticipantNotFound is returned when a record store has no data for the
// requested participant.
var ErrParticipantNotFound = errors.New("participant not found")

// ConfigError is a fatal validation fault detected before the session starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ProviderErrorKind classifies provider failures for the retry policy.
type ProviderErrorKind string

const (
	ProviderErrTimeout   ProviderErrorKind = "timeout"
	ProviderErrRateLimit ProviderErrorKind = "rate_limit"
	ProviderErrAuth      ProviderErrorKind = "auth"
	ProviderErrUnknown   ProviderErrorKind = "unknown"
)

// ProviderError is a failure from a model backend. Transient kinds are retried
// by the controller; all kinds are terminal for that participant's turn only,
// never for the session.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
// Auth failures never heal on retry.
func (e *ProviderError) Transient() bool {
	return e.Kind == ProviderErrTimeout || e.Kind == ProviderErrRateLimit || e.Kind == ProviderErrUnknown
}

// PersistenceError is a fatal record-store fault. The session moves to
// StateAborted; data already written remains valid and readable.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
