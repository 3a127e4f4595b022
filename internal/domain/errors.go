package domain

import (
	"errors"
	"fmt"
)

// ErrAuthenticationRequired means the requested action needs a logged-in user.
var ErrAuthenticationRequired = errors.New("authentication required")

// Slot names used by MissingSlotError.
const (
	SlotCity = "city"
	SlotDays = "days"
)

// MissingSlotError describes a slot that could not be resolved from the
// message or the conversation context. It becomes a clarifying question.
type MissingSlotError struct {
	Slot string
	City string // known city when Slot is "days"
}

func (e *MissingSlotError) Error() string {
	return fmt.Sprintf("missing slot %q", e.Slot)
}

// ProviderError wraps a failure of an external collaborator.
type ProviderError struct {
	Provider string // "forecast", "report", "phrase"
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
