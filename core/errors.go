package core

import "errors"

var (
	// ErrNotFound is returned when a context, delegation, team or template
	// referenced by id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied is returned when an agent attempts an operation it does
	// not own: reading or writing a context it is not shared with, sharing a
	// context it did not create, transitioning a delegation it is not the
	// delegatee of, or broadcasting to a team it is not a member of.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidOperation is returned for structurally illegal requests, such
	// as removing a team's lead or completing a delegation that was never
	// accepted.
	ErrInvalidOperation = errors.New("invalid operation")
)
