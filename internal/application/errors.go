package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a create collides with an existing record.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when login or token validation fails.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when the account is blocked from logging in.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned when the session token has passed its TTL.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when the session token was explicitly revoked.
	ErrSessionRevoked = errors.New("application: session revoked")

	// ErrEnrolmentNotFound is returned when the user has no enrolment for the
	// exam that is still open for booking.
	ErrEnrolmentNotFound = errors.New("application: enrolment not found")
	// ErrNoMachineAvailable is returned when no capable, free machine exists
	// for the requested interval.
	ErrNoMachineAvailable = errors.New("application: no machine available")
	// ErrReservationInEffect is returned when a removal targets a reservation
	// that is ongoing or already past.
	ErrReservationInEffect = errors.New("application: reservation in effect")
	// ErrExternalCancellationFailed is returned when the federated host
	// refused or failed to cancel the mirrored reservation.
	ErrExternalCancellationFailed = errors.New("application: external cancellation failed")
	// ErrDataChanged is returned when a record was modified concurrently;
	// callers must retry with fresh data.
	ErrDataChanged = errors.New("application: data changed")
)

// EligibilityError reports a failed exam-specific eligibility check.
type EligibilityError struct {
	Reason string
}

// Eligibility reason codes.
const (
	ReasonTooFewSections  = "too_few_optional_sections"
	ReasonTooManySections = "too_many_optional_sections"
	ReasonNotPermitted    = "not_permitted"
)

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("application: eligibility check failed: %s", e.Reason)
}

// MismatchKind classifies a machine identity verification failure.
type MismatchKind string

const (
	// MismatchUnknownMachine means the request origin is not registered at all.
	MismatchUnknownMachine MismatchKind = "unknown_machine"
	// MismatchWrongMachine means the origin belongs to another machine in the
	// correct room.
	MismatchWrongMachine MismatchKind = "wrong_machine"
	// MismatchWrongRoom means the origin belongs to a machine in a different
	// room.
	MismatchWrongRoom MismatchKind = "wrong_room"
)

// MachineMismatchError carries the diagnostics callers need to redirect a
// student sitting at the wrong workstation.
type MachineMismatchError struct {
	Kind              MismatchKind
	Origin            string
	MachineID         string
	MachineRoomID     string
	ExpectedMachineID string
	ExpectedRoomID    string
}

func (e *MachineMismatchError) Error() string {
	return fmt.Sprintf("application: machine mismatch (%s) at origin %s", e.Kind, e.Origin)
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
