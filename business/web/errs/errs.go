// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/database"
	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/state"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap gives access to the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// FromLedger wraps a ledger error with the status a client should see.
// Errors the ledger doesn't name are returned untouched.
func FromLedger(err error) error {
	switch {
	case errors.Is(err, database.ErrInsufficientBalance),
		errors.Is(err, database.ErrInvalidAmount),
		errors.Is(err, database.ErrSelfTransfer):
		return NewTrusted(err, http.StatusBadRequest)

	case errors.Is(err, database.ErrUnverifiedTransaction):
		return NewTrusted(err, http.StatusUnauthorized)

	case errors.Is(err, database.ErrDuplicateTransaction):
		return NewTrusted(err, http.StatusConflict)

	case errors.Is(err, state.ErrMiningCancelled),
		errors.Is(err, state.ErrResolveInProgress):
		return NewTrusted(err, http.StatusConflict)

	case errors.Is(err, database.ErrChainLinkageBroken),
		errors.Is(err, database.ErrDigestMismatch),
		errors.Is(err, database.ErrProofOfWorkUnsatisfied),
		errors.Is(err, database.ErrMerkleRootMismatch),
		errors.Is(err, database.ErrNegativeBalanceReplay),
		errors.Is(err, database.ErrInvalidReward):
		return NewTrusted(err, http.StatusNotAcceptable)
	}

	return err
}
