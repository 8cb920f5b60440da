// Package apperr provides the typed errors that are allowed to cross the
// scoring core boundary. The HTTP layer maps them to status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindInvalidInput is a caller contract violation (malformed offer or lead,
	// out-of-range counters).
	KindInvalidInput
	// KindNoOfferConfigured means scoring was requested before an offer was set.
	KindNoOfferConfigured
	// KindNoLeadsUploaded means scoring was requested with an empty lead set.
	KindNoLeadsUploaded
	// KindNoResultsAvailable means results were requested before a scoring run,
	// or after the offer or lead set was replaced.
	KindNoResultsAvailable
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNoOfferConfigured:
		return "no_offer_configured"
	case KindNoLeadsUploaded:
		return "no_leads_uploaded"
	case KindNoResultsAvailable:
		return "no_results_available"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
	Details any    // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidInput, KindNoOfferConfigured, KindNoLeadsUploaded:
		return http.StatusBadRequest
	case KindNoResultsAvailable:
		return http.StatusNotFound
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation on the error and returns it.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails sets response details on the error and returns it.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// InvalidInput creates a caller contract violation error.
func InvalidInput(message string) *Error {
	return New(KindInvalidInput, message)
}

// NoOfferConfigured creates the error returned when scoring runs without an offer.
func NoOfferConfigured() *Error {
	return New(KindNoOfferConfigured, "no offer configured: submit an offer before scoring")
}

// NoLeadsUploaded creates the error returned when scoring runs without leads.
func NoLeadsUploaded() *Error {
	return New(KindNoLeadsUploaded, "no leads uploaded: upload leads before scoring")
}

// NoResultsAvailable creates the error returned when there is no current scoring run.
func NoResultsAvailable() *Error {
	return New(KindNoResultsAvailable, "no results available: run scoring first")
}

// Internal creates an internal server error.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err carries an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && GetKind(err) == kind
}
