package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies a domain failure so the transport can pick a status code.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

// Error is returned by the service layer. Op names the failed operation and
// Err keeps the cause reachable through errors.Is / errors.As.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap tags err with a kind and the operation that produced it.
func Wrap(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func NewValidation(op, message string) error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

func NewNotFound(op string, err error) error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

func NewInvalidState(op string, err error) error {
	return &Error{Kind: KindInvalidState, Op: op, Err: err}
}

func NewUnauthorized(op string, err error) error {
	return &Error{Kind: KindUnauthorized, Op: op, Err: err}
}

// NewInternal wraps a storage or gateway failure. The message says which
// entity was involved so callers can decide between retry and abort.
func NewInternal(op, message string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of the outermost domain error in err's chain.
// Errors that carry no kind are internal.
func KindOf(err error) Kind {
	var de *Error
	if stderrors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// PublicMessage is the human-readable text safe to show an end user.
func PublicMessage(err error) string {
	var de *Error
	if !stderrors.As(err, &de) {
		return "Internal server error"
	}
	switch de.Kind {
	case KindInternal:
		return "Internal server error"
	case KindValidation:
		if de.Message != "" {
			return de.Message
		}
	}
	if de.Err != nil {
		return de.Err.Error()
	}
	return de.Message
}

// StatusFor maps a kind onto an HTTP status code.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var kindCodes = map[Kind]string{
	KindValidation:   ErrCodeInvalidInput,
	KindUnauthorized: ErrCodeUnauthorized,
	KindNotFound:     ErrCodeNotFound,
	KindInvalidState: ErrCodeInvalidState,
	KindUnavailable:  ErrCodeServiceUnavailable,
	KindInternal:     ErrCodeInternalError,
}

// RespondWithDomainError writes err using its kind. With exposeDetail the
// raw error chain is attached as details; admin routes enable it outside
// release mode.
func RespondWithDomainError(c *gin.Context, err error, exposeDetail bool) {
	kind := KindOf(err)
	body := NewAPIError(kindCodes[kind], PublicMessage(err))
	if exposeDetail {
		body.Details = err.Error()
	}
	RespondWithError(c, StatusFor(kind), body)
}
