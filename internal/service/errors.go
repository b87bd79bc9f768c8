package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dewmini3/CakeCustomizing/internal/redisclient"
	"github.com/dewmini3/CakeCustomizing/internal/store"
)

// Kind classifies a service failure
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindDuplicate
	KindInsufficientStock
	KindStoreUnavailable
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a classified failure with a caller-facing message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func duplicateError(format string, args ...interface{}) error {
	return &Error{Kind: KindDuplicate, Message: fmt.Sprintf(format, args...)}
}

// storeError classifies a store failure. Not-found and duplicate sentinels keep
// their meaning; deadlines become timeouts and everything else is unavailability.
func storeError(message string, err error) error {
	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return err
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: message, Err: err}
	case errors.Is(err, store.ErrDuplicate):
		return &Error{Kind: KindDuplicate, Message: message, Err: err}
	case errors.Is(err, store.ErrConditionFailed):
		return &Error{Kind: KindInsufficientStock, Message: message, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, redisclient.ErrLockTimeout):
		return &Error{Kind: KindTimeout, Message: message, Err: err}
	default:
		return &Error{Kind: KindStoreUnavailable, Message: message, Err: err}
	}
}

// KindOf returns the kind of err, or 0 when err is not classified
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return 0
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return err.Error()
}
