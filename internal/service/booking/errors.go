package booking

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/hallbook/internal/domain"
	"github.com/kirinyoku/hallbook/internal/repository"
	"github.com/kirinyoku/hallbook/internal/schedule"
)

// Kind classifies service errors so callers can react without parsing messages.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindLookupFailed Kind = "LOOKUP_FAILED"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindStorage      Kind = "STORAGE_FAILURE"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrLookupFailed = errors.New("lookup failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("booking not found")
	ErrConflict     = errors.New("hall is already booked for an overlapping time")
	ErrStorage      = errors.New("storage failure")
)

var sentinels = map[Kind]error{
	KindValidation:   ErrValidation,
	KindLookupFailed: ErrLookupFailed,
	KindUnauthorized: ErrUnauthorized,
	KindNotFound:     ErrNotFound,
	KindConflict:     ErrConflict,
	KindStorage:      ErrStorage,
}

// Error is returned by every Service method. errors.Is(err, ErrConflict) and
// friends match on Kind.
type Error struct {
	Kind    Kind
	Message string
	// Conflicts lists the existing occurrences a rejected write collided with,
	// when the store could name them.
	Conflicts []domain.Occurrence
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the Kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func validationError(format string, args ...any) *Error {
	return newError(KindValidation, fmt.Sprintf(format, args...), nil)
}

// classify maps errors from lower layers onto service kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	switch {
	case errors.Is(err, schedule.ErrNoApplicableSlots):
		return newError(KindLookupFailed, schedule.ErrNoApplicableSlots.Error(), err)
	case errors.Is(err, schedule.ErrStartDate),
		errors.Is(err, schedule.ErrEventDays),
		errors.Is(err, schedule.ErrBufferDays),
		errors.Is(err, schedule.ErrNoHalls),
		errors.Is(err, schedule.ErrNoSlots):
		return newError(KindValidation, rootMessage(err), err)
	case errors.Is(err, repository.ErrOverlap):
		return newError(KindConflict, ErrConflict.Error(), err)
	case errors.Is(err, repository.ErrTxAborted):
		return newError(KindConflict, "booking changed concurrently, retry the request", err)
	case errors.Is(err, repository.ErrNotFound):
		return newError(KindNotFound, ErrNotFound.Error(), err)
	case errors.Is(err, repository.ErrReference):
		return newError(KindLookupFailed, "referenced hall or slot does not exist", err)
	}

	return newError(KindStorage, "", err)
}

func rootMessage(err error) string {
	for _, s := range []error{
		schedule.ErrStartDate, schedule.ErrEventDays, schedule.ErrBufferDays,
		schedule.ErrNoHalls, schedule.ErrNoSlots,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}
