package service

import (
	"errors"
	"strings"
)

// ErrorKind classifies why a Result failed.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindForbidden
	KindConflict
	KindPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	}
	return "unknown"
}

// Result is the outcome of a mutating operation: either a value or an ordered
// list of human-readable messages. It never carries a Go error across the
// service boundary.
type Result[T any] struct {
	Value  T
	Kind   ErrorKind
	Errors []string
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Fail[T any](kind ErrorKind, msgs ...string) Result[T] {
	return Result[T]{Kind: kind, Errors: msgs}
}

// Invalid converts an accumulated Validation into a failed Result.
func Invalid[T any](v *Validation) Result[T] {
	return Fail[T](KindValidation, v.Messages()...)
}

func (r Result[T]) IsSuccess() bool {
	return len(r.Errors) == 0
}

// Err returns nil on success, or a *ResultError describing the failure.
func (r Result[T]) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &ResultError{Kind: r.Kind, Messages: r.Errors}
}

type ResultError struct {
	Kind     ErrorKind
	Messages []string
}

func (e *ResultError) Error() string {
	return e.Kind.String() + ": " + strings.Join(e.Messages, "; ")
}

// IsKind reports whether err is a ResultError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *ResultError
	return errors.As(err, &re) && re.Kind == kind
}

// Validation accumulates rule violations so callers see every message at once.
type Validation struct {
	msgs []string
}

// Check records msg when ok is false.
func (v *Validation) Check(ok bool, msg string) *Validation {
	if !ok {
		v.msgs = append(v.msgs, msg)
	}
	return v
}

func (v *Validation) Add(msgs ...string) *Validation {
	v.msgs = append(v.msgs, msgs...)
	return v
}

// Merge appends the messages of other, preserving order.
func (v *Validation) Merge(other *Validation) *Validation {
	if other != nil {
		v.msgs = append(v.msgs, other.msgs...)
	}
	return v
}

func (v *Validation) Valid() bool {
	return len(v.msgs) == 0
}

func (v *Validation) Messages() []string {
	out := make([]string, len(v.msgs))
	copy(out, v.msgs)
	return out
}
