package store

import (
	"errors"
	"fmt"
)

// Kind classifies store failures. Every kind is fatal to the generator run
// that hit it.
type Kind int

// Failure kinds.
const (
	KindConfig Kind = iota + 1
	KindLock
	KindRead
	KindWrite
	KindOverflow
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindLock:
		return "lock"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindOverflow:
		return "overflow"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrOverflow is wrapped by the error returned when the counter cannot be
// incremented without leaving the 64-bit range.
var ErrOverflow = errors.New("counter overflow")

// Error describes a store failure together with the action that recovers
// from it.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := "typeid store: " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if hint := e.hint(); hint != "" {
		msg += " (" + hint + ")"
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) hint() string {
	switch e.Kind {
	case KindConfig:
		return "set " + EnvDir + " to the directory that should hold the typeid counter"
	case KindLock:
		return "if no other typeidgen is running, delete the typeid directory and regenerate"
	case KindRead:
		return "the counter was left unchanged; fix access to the counter file, or delete the typeid directory and regenerate"
	case KindWrite:
		return "check permissions of the typeid directory, or delete it and regenerate"
	case KindOverflow:
		return "delete the typeid directory or reduce the number of annotated declarations"
	default:
		return ""
	}
}

// IsKind reports whether err is a store Error of kind k.
func IsKind(err error, k Kind) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}

	return se.Kind == k
}
