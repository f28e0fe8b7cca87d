package storage

import (
	"errors"
	"fmt"
	"regexp"
)

// Error kinds. Match with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrUnsupported     = errors.New("not supported in this mode")
)

// Error represents a failed storage operation.
type Error struct {
	Kind error  // one of the sentinels above
	Op   string // "get", "delete", "rename", "append", ...
	ID   string
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("storage %s", e.Op)
	if e.ID != "" {
		msg += fmt.Sprintf(" %q", e.ID)
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID rejects identifiers that could escape the storage directory.
func ValidateID(op, id string) error {
	if !sessionIDPattern.MatchString(id) {
		return &Error{Kind: ErrInvalidArgument, Op: op, ID: id, Err: errors.New("session id must match [a-zA-Z0-9_-]+")}
	}
	return nil
}
