package stage

import (
	"errors"
	"fmt"

	"github.com/rflorenc/scm-migration-workbench/internal/exitcode"
)

var (
	// ErrMalformedSelection is returned for a selection token that is not a
	// valid group identifier for the source type.
	ErrMalformedSelection = errors.New("malformed selection token")
	// ErrUnknownGroup is returned when a selected group id is not listed.
	ErrUnknownGroup = errors.New("selected group not found in listing")
	// ErrMissingDescendant is returned when a group references a
	// descendant that was never listed.
	ErrMissingDescendant = errors.New("descendant group not found in listing")
	// ErrParentCycle is returned when a chain of parent ids never reaches a
	// top-level group.
	ErrParentCycle = errors.New("parent group chain does not terminate")
)

// Error is a fatal staging error. It carries the offending token and the
// process exit code it maps to.
type Error struct {
	Code  int
	Token string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Token)
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode implements exitcode.Coder.
func (e *Error) ExitCode() int { return e.Code }

func malformed(token string, cause error) *Error {
	err := ErrMalformedSelection
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrMalformedSelection, cause)
	}
	return &Error{Code: exitcode.IOErr, Token: token, Err: err}
}

func unknownGroup(token string) *Error {
	return &Error{Code: exitcode.DataErr, Token: token, Err: ErrUnknownGroup}
}

func missingDescendant(id string) *Error {
	return &Error{Code: exitcode.DataErr, Token: id, Err: ErrMissingDescendant}
}

func parentCycle(id string) *Error {
	return &Error{Code: exitcode.DataErr, Token: id, Err: ErrParentCycle}
}
