// Package exitcode holds the process exit codes used by the workbench CLI.
// Values follow BSD sysexits.h so scripts wrapping the tool can tell input
// problems apart from data problems.
package exitcode

import "errors"

const (
	OK       = 0
	General  = 1
	Usage    = 64 // EX_USAGE
	DataErr  = 65 // EX_DATAERR
	NoInput  = 66 // EX_NOINPUT
	Software = 70 // EX_SOFTWARE
	IOErr    = 74 // EX_IOERR
	Config   = 78 // EX_CONFIG
)

// Coder is implemented by errors that know which exit code they map to.
type Coder interface {
	ExitCode() int
}

// FromError returns the exit code carried by err, OK for nil and General
// when err does not implement Coder anywhere in its chain.
func FromError(err error) int {
	if err == nil {
		return OK
	}
	var c Coder
	if errors.As(err, &c) {
		return c.ExitCode()
	}
	return General
}

// String returns a human-readable description of the exit code.
func String(code int) string {
	switch code {
	case OK:
		return "Success"
	case General:
		return "General error"
	case Usage:
		return "Command line usage error"
	case DataErr:
		return "Data format error"
	case NoInput:
		return "Cannot open input"
	case Software:
		return "Internal software error"
	case IOErr:
		return "Input/output error"
	case Config:
		return "Configuration error"
	default:
		return "Unknown error"
	}
}

type codeError struct {
	code int
	err  error
}

func (e *codeError) Error() string { return e.err.Error() }
func (e *codeError) Unwrap() error { return e.err }
func (e *codeError) ExitCode() int { return e.code }

// Wrap attaches an exit code to err. A nil err stays nil.
func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codeError{code: code, err: err}
}
