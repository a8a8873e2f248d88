package workflow

import "errors"

var (
	// ErrBusy is returned when an operation is attempted while an upload or
	// chunk request is in flight. State is left untouched.
	ErrBusy = errors.New("another operation is in progress")

	// ErrPreconditionFailure matches every error raised before a request is
	// sent: missing file, missing upload, missing catalog, bad parameters.
	ErrPreconditionFailure = errors.New("precondition failed")

	ErrNoFile          = precondition("no file selected")
	ErrNoDocument      = precondition("no document uploaded")
	ErrNoCatalog       = precondition("strategy catalog not loaded")
	ErrUnknownStrategy = precondition("unknown strategy")
)

// PreconditionError keeps a plain user-facing message while still matching
// ErrPreconditionFailure.
type PreconditionError struct {
	msg string
	err error
}

func precondition(msg string) *PreconditionError {
	return &PreconditionError{msg: msg}
}

func wrapPrecondition(err error) *PreconditionError {
	return &PreconditionError{msg: err.Error(), err: err}
}

func (e *PreconditionError) Error() string { return e.msg }

func (e *PreconditionError) Unwrap() error { return e.err }

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionFailure
}
