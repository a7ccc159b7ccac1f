package usecase

import "fmt"

type ErrorKind string

const (
	ErrorInput    ErrorKind = "INPUT_ERROR"
	ErrorParse    ErrorKind = "PARSE_ERROR"
	ErrorUpstream ErrorKind = "UPSTREAM_ERROR"
	ErrorStorage  ErrorKind = "STORAGE_ERROR"
)

// Error is returned by every stage of the summarize pipeline. Message is the
// caller-facing text; Err is the underlying cause, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
