// Package errs defines the error kinds every command reports.
//
// Each constructor captures a stack trace with pkg/errors. Callers print the
// single-line form by default and "%+v" (message plus stack) at DEBUG level.
package errs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a failure.
type Kind int

const (
	KindConfig Kind = iota
	KindNotFound
	KindAmbiguous
	KindValidation
	KindRequestFailed
	KindJobFailed
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindNotFound:
		return "NotFound"
	case KindAmbiguous:
		return "Ambiguous"
	case KindValidation:
		return "ValidationError"
	case KindRequestFailed:
		return "RequestFailed"
	case KindJobFailed:
		return "JobFailed"
	case KindTimeout:
		return "Timeout"
	default:
		return "Error"
	}
}

// Error is the concrete type behind every kind.
type Error struct {
	Kind    Kind
	Message string

	// IDs lists the competing candidates of an Ambiguous error.
	IDs []string

	// Status is the last observed job status for JobFailed and Timeout.
	Status string

	// Request describes a RequestFailed: "http", "network" or "decode".
	Request string

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.IDs) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(e.IDs, ", "))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err (or anything it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// As returns the *Error inside err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Line renders err as the single line printed on exit: the kind, the
// message and the source line that raised it.
func Line(err error) string {
	kind := "Error"
	if e, ok := As(err); ok {
		kind = e.Kind.String()
	}
	if at := origin(err); at != "" {
		return fmt.Sprintf("%s: %s (%s)", kind, err.Error(), at)
	}
	return fmt.Sprintf("%s: %s", kind, err.Error())
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// origin returns "file.go:line" of the first frame outside this file.
func origin(err error) string {
	var st stackTracer
	if !errors.As(err, &st) {
		return ""
	}
	for _, f := range st.StackTrace() {
		if fmt.Sprintf("%s", f) == "errs.go" {
			continue
		}
		return fmt.Sprintf("%s:%d", f, f)
	}
	return ""
}

func newError(e *Error) error {
	return errors.WithStack(e)
}

func Config(format string, args ...any) error {
	return newError(&Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)})
}

func NotFound(format string, args ...any) error {
	return newError(&Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)})
}

// Ambiguous names every competing candidate id.
func Ambiguous(ids []string, format string, args ...any) error {
	return newError(&Error{Kind: KindAmbiguous, Message: fmt.Sprintf(format, args...), IDs: ids})
}

func Validation(format string, args ...any) error {
	return newError(&Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)})
}

// RequestFailed wraps a transport, HTTP or decode failure.
func RequestFailed(request string, err error, format string, args ...any) error {
	return newError(&Error{Kind: KindRequestFailed, Request: request, Message: fmt.Sprintf(format, args...), Err: err})
}

// JobFailed reports an async job that reached a non-success terminal state.
func JobFailed(status string, format string, args ...any) error {
	return newError(&Error{Kind: KindJobFailed, Status: status, Message: fmt.Sprintf(format, args...)})
}

// Timeout reports a wait that ran out of budget; status is the last one seen.
func Timeout(status string, format string, args ...any) error {
	return newError(&Error{Kind: KindTimeout, Status: status, Message: fmt.Sprintf(format, args...)})
}
