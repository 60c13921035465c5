// Package ownererr defines the engine's typed error model: one Kind per
// failure mode the specification distinguishes, with a process exit code
// derived from the kind rather than guessed at each call site.
package ownererr

import (
	"fmt"
	"runtime"
	"strings"
)

// Kind categorizes an engine failure.
type Kind int

const (
	// Source indicates the commit stream producer failed.
	Source Kind = iota
	// Parse indicates a header was truncated or a date was unparseable.
	Parse
	// Config indicates a required parameter was missing or contradictory.
	Config
	// NotFound indicates a substring/id lookup returned nothing.
	NotFound
	// Ambiguous indicates a substring lookup returned multiple candidates.
	Ambiguous
	// MissingArtifact indicates a downstream operation needs an artifact
	// the build did not produce.
	MissingArtifact
)

func (k Kind) String() string {
	switch k {
	case Source:
		return "SOURCE"
	case Parse:
		return "PARSE"
	case Config:
		return "CONFIG"
	case NotFound:
		return "NOT_FOUND"
	case Ambiguous:
		return "AMBIGUOUS"
	case MissingArtifact:
		return "MISSING_ARTIFACT"
	default:
		return "UNKNOWN"
	}
}

// Error is the engine's structured error type. Every error the engine
// surfaces at a process boundary is one of these.
type Error struct {
	Kind       Kind
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
	// Candidates holds the up-to-10 matches for an Ambiguous error.
	Candidates []string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if len(e.Candidates) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.Candidates, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by Kind so callers can do errors.Is(err, ownererr.New(ownererr.NotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithContext attaches a diagnostic key/value pair and returns the receiver.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ExitCode maps the error's kind onto the process exit codes in §6: a
// Source failure is a runtime failure (1); everything else is bad input
// or a missing prerequisite for a downstream query (2).
func (e *Error) ExitCode() int {
	if e.Kind == Source {
		return 1
	}
	return 2
}

// DetailedString renders kind, message, cause, context, and stack trace
// for diagnostic logging (not for the textual diagnostic printed at the
// process boundary, which uses Error()).
func (e *Error) DetailedString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", e.Kind, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&sb, "caused by: %v\n", e.Cause)
	}
	for k, v := range e.Context {
		fmt.Fprintf(&sb, "  %s: %v\n", k, v)
	}
	if e.StackTrace != "" {
		fmt.Fprintf(&sb, "stack:\n%s\n", e.StackTrace)
	}
	return sb.String()
}

func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		fmt.Fprintf(&sb, "  %s:%d %s\n", file, line, fn.Name())
	}
	return sb.String()
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, StackTrace: captureStackTrace(2)}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates an error of the given kind around an existing cause.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err, StackTrace: captureStackTrace(2)}
}

// Wrapf creates an error of the given kind around an existing cause with
// a formatted message.
func Wrapf(err error, kind Kind, format string, args ...interface{}) *Error {
	return Wrap(err, kind, fmt.Sprintf(format, args...))
}

// AmbiguousWith builds an Ambiguous error enumerating up to 10 candidates,
// per the query engine's substring-resolution contract.
func AmbiguousWith(message string, candidates []string) *Error {
	capped := candidates
	if len(capped) > 10 {
		capped = capped[:10]
	}
	return &Error{Kind: Ambiguous, Message: message, Candidates: capped, StackTrace: captureStackTrace(2)}
}

// ExitCode returns the process exit code for any error, defaulting to 1
// for errors that are not *Error (unexpected internal failures).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := err.(*Error); ok {
		return e.ExitCode()
	}
	return 1
}

// KindOf returns the Kind of err, or -1 if err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return -1
}
