package workspace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// ErrorKind classifies workspace failures.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindNotFound
	ErrorKindInvalid
	ErrorKindConflict
	ErrorKindSecurity
	ErrorKindIO
)

// String returns the upper-case tag used in error messages.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNotFound:
		return "NOT_FOUND"
	case ErrorKindInvalid:
		return "INVALID"
	case ErrorKindConflict:
		return "CONFLICT"
	case ErrorKindSecurity:
		return "SECURITY"
	case ErrorKindIO:
		return "IO"
	default:
		return "UNKNOWN"
	}
}

// Error is returned by every Service operation.
type Error struct {
	Kind        ErrorKind `json:"kind"`
	Op          string    `json:"op"`
	Subject     string    `json:"subject,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Err         error     `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Op)
	if e.Subject != "" {
		fmt.Fprintf(&b, " %q", e.Subject)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a workspace error, or ErrorKindUnknown.
func KindOf(err error) ErrorKind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ErrorKindUnknown
}

func newError(kind ErrorKind, op, subject string, err error) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Err: err}
}

func invalid(op, format string, args ...any) *Error {
	return &Error{Kind: ErrorKindInvalid, Op: op, Err: fmt.Errorf(format, args...)}
}

// notFound builds a not-found error with up to three fuzzy matches from known.
func notFound(op, what, subject string, known []string) *Error {
	return &Error{
		Kind:        ErrorKindNotFound,
		Op:          op,
		Subject:     subject,
		Suggestions: suggest(subject, known, 3),
		Err:         fmt.Errorf("unknown %s", what),
	}
}

func suggest(pattern string, known []string, limit int) []string {
	if pattern == "" || len(known) == 0 {
		return nil
	}
	matches := fuzzy.Find(pattern, known)
	out := make([]string, 0, min(limit, len(matches)))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
