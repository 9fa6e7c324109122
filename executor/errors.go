package executor

import (
	"errors"
	"strings"
)

// Kind classifies why a test case did not produce a status code.
type Kind string

const (
	KindSourceRead        Kind = "source-read"
	KindLoad              Kind = "load"
	KindLink              Kind = "link"
	KindMissingEntryPoint Kind = "missing-entry-point"
	KindTrap              Kind = "trap"
	KindTimeout           Kind = "timeout"
)

// Kinds lists every failure classification.
var Kinds = []Kind{KindSourceRead, KindLoad, KindLink, KindMissingEntryPoint, KindTrap, KindTimeout}

// Label returns the human-readable classification, e.g. "LinkError".
func (k Kind) Label() string {
	switch k {
	case KindSourceRead:
		return "SourceReadError"
	case KindLoad:
		return "LoadError"
	case KindLink:
		return "LinkError"
	case KindMissingEntryPoint:
		return "MissingEntryPointError"
	case KindTrap:
		return "TrapError"
	case KindTimeout:
		return "TimeoutError"
	}
	return string(k)
}

// Error is a classified failure from loading or running a module.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Label())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is matching by kind.
var (
	ErrSourceRead        = &Error{Kind: KindSourceRead}
	ErrLoad              = &Error{Kind: KindLoad}
	ErrLink              = &Error{Kind: KindLink}
	ErrMissingEntryPoint = &Error{Kind: KindMissingEntryPoint}
	ErrTrap              = &Error{Kind: KindTrap}
	ErrTimeout           = &Error{Kind: KindTimeout}
)

func newError(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

// SourceReadError classifies a failure to read a test source.
func SourceReadError(cause error) *Error {
	return newError(KindSourceRead, "", cause)
}

// LinkError classifies a failure to build the host bindings for a run.
func LinkError(cause error) *Error {
	return newError(KindLink, "bindings", cause)
}

// KindOf returns the classification of err, or "" if err is nil or unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
