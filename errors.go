package finsight

import (
	"errors"
	"fmt"
)

// Kind classifies the failures a caller must be able to tell apart.
type Kind int

const (
	KindUnknown       Kind = iota
	KindConfiguration      // credential or setting missing
	KindTransport          // the outbound call failed
	KindResponseShape      // the response is empty, not JSON, or violates its schema
	KindPersistence        // the local store could not be read or written
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindResponseShape:
		return "response shape"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Sentinel errors to be used with errors.Is on any *Error of the same kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrTransport     = &Error{Kind: KindTransport}
	ErrResponseShape = &Error{Kind: KindResponseShape}
	ErrPersistence   = &Error{Kind: KindPersistence}

	// ErrNoEvidence is returned when an analysis is requested without any document or link.
	ErrNoEvidence = errors.New("no document or link to analyze")
	// ErrStale is returned when a response arrives after a newer request was started.
	ErrStale = errors.New("superseded by a newer request")
	// ErrUnknownIntegration is returned by connectors for an unknown platform.
	ErrUnknownIntegration = errors.New("unknown platform")
)

// Error is a typed failure carrying its Kind and the operation that raised it.
type Error struct {
	Kind Kind
	Op   string // e.g. "analyze", "extract-facts", "vault.append"
	Err  error
}

// NewError wraps err into an *Error of the given kind.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is a shortcut for NewError(kind, op, fmt.Errorf(format, args...)).
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String() + " error"
	case e.Op == "":
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind. Sentinels carry no
// Op nor Err so that errors.Is(err, ErrTransport) matches any transport error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the Kind of the first *Error found in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
