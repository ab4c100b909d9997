package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the wire boundary. Anything that is not a
// typed *Error is reported as KindInternal.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindPermissionDenied
	KindInvalidArgument
	KindNotFound
	KindConflict
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermissionDenied:
		return "permission-denied"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindNotFound:
		return "not-found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a policy-visible failure carrying a kind and a human-readable
// detail safe to return to the caller.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Detail
}

// E constructs a typed Error.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, defaulting to KindInternal for
// untyped failures (unexpected provider/store errors).
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Detail returns the detail string when err is typed, or a generic message
// otherwise so that internal errors never leak implementation detail.
func Detail(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Detail
	}
	return "internal error"
}
