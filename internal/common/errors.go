// Package common defines shared constants and sentinel errors used across
// client and server layers of RecipeHub. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// caller supplied bad or missing input
	ErrorValidation = errors.New("validation error")

	// username or email already taken
	ErrorConflict = errors.New("already exists")

	// bad credentials, bad or missing token, stale session
	ErrorUnauthorized = errors.New("unauthorized")

	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// document store or object store failure
	ErrorDependency = errors.New("dependency unavailable")

	ErrorInternal = errors.New("internal error")
)

var kinds = []error{
	ErrorValidation,
	ErrorConflict,
	ErrorUnauthorized,
	ErrorNotFound,
	ErrorDependency,
	ErrorInternal,
}

// KindOf returns the sentinel err wraps, or ErrorInternal when it wraps none.
// The first match in declaration order wins, so an unauthorized error that
// also wraps a not-found cause stays unauthorized.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrorInternal
}

// KindName is KindOf as a short label for metrics and logs.
func KindName(err error) string {
	if err == nil {
		return "ok"
	}
	switch KindOf(err) {
	case ErrorValidation:
		return "validation"
	case ErrorConflict:
		return "conflict"
	case ErrorUnauthorized:
		return "unauthorized"
	case ErrorNotFound:
		return "not_found"
	case ErrorDependency:
		return "dependency"
	default:
		return "internal"
	}
}
