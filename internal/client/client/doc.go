// Package client is the HTTP client for the RecipeHub user API.
//
// APIClient keeps the session cookies set by the server in a cookie jar, so
// once Login succeeds every secured call is authenticated without the caller
// handling tokens. When a secured call is rejected with 401 the client
// rotates the session once via the refresh endpoint and retries.
//
// # Error Handling
//
// Server rejections are returned as *APIError. Common conditions also match
// sentinel errors with errors.Is: ErrUnauthorized, ErrUnavailable,
// ErrConflict, ErrNotFound, ErrInvalidInput.
package client
