// Package refreshtokens manages the single refresh token a user may hold.
// The token lives on the user record itself, so at most one session is
// valid per user and issuing a new one revokes the previous one.
package refreshtokens

import "context"

// Repository returns common.ErrorNotFound when the user does not exist.
type Repository interface {
	// Get returns the stored token, or "" when the user has none.
	Get(ctx context.Context, userID string) (string, error)

	// Set replaces the stored token unconditionally. An empty token clears it.
	Set(ctx context.Context, userID string, token string) error

	// Rotate replaces presented with next only if presented is still the
	// stored token. It reports false when another writer got there first.
	Rotate(ctx context.Context, userID string, presented, next string) (bool, error)
}
