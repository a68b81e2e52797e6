// Package users declares the principal store contract and its Postgres and
// MongoDB implementations. Usernames and emails are stored lower-cased so
// lookups are case-insensitive.
package users

import (
	"context"

	"github.com/dmitrijs2005/recipehub/internal/server/models"
)

// Repository returns common.ErrorNotFound for absent records,
// common.ErrorConflict for unique violations and common.ErrorDependency
// when the store itself fails.
type Repository interface {
	// Create inserts user and fills in ID and timestamps.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	GetByID(ctx context.Context, id string) (*models.User, error)

	// FindByUsernameOrEmail returns the first user whose username equals
	// username or whose email equals email.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)

	// Update applies the non-nil fields of upd and returns the updated user.
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)

	UpdatePasswordHash(ctx context.Context, id string, hash string) error
}
