package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/dmitrijs2005/recipehub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store) *models.User {
	t.Helper()
	u, err := s.Create(context.Background(), &models.User{Username: "alice", Email: "alice@x.com", PasswordHash: "h"})
	require.NoError(t, err)
	return u
}

func TestStore_CreateAndFind(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seed(t, s)

	assert.NotEmpty(t, u.ID)

	got, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	got, err = s.FindByUsernameOrEmail(ctx, "ALICE", "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.FindByUsernameOrEmail(ctx, "nobody", "Alice@X.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.FindByUsernameOrEmail(ctx, "bob", "bob@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestStore_CreateConflicts(t *testing.T) {
	s := NewStore()
	seed(t, s)

	_, err := s.Create(context.Background(), &models.User{Username: "Alice", Email: "other@x.com"})
	assert.ErrorIs(t, err, common.ErrorConflict)

	_, err = s.Create(context.Background(), &models.User{Username: "bob", Email: "ALICE@x.com"})
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	u := seed(t, s)

	got, err := s.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	got.Username = "mallory"

	again, err := s.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username)
}

func TestStore_Update(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seed(t, s)
	_, err := s.Create(ctx, &models.User{Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)

	name, email := "Alice A.", "alice@new.com"
	got, err := s.Update(ctx, u.ID, models.UserUpdate{FullName: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", got.FullName)
	assert.Equal(t, "alice@new.com", got.Email)

	found, err := s.FindByUsernameOrEmail(ctx, "", "alice@new.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	taken := "bob@x.com"
	_, err = s.Update(ctx, u.ID, models.UserUpdate{Email: &taken})
	assert.ErrorIs(t, err, common.ErrorConflict)

	_, err = s.Update(ctx, "missing", models.UserUpdate{FullName: &name})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.UpdatePasswordHash(ctx, u.ID, "h2"))
	got, err = s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "missing", "h"), common.ErrorNotFound)
}

func TestStore_RefreshTokenLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seed(t, s)

	tok, err := s.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Set(ctx, u.ID, "r1"))

	ok, err := s.Rotate(ctx, u.ID, "r1", "r2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Rotate(ctx, u.ID, "r1", "r3")
	require.NoError(t, err)
	assert.False(t, ok, "stale token must not rotate")

	require.NoError(t, s.Set(ctx, u.ID, ""))
	ok, err = s.Rotate(ctx, u.ID, "", "r4")
	require.NoError(t, err)
	assert.False(t, ok, "cleared session must not rotate")

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, s.Set(ctx, "missing", "x"), common.ErrorNotFound)
}

func TestStore_ConcurrentRotateHasOneWinner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seed(t, s)
	require.NoError(t, s.Set(ctx, u.ID, "r1"))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.Rotate(ctx, u.ID, "r1", "next")
			if err == nil && ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
