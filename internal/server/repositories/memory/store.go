// Package memory is an in-process user and refresh token store for local
// development and tests. Nothing survives a restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/dmitrijs2005/recipehub/internal/server/models"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/users"
	"github.com/google/uuid"
)

var (
	_ users.Repository         = (*Store)(nil)
	_ refreshtokens.Repository = (*Store)(nil)
)

// Store implements both users.Repository and refreshtokens.Repository over
// one map, so the session field stays on the user record as in the other
// backends.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*models.User
	byUsername map[string]string
	byEmail    map[string]string
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		byID:       make(map[string]*models.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		now:        time.Now,
	}
}

func key(s string) string { return strings.ToLower(s) }

func (s *Store) Create(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[key(user.Username)]; ok {
		return nil, common.ErrorConflict
	}
	if _, ok := s.byEmail[key(user.Email)]; ok {
		return nil, common.ErrorConflict
	}

	now := s.now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.RefreshToken = ""

	c := *user
	s.byID[c.ID] = &c
	s.byUsername[key(c.Username)] = c.ID
	s.byEmail[key(c.Email)] = c.ID

	return user, nil
}

func (s *Store) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (s *Store) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[key(username)]
	if !ok {
		id, ok = s.byEmail[key(email)]
	}
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *s.byID[id]
	return &c, nil
}

func (s *Store) Update(_ context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}

	if upd.Email != nil && key(*upd.Email) != key(u.Email) {
		if _, taken := s.byEmail[key(*upd.Email)]; taken {
			return nil, common.ErrorConflict
		}
		delete(s.byEmail, key(u.Email))
		s.byEmail[key(*upd.Email)] = id
		u.Email = *upd.Email
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	if upd.CoverImage != nil {
		u.CoverImage = *upd.CoverImage
	}
	u.UpdatedAt = s.now().UTC()

	c := *u
	return &c, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) Get(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return "", common.ErrorNotFound
	}
	return u.RefreshToken, nil
}

func (s *Store) Set(_ context.Context, userID string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.RefreshToken = token
	return nil
}

func (s *Store) Rotate(_ context.Context, userID string, presented, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok || presented == "" || u.RefreshToken != presented {
		return false, nil
	}
	u.RefreshToken = next
	return true, nil
}
