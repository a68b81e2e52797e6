// Package services contains server-side business logic. This file implements
// UserService, which owns the credential and session lifecycle: registration,
// login, refresh-token rotation, logout and password change.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/dmitrijs2005/recipehub/internal/cryptox"
	"github.com/dmitrijs2005/recipehub/internal/filex"
	"github.com/dmitrijs2005/recipehub/internal/logging"
	"github.com/dmitrijs2005/recipehub/internal/server/auth"
	"github.com/dmitrijs2005/recipehub/internal/server/models"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/users"
	"github.com/dmitrijs2005/recipehub/internal/server/storage"
)

// Recorder receives operation outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveAuth(operation string, err error)
	TokenRejected(kind, reason string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAuth(string, error)    {}
func (nopRecorder) TokenRejected(string, string) {}

// RegisterInput carries the registration form. AvatarPath and
// CoverImagePath are local temp files; the service owns them from here on
// and removes them whatever the outcome.
type RegisterInput struct {
	Username       string
	Email          string
	FullName       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// LoginResult is a sanitized user plus a fresh token pair.
type LoginResult struct {
	User   *models.User
	Tokens *auth.TokenPair
}

type Option func(*UserService)

func WithRecorder(r Recorder) Option {
	return func(s *UserService) { s.recorder = r }
}

// WithSessionRevocationOnPasswordChange makes ChangePassword clear the
// stored refresh token. Off by default.
func WithSessionRevocationOnPasswordChange(on bool) Option {
	return func(s *UserService) { s.revokeOnPasswordChange = on }
}

// UserService is safe for concurrent use; all coordination is left to the
// store.
type UserService struct {
	users                  users.Repository
	sessions               refreshtokens.Repository
	hasher                 cryptox.PasswordHasher
	tokens                 *auth.TokenManager
	uploader               storage.Uploader
	log                    logging.Logger
	recorder               Recorder
	revokeOnPasswordChange bool
}

func NewUserService(m repomanager.RepositoryManager, tokens *auth.TokenManager, hasher cryptox.PasswordHasher,
	uploader storage.Uploader, log logging.Logger, opts ...Option) *UserService {
	s := &UserService{
		users:    m.Users(),
		sessions: m.RefreshTokens(),
		hasher:   hasher,
		tokens:   tokens,
		uploader: uploader,
		log:      log.With("module", "user_service"),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a principal. The avatar is required; a failed cover
// image upload is logged and the cover is left empty.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (u *models.User, err error) {
	defer func() { s.recorder.ObserveAuth("register", err) }()

	// the uploader removes what it touches; this covers early returns
	defer func() {
		_ = filex.RemoveQuietly(in.AvatarPath)
		_ = filex.RemoveQuietly(in.CoverImagePath)
	}()

	username := normalize(in.Username)
	email := normalize(in.Email)
	fullName := strings.TrimSpace(in.FullName)

	switch {
	case username == "":
		return nil, fmt.Errorf("%w: username is required", common.ErrorValidation)
	case email == "":
		return nil, fmt.Errorf("%w: email is required", common.ErrorValidation)
	case strings.TrimSpace(in.Password) == "":
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	case in.AvatarPath == "":
		return nil, fmt.Errorf("%w: avatar file is required", common.ErrorValidation)
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("%w: user with email or username already exists", common.ErrorConflict)
	case err != nil && !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	avatar, err := s.uploader.Upload(ctx, in.AvatarPath)
	if err != nil {
		return nil, fmt.Errorf("%w: avatar upload: %w", common.ErrorDependency, err)
	}

	var cover string
	if in.CoverImagePath != "" {
		cover, err = s.uploader.Upload(ctx, in.CoverImagePath)
		if err != nil {
			s.log.Warn(ctx, "cover image upload failed", "error", err)
			cover = ""
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", common.ErrorInternal, err)
	}

	created, err := s.users.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatar,
		CoverImage:   cover,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", created.ID)
	return created.Sanitized(), nil
}

// Login accepts a username or an email in login. It never writes on a
// failed attempt.
func (s *UserService) Login(ctx context.Context, login, password string) (res *LoginResult, err error) {
	defer func() { s.recorder.ObserveAuth("login", err) }()

	login = normalize(login)
	if login == "" {
		return nil, fmt.Errorf("%w: username or email is required", common.ErrorValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, login, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: user does not exist", common.ErrorNotFound)
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: verify password: %w", common.ErrorInternal, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: invalid user credentials", common.ErrorUnauthorized)
	}

	pair, err := s.tokens.IssuePair(identityOf(user))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if err := s.sessions.Set(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{User: user.Sanitized(), Tokens: pair}, nil
}

// RefreshToken exchanges the stored refresh token for a new pair. The
// presented token must match the stored one exactly; once rotated it can
// never be used again.
func (s *UserService) RefreshToken(ctx context.Context, presented string) (pair *auth.TokenPair, err error) {
	defer func() { s.recorder.ObserveAuth("refresh", err) }()

	if presented == "" {
		return nil, fmt.Errorf("%w: refresh token is missing", common.ErrorUnauthorized)
	}

	claims, err := s.tokens.Verify(presented, auth.KindRefresh)
	if err != nil {
		s.recorder.TokenRejected(string(auth.KindRefresh), auth.Reason(err))
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	userID := claims.Subject

	stored, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, unauthorizedIfMissing(err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		s.recorder.TokenRejected(string(auth.KindRefresh), "reused")
		return nil, fmt.Errorf("%w: refresh token is expired or used", common.ErrorUnauthorized)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, unauthorizedIfMissing(err)
	}

	pair, err = s.tokens.IssuePair(identityOf(user))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	rotated, err := s.sessions.Rotate(ctx, userID, presented, pair.RefreshToken)
	if err != nil {
		return nil, unauthorizedIfMissing(err)
	}
	if !rotated {
		s.recorder.TokenRejected(string(auth.KindRefresh), "reused")
		return nil, fmt.Errorf("%w: refresh token is expired or used", common.ErrorUnauthorized)
	}

	s.log.Info(ctx, "session refreshed", "user_id", userID)
	return pair, nil
}

// Logout clears the stored refresh token. Logging out twice, or logging
// out a user that is gone, is not an error.
func (s *UserService) Logout(ctx context.Context, userID string) (err error) {
	defer func() { s.recorder.ObserveAuth("logout", err) }()

	if err := s.sessions.Set(ctx, userID, ""); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	s.log.Info(ctx, "user logged out", "user_id", userID)
	return nil
}

// ChangePassword replaces the password hash after checking the old
// password. The refresh token survives unless session revocation on
// password change is enabled.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (err error) {
	defer func() { s.recorder.ObserveAuth("change_password", err) }()

	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: old and new password are required", common.ErrorValidation)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return unauthorizedIfMissing(err)
	}

	ok, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("%w: verify password: %w", common.ErrorInternal, err)
	}
	if !ok {
		return fmt.Errorf("%w: invalid old password", common.ErrorUnauthorized)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: hash password: %w", common.ErrorInternal, err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return unauthorizedIfMissing(err)
	}

	if s.revokeOnPasswordChange {
		if err := s.sessions.Set(ctx, userID, ""); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
	}

	s.log.Info(ctx, "password changed", "user_id", userID, "sessions_revoked", s.revokeOnPasswordChange)
	return nil
}

func (s *UserService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, unauthorizedIfMissing(err)
	}
	return user.Sanitized(), nil
}

// UpdateAccountDetails changes the full name and/or email; at least one
// must be given.
func (s *UserService) UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*models.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = normalize(email)
	if fullName == "" && email == "" {
		return nil, fmt.Errorf("%w: fullName or email is required", common.ErrorValidation)
	}

	var upd models.UserUpdate
	if fullName != "" {
		upd.FullName = &fullName
	}
	if email != "" {
		upd.Email = &email
	}

	user, err := s.users.Update(ctx, userID, upd)
	if err != nil {
		return nil, unauthorizedIfMissing(err)
	}
	return user.Sanitized(), nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID, localPath string) (*models.User, error) {
	return s.updateMedia(ctx, userID, localPath, "avatar", func(upd *models.UserUpdate, url string) {
		upd.Avatar = &url
	})
}

func (s *UserService) UpdateCoverImage(ctx context.Context, userID, localPath string) (*models.User, error) {
	return s.updateMedia(ctx, userID, localPath, "cover image", func(upd *models.UserUpdate, url string) {
		upd.CoverImage = &url
	})
}

func (s *UserService) updateMedia(ctx context.Context, userID, localPath, what string, set func(*models.UserUpdate, string)) (*models.User, error) {
	if localPath == "" {
		return nil, fmt.Errorf("%w: %s file is missing", common.ErrorValidation, what)
	}

	url, err := s.uploader.Upload(ctx, localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s upload: %w", common.ErrorDependency, what, err)
	}

	var upd models.UserUpdate
	set(&upd, url)
	user, err := s.users.Update(ctx, userID, upd)
	if err != nil {
		return nil, unauthorizedIfMissing(err)
	}
	return user.Sanitized(), nil
}

// Authenticate resolves an access token to its principal. Every failure,
// including a principal that no longer exists, is ErrorUnauthorized so the
// caller learns nothing about which accounts exist.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token is missing", common.ErrorUnauthorized)
	}

	claims, err := s.tokens.Verify(accessToken, auth.KindAccess)
	if err != nil {
		s.recorder.TokenRejected(string(auth.KindAccess), auth.Reason(err))
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, unauthorizedIfMissing(err)
	}
	return user.Sanitized(), nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func identityOf(u *models.User) auth.Identity {
	return auth.Identity{ID: u.ID, Username: u.Username, Email: u.Email}
}

// unauthorizedIfMissing turns a missing principal into ErrorUnauthorized and
// passes anything else through.
func unauthorizedIfMissing(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	return err
}
