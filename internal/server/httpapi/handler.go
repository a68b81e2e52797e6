package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/dmitrijs2005/recipehub/internal/logging"
	"github.com/dmitrijs2005/recipehub/internal/server/auth"
	"github.com/dmitrijs2005/recipehub/internal/server/models"
	"github.com/dmitrijs2005/recipehub/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserService is what the handlers need from services.UserService.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, login, password string) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, presented string) (*auth.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID, localPath string) (*models.User, error)
	UpdateCoverImage(ctx context.Context, userID, localPath string) (*models.User, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

type Handler struct {
	svc       UserService
	log       logging.Logger
	cookies   CookieConfig
	uploadDir string
	observer  HTTPObserver
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type accountDetailsRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type loginResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Register(c *gin.Context) {
	avatar, err := h.saveUpload(c, "avatar")
	if err != nil {
		h.fail(c, err)
		return
	}
	cover, err := h.saveUpload(c, "coverImage")
	if err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.svc.Register(c.Request.Context(), services.RegisterInput{
		Username:       c.PostForm("username"),
		Email:          c.PostForm("email"),
		FullName:       c.PostForm("fullName"),
		Password:       c.PostForm("password"),
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, user, "user registered successfully")
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	login := req.Username
	if strings.TrimSpace(login) == "" {
		login = req.Email
	}

	res, err := h.svc.Login(c.Request.Context(), login, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookies(c, res.Tokens)
	respond(c, http.StatusOK, loginResponse{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "user logged in successfully")
}

// RefreshToken reads the refresh token from its cookie and falls back to
// the JSON body.
func (h *Handler) RefreshToken(c *gin.Context) {
	presented, _ := c.Cookie(common.RefreshTokenCookieName)
	if presented == "" {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.fail(c, err)
				return
			}
		}
		presented = req.RefreshToken
	}

	pair, err := h.svc.RefreshToken(c.Request.Context(), presented)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	respond(c, http.StatusOK, tokensResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"access token refreshed")
}

func (h *Handler) Logout(c *gin.Context) {
	user, _ := CurrentUser(c)
	if err := h.svc.Logout(c.Request.Context(), user.ID); err != nil {
		h.fail(c, err)
		return
	}

	h.clearSessionCookies(c)
	respond(c, http.StatusOK, gin.H{}, "user logged out")
}

func (h *Handler) CurrentUser(c *gin.Context) {
	user, _ := CurrentUser(c)
	respond(c, http.StatusOK, user, "current user fetched successfully")
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	user, _ := CurrentUser(c)
	if err := h.svc.ChangePassword(c.Request.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{}, "password changed successfully")
}

func (h *Handler) UpdateAccountDetails(c *gin.Context) {
	var req accountDetailsRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	user, _ := CurrentUser(c)
	updated, err := h.svc.UpdateAccountDetails(c.Request.Context(), user.ID, req.FullName, req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, updated, "account details updated successfully")
}

func (h *Handler) UpdateAvatar(c *gin.Context) {
	h.updateMedia(c, "avatar", h.svc.UpdateAvatar)
}

func (h *Handler) UpdateCoverImage(c *gin.Context) {
	h.updateMedia(c, "coverImage", h.svc.UpdateCoverImage)
}

func (h *Handler) updateMedia(c *gin.Context, field string,
	update func(ctx context.Context, userID, localPath string) (*models.User, error)) {
	path, err := h.saveUpload(c, field)
	if err != nil {
		h.fail(c, err)
		return
	}

	user, _ := CurrentUser(c)
	updated, err := update(c.Request.Context(), user.ID, path)
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, updated, field+" updated successfully")
}

// saveUpload stores the multipart file field under uploadDir and returns
// its path, or "" when the field is absent.
func (h *Handler) saveUpload(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", err
		}
		return "", nil
	}

	path := filepath.Join(h.uploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return "", fmt.Errorf("%w: save upload: %w", common.ErrorInternal, err)
	}
	return path, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", common.ErrorValidation)
		}
		return fmt.Errorf("%w: invalid request body", common.ErrorValidation)
	}
	return nil
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
