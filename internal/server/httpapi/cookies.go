package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/dmitrijs2005/recipehub/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// CookieConfig controls the session cookies. Secure is only turned off for
// plain-HTTP local development.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (h *Handler) setSessionCookies(c *gin.Context, pair *auth.TokenPair) {
	h.setCookie(c, common.AccessTokenCookieName, pair.AccessToken, h.cookies.AccessTTL)
	h.setCookie(c, common.RefreshTokenCookieName, pair.RefreshToken, h.cookies.RefreshTTL)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	h.setCookie(c, common.AccessTokenCookieName, "", -1)
	h.setCookie(c, common.RefreshTokenCookieName, "", -1)
}

func (h *Handler) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
