package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/dmitrijs2005/recipehub/internal/server/models"
	"github.com/gin-gonic/gin"
)

const (
	userKey = "auth.user"

	maxJSONBody      = 16 << 10
	maxMultipartBody = 10 << 20
)

// AuthMiddleware resolves the access token to a principal and stores it on
// the context, or aborts with 401. The cookie is preferred over the
// Authorization header.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.svc.Authenticate(c.Request.Context(), accessToken(c))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	if v, err := c.Cookie(common.AccessTokenCookieName); err == nil && v != "" {
		return v
	}
	return bearer(c.GetHeader("Authorization"))
}

func bearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// CurrentUser returns the principal AuthMiddleware attached.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}

// limitBody caps request bodies: multipart forms get maxMultipartBody,
// everything else maxJSONBody.
func limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			limit := int64(maxJSONBody)
			if strings.HasPrefix(c.ContentType(), "multipart/") {
				limit = maxMultipartBody
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// cors allows credentialed requests from a single origin.
func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin != "" && c.GetHeader("Origin") == origin {
			hdr := c.Writer.Header()
			hdr.Set("Access-Control-Allow-Origin", origin)
			hdr.Set("Access-Control-Allow-Credentials", "true")
			hdr.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			hdr.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			hdr.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// HTTPObserver records request latency. *metrics.Metrics satisfies it.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		if h.observer != nil {
			h.observer.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), elapsed)
		}
		h.log.Debug(c.Request.Context(), "request",
			"method", c.Request.Method, "route", route, "status", c.Writer.Status(), "elapsed", elapsed)
	}
}
