package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/recipehub/internal/logging"
	"github.com/gin-gonic/gin"
)

// Options configures NewRouter. MediaDir and MetricsHandler are optional.
type Options struct {
	Cookies        CookieConfig
	UploadDir      string
	MediaDir       string
	CORSOrigin     string
	Observer       HTTPObserver
	MetricsHandler http.Handler
}

func NewHandler(svc UserService, log logging.Logger, opts Options) *Handler {
	return &Handler{
		svc:       svc,
		log:       log.With("module", "http"),
		cookies:   opts.Cookies,
		uploadDir: opts.UploadDir,
		observer:  opts.Observer,
	}
}

// NewRouter wires the user routes under /api/v1/users plus health, metrics
// and, when MediaDir is set, locally stored media under /media.
func NewRouter(svc UserService, log logging.Logger, opts Options) *gin.Engine {
	h := NewHandler(svc, log, opts)

	r := gin.New()
	r.MaxMultipartMemory = maxMultipartBody
	r.Use(gin.Recovery(), h.accessLog(), cors(opts.CORSOrigin), limitBody())

	r.GET("/healthz", h.healthz)
	if opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}
	if opts.MediaDir != "" {
		r.Static("/media", opts.MediaDir)
	}

	users := r.Group("/api/v1/users")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.POST("/refresh-token", h.RefreshToken)

	secured := users.Group("", h.AuthMiddleware())
	secured.POST("/logout", h.Logout)
	secured.GET("/current-user", h.CurrentUser)
	secured.POST("/change-password", h.ChangePassword)
	secured.PATCH("/update-acc-details", h.UpdateAccountDetails)
	secured.PATCH("/update-avatar", h.UpdateAvatar)
	secured.PATCH("/update-cover-image", h.UpdateCoverImage)

	return r
}
