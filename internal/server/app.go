// Package server wires configuration, storage, the user service and both
// transports together and runs them until the process is told to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/recipehub/internal/cryptox"
	"github.com/dmitrijs2005/recipehub/internal/filex"
	"github.com/dmitrijs2005/recipehub/internal/logging"
	"github.com/dmitrijs2005/recipehub/internal/server/auth"
	"github.com/dmitrijs2005/recipehub/internal/server/config"
	"github.com/dmitrijs2005/recipehub/internal/server/httpapi"
	"github.com/dmitrijs2005/recipehub/internal/server/metrics"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recipehub/internal/server/services"
	"github.com/dmitrijs2005/recipehub/internal/server/storage"
	"github.com/gin-gonic/gin"

	gs "github.com/dmitrijs2005/recipehub/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	repos       repomanager.RepositoryManager
	userService *services.UserService
	metrics     *metrics.Metrics
	mediaDir    string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger, err := logging.New(c.LogFormat, c.LogLevel, logOut)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager(c.Tokens())
	if err != nil {
		return nil, err
	}

	if c.UploadDir, err = filex.EnsureDir(c.UploadDir); err != nil {
		return nil, err
	}

	uploader, mediaDir, err := newUploader(ctx, c)
	if err != nil {
		return nil, err
	}

	repos, err := repomanager.New(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close(ctx)
		return nil, fmt.Errorf("migrations: %w", err)
	}

	m := metrics.New()
	us := services.NewUserService(repos, tokens, cryptox.NewArgon2idHasher(cryptox.DefaultParams), uploader, logger,
		services.WithRecorder(m),
		services.WithSessionRevocationOnPasswordChange(c.RevokeSessionsOnPasswordChange),
	)

	return &App{config: c, logger: logger, repos: repos, userService: us, metrics: m, mediaDir: mediaDir}, nil
}

// newUploader picks S3 when a bucket is configured and the local media
// directory otherwise. The second result is the directory to serve under
// /media, empty for S3.
func newUploader(ctx context.Context, c *config.Config) (storage.Uploader, string, error) {
	if c.UsesS3() {
		u, err := storage.NewS3Uploader(ctx, storage.S3Config{
			AccessKey:     c.S3AccessKey,
			SecretKey:     c.S3SecretKey,
			Bucket:        c.S3Bucket,
			Region:        c.S3Region,
			Endpoint:      c.S3Endpoint,
			PublicBaseURL: c.S3PublicBaseURL,
		})
		return u, "", err
	}

	root, err := filex.EnsureDir(c.MediaDir)
	if err != nil {
		return nil, "", err
	}
	return storage.NewLocalUploader(root, ""), filepath.Join(root, "media"), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) router() *gin.Engine {
	return httpapi.NewRouter(app.userService, app.logger, httpapi.Options{
		Cookies: httpapi.CookieConfig{
			Secure:     app.config.CookieSecure,
			AccessTTL:  app.config.AccessTokenTTL,
			RefreshTTL: app.config.RefreshTokenTTL,
		},
		UploadDir:      app.config.UploadDir,
		MediaDir:       app.mediaDir,
		CORSOrigin:     app.config.CORSOrigin,
		Observer:       app.metrics,
		MetricsHandler: app.metrics.Handler(),
	})
}

// serveHTTP runs the HTTP server on lis until ctx is done, then drains it.
func (app *App) serveHTTP(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	lis, err := net.Listen("tcp", app.config.HTTPAddr)
	if err == nil {
		err = app.serveHTTP(ctx, lis)
	}
	if err != nil {
		app.logger.Error(ctx, "http server", "error", err)
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.userService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server", "error", err)
		cancelFunc()
	}
}

// Run serves HTTP and, when GRPCAddr is set, gRPC until ctx is cancelled or
// a signal arrives, then closes the store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreDriver)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.repos.Close(closeCtx); err != nil {
		app.logger.Error(closeCtx, "close store", "error", err)
	}
	app.logger.Info(closeCtx, "App stopped")
}
