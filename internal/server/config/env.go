package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/recipehub/internal/timex"
)

// lookupFunc has the shape of os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// parseEnv overlays values from environment variables. Unset and empty
// variables leave the current value alone.
func parseEnv(config *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := timex.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		*dst = d
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		*dst = b
		return nil
	}

	// PORT is what most hosting platforms set.
	if v, ok := lookup("PORT"); ok && v != "" {
		config.HTTPAddr = ":" + v
	}
	str("HTTP_ADDR", &config.HTTPAddr)
	str("GRPC_ADDR", &config.GRPCAddr)
	str("STORE_DRIVER", &config.StoreDriver)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("MONGODB_URI", &config.MongoURI)
	str("MONGODB_DATABASE", &config.MongoDatabase)
	str("ACCESS_TOKEN_SECRET", &config.AccessTokenSecret)
	str("REFRESH_TOKEN_SECRET", &config.RefreshTokenSecret)
	str("S3_ACCESS_KEY", &config.S3AccessKey)
	str("S3_SECRET_KEY", &config.S3SecretKey)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_ENDPOINT", &config.S3Endpoint)
	str("S3_PUBLIC_BASE_URL", &config.S3PublicBaseURL)
	str("UPLOAD_DIR", &config.UploadDir)
	str("MEDIA_DIR", &config.MediaDir)
	str("CORS_ORIGIN", &config.CORSOrigin)
	str("LOG_FORMAT", &config.LogFormat)
	str("LOG_LEVEL", &config.LogLevel)

	if err := dur("ACCESS_TOKEN_TTL", &config.AccessTokenTTL); err != nil {
		return err
	}
	if err := dur("REFRESH_TOKEN_TTL", &config.RefreshTokenTTL); err != nil {
		return err
	}
	if err := boolean("COOKIE_SECURE", &config.CookieSecure); err != nil {
		return err
	}
	return boolean("REVOKE_SESSIONS_ON_PASSWORD_CHANGE", &config.RevokeSessionsOnPasswordChange)
}
