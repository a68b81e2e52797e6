package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/recipehub/internal/flagx"
	"github.com/dmitrijs2005/recipehub/internal/timex"
)

var knownFlags = []string{
	"-a", "-g", "-s", "-d", "-m", "-n",
	"-access-secret", "-access-ttl", "-refresh-secret", "-refresh-ttl",
	"-b", "-e", "-u", "-cookie-secure", "-revoke-on-password-change",
	"-log-format", "-log-level",
}

// parseFlags overlays values from command-line flags.
//
// Supported flags:
//
//	-a string        HTTP bind address (e.g. ":8000")
//	-g string        gRPC bind address
//	-s string        store driver: postgres, mongodb or memory
//	-d string        PostgreSQL DSN
//	-m string        MongoDB URI
//	-n string        MongoDB database name
//	-access-secret   access token HMAC secret
//	-access-ttl      access token lifetime ("15m", "1d")
//	-refresh-secret  refresh token HMAC secret
//	-refresh-ttl     refresh token lifetime ("10d")
//	-b string        S3 bucket
//	-e string        S3 endpoint
//	-u string        local upload directory
//	-cookie-secure   mark auth cookies Secure
//	-revoke-on-password-change
//	-log-format      slog or zerolog
//	-log-level       debug, info, warn or error
//
// Unknown flags are filtered out with flagx.FilterArgs so the JSON -c flag
// and anything else on the command line do not make parsing fail.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address")
	fs.StringVar(&config.StoreDriver, "s", config.StoreDriver, "store driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MongoURI, "m", config.MongoURI, "MongoDB URI")
	fs.StringVar(&config.MongoDatabase, "n", config.MongoDatabase, "MongoDB database")
	fs.StringVar(&config.AccessTokenSecret, "access-secret", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "refresh-secret", config.RefreshTokenSecret, "refresh token secret")

	accessTTL := timex.Duration{Duration: config.AccessTokenTTL}
	refreshTTL := timex.Duration{Duration: config.RefreshTokenTTL}
	fs.Var(&accessTTL, "access-ttl", "access token lifetime")
	fs.Var(&refreshTTL, "refresh-ttl", "refresh token lifetime")

	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Endpoint, "e", config.S3Endpoint, "S3 endpoint")
	fs.StringVar(&config.UploadDir, "u", config.UploadDir, "upload directory")
	fs.BoolVar(&config.CookieSecure, "cookie-secure", config.CookieSecure, "Secure auth cookies")
	fs.BoolVar(&config.RevokeSessionsOnPasswordChange, "revoke-on-password-change", config.RevokeSessionsOnPasswordChange, "clear sessions on password change")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	config.AccessTokenTTL = accessTTL.Duration
	config.RefreshTokenTTL = refreshTTL.Duration
	return nil
}
