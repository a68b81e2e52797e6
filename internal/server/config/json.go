package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/recipehub/internal/flagx"
	"github.com/dmitrijs2005/recipehub/internal/timex"
)

// JsonConfig mirrors Config for unmarshalling. Pointer fields tell "absent"
// apart from the zero value so the file only overrides what it names.
type JsonConfig struct {
	HTTPAddr      *string `json:"http_addr"`
	GRPCAddr      *string `json:"grpc_addr"`
	StoreDriver   *string `json:"store_driver"`
	DatabaseDSN   *string `json:"database_dsn"`
	MongoURI      *string `json:"mongodb_uri"`
	MongoDatabase *string `json:"mongodb_database"`

	AccessTokenSecret  *string         `json:"access_token_secret"`
	AccessTokenTTL     *timex.Duration `json:"access_token_ttl"`
	RefreshTokenSecret *string         `json:"refresh_token_secret"`
	RefreshTokenTTL    *timex.Duration `json:"refresh_token_ttl"`

	S3AccessKey     *string `json:"s3_access_key"`
	S3SecretKey     *string `json:"s3_secret_key"`
	S3Bucket        *string `json:"s3_bucket"`
	S3Region        *string `json:"s3_region"`
	S3Endpoint      *string `json:"s3_endpoint"`
	S3PublicBaseURL *string `json:"s3_public_base_url"`

	UploadDir                      *string `json:"upload_dir"`
	MediaDir                       *string `json:"media_dir"`
	CORSOrigin                     *string `json:"cors_origin"`
	CookieSecure                   *bool   `json:"cookie_secure"`
	RevokeSessionsOnPasswordChange *bool   `json:"revoke_sessions_on_password_change"`

	LogFormat *string `json:"log_format"`
	LogLevel  *string `json:"log_level"`
}

// parseJson overlays values from the file named by -c / -config.
// Without the flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.StoreDriver, c.StoreDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MongoURI, c.MongoURI)
	setString(&config.MongoDatabase, c.MongoDatabase)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	if c.AccessTokenTTL != nil {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL != nil {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Endpoint, c.S3Endpoint)
	setString(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	setString(&config.UploadDir, c.UploadDir)
	setString(&config.MediaDir, c.MediaDir)
	setString(&config.CORSOrigin, c.CORSOrigin)
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	if c.RevokeSessionsOnPasswordChange != nil {
		config.RevokeSessionsOnPasswordChange = *c.RevokeSessionsOnPasswordChange
	}
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
