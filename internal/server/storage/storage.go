// Package storage publishes uploaded media files and returns the URL they
// can be fetched from.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Uploader publishes the file at localPath and returns its public URL.
// The local file is removed after the attempt whether or not it succeeded.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// objectKey returns a unique key like media/2025/1/31/<uuid>.png.
func objectKey(now time.Time, localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	return fmt.Sprintf("media/%d/%d/%d/%s%s", now.Year(), now.Month(), now.Day(), uuid.NewString(), ext)
}
