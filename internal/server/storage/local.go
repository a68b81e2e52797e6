package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/recipehub/internal/filex"
)

// LocalUploader moves files under Root and serves them from URLPrefix.
// Used when no object store is configured.
type LocalUploader struct {
	Root      string
	URLPrefix string
	now       func() time.Time
}

func NewLocalUploader(root, urlPrefix string) *LocalUploader {
	return &LocalUploader{Root: root, URLPrefix: strings.TrimRight(urlPrefix, "/"), now: time.Now}
}

func (u *LocalUploader) Upload(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		_ = filex.RemoveQuietly(localPath)
		return "", err
	}

	key := objectKey(u.now(), localPath)
	if err := filex.Move(localPath, filepath.Join(u.Root, filepath.FromSlash(key))); err != nil {
		_ = filex.RemoveQuietly(localPath)
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	return u.URLPrefix + "/" + key, nil
}
