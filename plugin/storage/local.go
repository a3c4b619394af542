package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	apperrors "github.com/hrygo/wingman/internal/errors"
	"github.com/hrygo/wingman/plugin/media"
)

// LocalUploader writes recordings under Root and returns file:// URIs.
type LocalUploader struct {
	Root string
}

// NewLocalUploader creates a LocalUploader rooted at dir.
func NewLocalUploader(dir string) *LocalUploader {
	return &LocalUploader{Root: dir}
}

// Upload writes the blob to Root/<object key>.
func (u *LocalUploader) Upload(ctx context.Context, blob media.Blob, sessionID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.UploadFailed("upload canceled", err)
	}
	if blob.IsEmpty() {
		return "", apperrors.UploadFailed("recording is empty", nil)
	}
	key, err := ObjectKey(sessionID, objectName(blob))
	if err != nil {
		return "", err
	}

	osPath := filepath.Join(u.Root, filepath.FromSlash(key))
	if !filepath.IsAbs(osPath) {
		abs, err := filepath.Abs(osPath)
		if err != nil {
			return "", apperrors.UploadFailed("failed to resolve upload path", err)
		}
		osPath = abs
	}
	if err := os.MkdirAll(filepath.Dir(osPath), os.ModePerm); err != nil {
		return "", apperrors.UploadFailed("failed to create directory", errors.WithStack(err))
	}
	if err := os.WriteFile(osPath, blob.Data, 0644); err != nil {
		return "", apperrors.UploadFailed("failed to write recording", errors.WithStack(err))
	}

	uri := url.URL{Scheme: "file", Path: filepath.ToSlash(osPath)}
	return uri.String(), nil
}

var _ Uploader = (*LocalUploader)(nil)
