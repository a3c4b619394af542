// Package storage ships finalized recordings to object storage.
package storage

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	apperrors "github.com/hrygo/wingman/internal/errors"
	"github.com/hrygo/wingman/plugin/media"
)

// DefaultObjectName is the file name used for a session recording.
const DefaultObjectName = "recording.webm"

// Uploader uploads a blob and returns the URI the analysis service can read it from.
// Failures are returned as UPLOAD_FAILED errors; the blob is never modified, so the
// caller may retry with the same value.
type Uploader interface {
	Upload(ctx context.Context, blob media.Blob, sessionID string) (string, error)
}

// ObjectKey returns the destination key interviews/<session>/<shortuuid>_<name>.
func ObjectKey(sessionID, name string) (string, error) {
	if !validSegment(sessionID) {
		return "", apperrors.InvalidArgument("invalid session id for object key")
	}
	if name == "" {
		name = DefaultObjectName
	}
	if !validSegment(name) {
		return "", apperrors.InvalidArgument("invalid object name")
	}
	return path.Join("interviews", sessionID, shortuuid.New()+"_"+name), nil
}

// validSegment rejects path traversal and separators.
func validSegment(s string) bool {
	if s == "" || !filepath.IsLocal(s) || strings.ContainsAny(s, "/\\") {
		return false
	}
	return !strings.HasPrefix(s, ".")
}

func objectName(blob media.Blob) string {
	switch {
	case strings.HasPrefix(blob.MimeType, "video/mp4"):
		return "recording.mp4"
	case strings.HasPrefix(blob.MimeType, "audio/"):
		return "recording.weba"
	default:
		return DefaultObjectName
	}
}
