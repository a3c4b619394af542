package storage

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/hrygo/wingman/internal/errors"
	"github.com/hrygo/wingman/plugin/media"
)

// MockUploader records uploads and returns mock://<session>/<n> URIs.
// Setting Err makes every upload fail with UPLOAD_FAILED.
type MockUploader struct {
	mu      sync.Mutex
	Err     error
	Uploads []media.Blob
}

// Upload implements Uploader.
func (m *MockUploader) Upload(ctx context.Context, blob media.Blob, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", apperrors.UploadFailed("mock upload failed", m.Err)
	}
	m.Uploads = append(m.Uploads, blob)
	return fmt.Sprintf("mock://%s/%d", sessionID, len(m.Uploads)-1), nil
}

// Count returns the number of successful uploads.
func (m *MockUploader) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Uploads)
}

var _ Uploader = (*MockUploader)(nil)
