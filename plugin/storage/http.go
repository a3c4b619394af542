package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strings"

	"github.com/pkg/errors"

	apperrors "github.com/hrygo/wingman/internal/errors"
	"github.com/hrygo/wingman/plugin/media"
	"github.com/hrygo/wingman/plugin/timeout"
)

// HTTPUploader posts recordings to an upload service implementing
// POST /api/upload/direct (multipart "file", "sessionId", "key").
type HTTPUploader struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPUploader creates an HTTPUploader.
func NewHTTPUploader(baseURL, apiKey string) *HTTPUploader {
	return &HTTPUploader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout.UploadTimeout},
	}
}

type uploadResponse struct {
	VideoURI string `json:"videoUri"`
	URI      string `json:"uri"`
	Filename string `json:"filename"`
}

// Upload sends the blob and returns the URI reported by the service.
func (u *HTTPUploader) Upload(ctx context.Context, blob media.Blob, sessionID string) (string, error) {
	if blob.IsEmpty() {
		return "", apperrors.UploadFailed("recording is empty", nil)
	}
	key, err := ObjectKey(sessionID, objectName(blob))
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+path.Base(key)+`"`)
	contentType := blob.MimeType
	if contentType == "" {
		contentType = "video/webm"
	}
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", apperrors.UploadFailed("failed to create file part", err)
	}
	if _, err := part.Write(blob.Data); err != nil {
		return "", apperrors.UploadFailed("failed to write file part", err)
	}
	_ = w.WriteField("sessionId", sessionID)
	_ = w.WriteField("key", key)
	if err := w.Close(); err != nil {
		return "", apperrors.UploadFailed("failed to finish multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.BaseURL+"/api/upload/direct", &body)
	if err != nil {
		return "", apperrors.UploadFailed("failed to create upload request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if u.APIKey != "" {
		req.Header.Set("X-API-Key", u.APIKey)
	}

	resp, err := u.Client.Do(req)
	if err != nil {
		return "", apperrors.UploadFailed("upload request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.UploadFailed("failed to read upload response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.UploadFailed("upload rejected",
			errors.Errorf("upload service %s: %s", resp.Status, truncate(string(data)))).
			WithContext("status", resp.StatusCode)
	}

	var out uploadResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", apperrors.UploadFailed("invalid upload response", err)
	}
	switch {
	case out.VideoURI != "":
		return out.VideoURI, nil
	case out.URI != "":
		return out.URI, nil
	case out.Filename != "":
		return out.Filename, nil
	}
	return "", apperrors.UploadFailed("upload response carries no uri", nil)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > timeout.MaxTruncateLength {
		return s[:timeout.MaxTruncateLength] + "..."
	}
	return s
}

var _ Uploader = (*HTTPUploader)(nil)
