package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// HTTPSource lists results from the results API (GET /api/v1/sessions/:id/analysis).
type HTTPSource struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPSource creates an HTTPSource.
func NewHTTPSource(baseURL, apiKey string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ListResults fetches the records of a session. A 404 maps to ErrNotReady.
func (s *HTTPSource) ListResults(ctx context.Context, sessionID string) ([]Record, error) {
	endpoint := fmt.Sprintf("%s/api/v1/sessions/%s/analysis", s.BaseURL, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create results request")
	}
	req.Header.Set("Accept", "application/json")
	if s.APIKey != "" {
		req.Header.Set("X-API-Key", s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch analysis results")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotReady
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read analysis results")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("results %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return DecodeRecordList(body)
}

// DecodeRecordList decodes a JSON array of records, or an object wrapping one under "results".
// Entries that are not objects are kept as empty records so they count as received but invalid.
func DecodeRecordList(body []byte) ([]Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var wrapped struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, errors.Wrap(err, "invalid results envelope")
		}
		body = wrapped.Results
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "results are not a JSON array")
	}
	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		var r Record
		if err := json.Unmarshal(item, &r); err != nil {
			records = append(records, Record{Payload: item})
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
