package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/wingman/plugin/timeout"
)

// DefaultAnalysisType is sent with every trigger request.
const DefaultAnalysisType = "comprehensive"

// HTTPTrigger posts jobs as JSON to an analysis function endpoint.
type HTTPTrigger struct {
	URL          string
	APIKey       string
	AnalysisType string
	Client       *http.Client
}

// NewHTTPTrigger creates an HTTPTrigger for the given endpoint.
func NewHTTPTrigger(url, apiKey string) *HTTPTrigger {
	return &HTTPTrigger{
		URL:          url,
		APIKey:       apiKey,
		AnalysisType: DefaultAnalysisType,
		Client:       &http.Client{Timeout: timeout.CollaboratorTimeout},
	}
}

type triggerRequest struct {
	Job
	AnalysisType string `json:"analysisType"`
}

// Trigger sends one job. Any non-2xx response is an error.
func (t *HTTPTrigger) Trigger(ctx context.Context, job Job) error {
	payload, err := json.Marshal(triggerRequest{Job: job, AnalysisType: t.AnalysisType})
	if err != nil {
		return errors.Wrap(err, "failed to encode analysis request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create analysis request")
	}
	req.Header.Set("Content-Type", "application/json")
	if t.APIKey != "" {
		req.Header.Set("X-API-Key", t.APIKey)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "analysis request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, int64(timeout.MaxTruncateLength)))
		return errors.Errorf("analysis service %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var _ Trigger = (*HTTPTrigger)(nil)
