// Package speech adapts an external speech service and local audio playback to the
// interview collaborators.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/wingman/plugin/interview"
	"github.com/hrygo/wingman/plugin/media"
	"github.com/hrygo/wingman/plugin/timeout"
)

// Client talks to a speech service exposing
// POST /api/ai/speech-stream (multipart audio → transcripts) and
// POST /api/ai/text-to-speech (JSON text → MP3).
type Client struct {
	BaseURL string
	Client  *http.Client
	// Diarization asks the service for speaker segments.
	Diarization bool
}

// NewClient creates a speech client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Client:      &http.Client{Timeout: timeout.CollaboratorTimeout},
		Diarization: true,
	}
}

// transcriptResponse covers every shape the speech service has returned.
type transcriptResponse struct {
	Transcripts []struct {
		Text       string `json:"text"`
		Transcript string `json:"transcript"`
	} `json:"transcripts"`
	Transcript      string                     `json:"transcript"`
	SpeakerSegments []interview.SpeakerSegment `json:"speakerSegments"`
}

// Transcribe uploads one answer and normalizes the reply.
func (c *Client) Transcribe(ctx context.Context, audio media.Blob, sessionID string) (*interview.Transcription, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio", fmt.Sprintf("response_%d.webm", time.Now().UnixMilli()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create audio part")
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, errors.Wrap(err, "failed to write audio part")
	}
	_ = w.WriteField("sessionId", sessionID)
	_ = w.WriteField("enableDiarization", fmt.Sprintf("%t", c.Diarization))
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finish multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/ai/speech-stream", &body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transcription request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	data, err := c.do(req)
	if err != nil {
		return nil, errors.Wrap(err, "transcription request failed")
	}
	return ParseTranscription(data)
}

// ParseTranscription normalizes a speech service reply. Entries of "transcripts" are joined
// with spaces, each using "text" or else "transcript"; a top-level "transcript" is the fallback.
func ParseTranscription(data []byte) (*interview.Transcription, error) {
	var resp transcriptResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrap(err, "invalid transcription response")
	}

	var text string
	if len(resp.Transcripts) > 0 {
		parts := make([]string, 0, len(resp.Transcripts))
		for _, t := range resp.Transcripts {
			s := t.Text
			if s == "" {
				s = t.Transcript
			}
			parts = append(parts, s)
		}
		text = strings.TrimSpace(strings.Join(parts, " "))
	} else {
		text = strings.TrimSpace(resp.Transcript)
	}
	return &interview.Transcription{Text: text, Segments: resp.SpeakerSegments}, nil
}

// Synthesize returns MP3 audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode synthesis request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/ai/text-to-speech", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create synthesis request")
	}
	req.Header.Set("Content-Type", "application/json")

	audio, err := c.do(req)
	if err != nil {
		return nil, errors.Wrap(err, "synthesis request failed")
	}
	if len(audio) == 0 {
		return nil, errors.New("empty synthesis response")
	}
	return audio, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("speech service %s: %s", resp.Status, truncate(string(data)))
	}
	return data, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > timeout.MaxTruncateLength {
		return s[:timeout.MaxTruncateLength] + "..."
	}
	return s
}

var (
	_ interview.Transcriber = (*Client)(nil)
	_ interview.Synthesizer = (*Client)(nil)
)
