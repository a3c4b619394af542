package ai

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/wingman/plugin/interview"
	"github.com/hrygo/wingman/plugin/media"
)

// Synthesize turns text into MP3 audio.
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var audio []byte
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(p.config.TTSModel),
			Input:          text,
			Voice:          openai.SpeechVoice(p.config.TTSVoice),
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err != nil {
			return err
		}
		defer resp.Close()
		audio, err = io.ReadAll(resp)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to synthesize speech")
	}
	if len(audio) == 0 {
		return nil, errors.New("empty speech response")
	}
	return audio, nil
}

// Transcribe converts one answer's audio to text. Timed segments of the verbose response are
// kept as candidate speaker segments.
func (p *Provider) Transcribe(ctx context.Context, audio media.Blob, sessionID string) (*interview.Transcription, error) {
	var resp openai.AudioResponse
	err := p.doWithRetry(ctx, func() error {
		var err error
		resp, err = p.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    p.config.STTModel,
			FilePath: fmt.Sprintf("%s_answer%s", sessionID, extensionFor(audio.MimeType)),
			Reader:   audio.Reader(),
			Format:   openai.AudioResponseFormatVerboseJSON,
		})
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to transcribe audio")
	}

	result := &interview.Transcription{Text: strings.TrimSpace(resp.Text)}
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, interview.SpeakerSegment{
			Speaker: string(interview.RoleCandidate),
			Text:    text,
			Start:   seg.Start,
			End:     seg.End,
		})
	}
	return result, nil
}

func extensionFor(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(base) {
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mp4", "video/mp4":
		return ".mp4"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".webm"
	}
}

var (
	_ interview.Synthesizer = (*Provider)(nil)
	_ interview.Transcriber = (*Provider)(nil)
)
