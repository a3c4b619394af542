package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hrygo/wingman/internal/errors"
	"github.com/hrygo/wingman/plugin/analysis"
	"github.com/hrygo/wingman/plugin/clock"
	"github.com/hrygo/wingman/plugin/dispatch"
	"github.com/hrygo/wingman/plugin/interview"
	"github.com/hrygo/wingman/plugin/media"
	"github.com/hrygo/wingman/plugin/metrics"
	"github.com/hrygo/wingman/plugin/storage"
)

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	clk         *clock.MockClock
	devices     *media.MockDevices
	encoder     *media.MockEncoder
	uploader    *storage.MockUploader
	trigger     *dispatch.MockTrigger
	source      *analysis.MockSource
	feedback    *MockFeedback
	transcripts *MockTranscriptStore
	outcomes    chan Outcome
	cfg         Config
}

func newFixture(sess interview.Session) *fixture {
	f := &fixture{
		clk:         clock.NewMockClock(testStart),
		devices:     media.NewMockDevices(),
		encoder:     media.NewMockEncoder(),
		uploader:    &storage.MockUploader{},
		trigger:     &dispatch.MockTrigger{},
		source:      &analysis.MockSource{},
		feedback:    &MockFeedback{Text: "Solid answers."},
		transcripts: NewMockTranscriptStore(),
		outcomes:    make(chan Outcome, 1),
	}
	f.cfg = Config{
		Session:     sess,
		Media:       media.NewController(media.Config{Devices: f.devices, Encoder: f.encoder}),
		Generator:   &interview.MockGenerator{Err: errors.New("model offline")},
		Synthesizer: &interview.MockSynthesizer{Audio: []byte("mp3")},
		Player:      &interview.MockPlayer{},
		Transcriber: &interview.MockTranscriber{Default: &interview.Transcription{Text: "I led the migration."}},
		Rand:        rand.New(rand.NewSource(1)),
		Uploader:    f.uploader,
		Trigger:     f.trigger,
		RetryBase:   time.Millisecond,
		Source:      f.source,
		Feedback:    f.feedback,
		Transcripts: f.transcripts,
		Clock:       f.clk,
		OnComplete:  func(o Outcome) { f.outcomes <- o },
	}
	return f
}

func validRecord(index int) analysis.Record {
	return analysis.Record{
		ID:           string(rune('a' + index)),
		SessionID:    "sess",
		SegmentIndex: index,
		Payload:      json.RawMessage(`{"results":{"speech_analysis":{"transcript":"answer","total_words":10}}}`),
	}
}

func conversational(d time.Duration) interview.Session {
	return interview.Session{ID: "sess", InterviewType: "behavioral", Difficulty: "medium", Duration: d, Conversational: true}
}

func (f *fixture) answer(t *testing.T, c *Controller, chunk string) {
	t.Helper()
	require.True(t, c.BeginAnswer())
	f.encoder.Emit([]byte(chunk))
	require.NoError(t, c.EndAnswer(context.Background()))
}

func assertTracksStoppedOnce(t *testing.T, devices *media.MockDevices) {
	t.Helper()
	tracks := devices.Stream.MockTracks()
	require.NotEmpty(t, tracks)
	for _, track := range tracks {
		assert.Equal(t, 1, track.Stops(), track.Kind())
	}
}

func TestController_FortyFiveMinuteSessionWithUploadFailure(t *testing.T) {
	f := newFixture(conversational(45 * time.Minute))
	f.uploader.Err = errors.New("bucket unavailable")
	c := NewController(f.cfg)

	require.NoError(t, c.Start(context.Background()))
	f.encoder.Emit([]byte("header"))
	for i := 0; i < 5; i++ {
		f.answer(t, c, "answer")
	}

	out := c.End(context.Background())
	assert.Equal(t, StatusDegraded, out.Status)
	assert.True(t, apperrors.IsCode(out.Err, apperrors.ErrCodeUploadFailed))
	assert.False(t, out.HasVideo)
	assert.True(t, out.HasConversation)
	assert.Nil(t, out.Report)
	require.NotNil(t, out.Blob)
	assert.Equal(t, "header"+"answeransweransweransweranswer", string(out.Blob.Data))

	candidates := 0
	for _, turn := range out.Turns {
		if turn.Role == interview.RoleCandidate {
			candidates++
			assert.Equal(t, "I led the migration.", turn.Content)
		}
	}
	assert.Equal(t, 5, candidates)
	assert.Len(t, out.Turns, 11)
	assert.Zero(t, f.trigger.Calls(0))

	assertTracksStoppedOnce(t, f.devices)
	assert.Equal(t, out, <-f.outcomes)

	<-c.FeedbackDone()
	assert.Equal(t, 1, f.feedback.Calls())
	saved := f.transcripts.Get("sess")
	require.NotNil(t, saved)
	assert.Equal(t, StatusDegraded, saved.Status)
	assert.Len(t, saved.Turns, 11)

	// End is idempotent and never re-runs the flow.
	again := c.End(context.Background())
	assert.Equal(t, out.Status, again.Status)
	assertTracksStoppedOnce(t, f.devices)
	assert.Equal(t, 0, f.uploader.Count())
}

func TestController_CompletedWithReport(t *testing.T) {
	f := newFixture(conversational(0))
	f.source.Responses = []analysis.MockResponse{{Records: []analysis.Record{validRecord(0)}}}
	c := NewController(f.cfg)

	require.NoError(t, c.Start(context.Background()))
	f.encoder.Emit([]byte("header"))
	f.answer(t, c, "answer")

	out := c.End(context.Background())
	assert.Equal(t, StatusCompleted, out.Status)
	assert.NoError(t, out.Err)
	assert.True(t, out.HasVideo)
	assert.Nil(t, out.Blob)
	assert.Equal(t, analysis.StateSatisfied, out.PollState)
	require.NotNil(t, out.Report)
	assert.Equal(t, 10, out.Report.Speech.TotalWords)
	assert.Equal(t, 1, f.uploader.Count())
	assert.Equal(t, 1, f.trigger.AcceptedCount())

	require.NotNil(t, out.Stats)
	for _, name := range []string{metrics.CollaboratorUpload, metrics.CollaboratorAnalysis, metrics.CollaboratorResults, metrics.CollaboratorTranscribe} {
		assert.Contains(t, out.Stats.Calls, name)
	}
	assertTracksStoppedOnce(t, f.devices)
	<-c.FeedbackDone()
	require.Len(t, f.feedback.Reports, 1)
	assert.Same(t, out.Report, f.feedback.Reports[0])
}

func TestController_RecordedUploadFailureKeepsRecording(t *testing.T) {
	f := newFixture(interview.Session{ID: "sess", InterviewType: "behavioral"})
	f.uploader.Err = errors.New("bucket unavailable")
	c := NewController(f.cfg)

	require.NoError(t, c.Start(context.Background()))
	f.encoder.Emit([]byte("header"))
	f.answer(t, c, "answer")

	out := c.End(context.Background())
	assert.Equal(t, StatusDegraded, out.Status)
	assert.True(t, apperrors.IsCode(out.Err, apperrors.ErrCodeUploadFailed))
	assert.False(t, out.HasVideo)
	assert.False(t, out.HasConversation)
	require.NotNil(t, out.Blob)
	assert.Equal(t, "headeranswer", string(out.Blob.Data))
	assert.Zero(t, f.trigger.Calls(0))
	assertTracksStoppedOnce(t, f.devices)
	<-c.FeedbackDone()
	assert.Zero(t, f.feedback.Calls())
}

func TestController_SegmentedMode(t *testing.T) {
	f := newFixture(interview.Session{ID: "sess", InterviewType: "technical"})
	f.cfg.Segmented = true
	f.trigger.FailFirst = 1
	f.source.Responses = []analysis.MockResponse{{Records: []analysis.Record{validRecord(0), validRecord(1), validRecord(2)}}}
	c := NewController(f.cfg)

	require.NoError(t, c.Start(context.Background()))
	assert.Nil(t, c.Engine())
	f.encoder.Emit([]byte("header"))
	for i := 0; i < 3; i++ {
		f.answer(t, c, "segment")
	}

	out := c.End(context.Background())
	assert.Equal(t, StatusCompleted, out.Status)
	assert.True(t, out.HasVideo)
	assert.False(t, out.HasConversation)
	assert.Equal(t, 3, f.uploader.Count())
	assert.Equal(t, 3, f.trigger.AcceptedCount())
	for i := 0; i < 3; i++ {
		assert.Equal(t, 2, f.trigger.Calls(i))
	}
	assert.Equal(t, 3, out.Progress.Expected)
	require.NotNil(t, out.Report)
	assert.Equal(t, 3, out.Report.SegmentCount)

	<-c.FeedbackDone()
	assert.Zero(t, f.feedback.Calls())
	assert.Nil(t, f.transcripts.Get("sess"))
}

func TestController_DeviceFailure(t *testing.T) {
	f := newFixture(conversational(time.Minute))
	f.devices.Err = errors.New("permission denied")
	c := NewController(f.cfg)

	err := c.Start(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDeviceUnavailable))

	out := <-f.outcomes
	assert.Equal(t, StatusFailed, out.Status)
	assert.True(t, apperrors.IsCode(out.Err, apperrors.ErrCodeDeviceUnavailable))
	assert.False(t, c.BeginAnswer())
	assert.Equal(t, StatusFailed, c.End(context.Background()).Status)
	assert.Zero(t, f.uploader.Count())
}

func TestController_RecordingStartFailureReleasesTracks(t *testing.T) {
	f := newFixture(conversational(time.Minute))
	f.encoder.StartErr = errors.New("codec unsupported")
	var logs bytes.Buffer
	f.cfg.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
	c := NewController(f.cfg)

	err := c.Start(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRecordingStartFailed))

	out := <-f.outcomes
	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, f.encoder.StartErr)
	assert.False(t, c.BeginAnswer())
	assertTracksStoppedOnce(t, f.devices)
	assert.Zero(t, f.uploader.Count())
	assert.Contains(t, logs.String(), `"error_code":"RECORDING_START_FAILED"`)
}

func TestController_CountdownEndsSession(t *testing.T) {
	f := newFixture(conversational(45 * time.Minute))
	f.cfg.Source = nil
	c := NewController(f.cfg)

	require.NoError(t, c.Start(context.Background()))
	f.encoder.Emit([]byte("header"))
	f.answer(t, c, "answer")

	f.clk.BlockUntil(1)
	f.clk.Advance(45 * time.Minute)

	out := <-f.outcomes
	assert.True(t, out.Expired)
	assert.True(t, c.Expired())
	assert.Equal(t, StatusCompleted, out.Status)
	assert.True(t, out.HasVideo)
	assert.False(t, c.BeginAnswer())
	assertTracksStoppedOnce(t, f.devices)
}

func TestController_PollingTimeout(t *testing.T) {
	f := newFixture(interview.Session{ID: "sess", InterviewType: "product"})
	f.cfg.Policy = analysis.Policy{Interval: time.Second, GraceWindow: 2 * time.Second, HardTimeout: 3 * time.Second, AllowFastInterval: true}
	f.source.Responses = []analysis.MockResponse{{Err: analysis.ErrNotReady}}
	c := NewController(f.cfg)

	require.NoError(t, c.Start(context.Background()))
	f.encoder.Emit([]byte("header"))
	f.answer(t, c, "answer")

	done := make(chan Outcome, 1)
	go func() { done <- c.End(context.Background()) }()
	for i := 0; i < 3; i++ {
		f.clk.BlockUntil(1)
		f.clk.Advance(time.Second)
	}

	out := <-done
	assert.Equal(t, StatusDegraded, out.Status)
	assert.Equal(t, analysis.StateTimedOut, out.PollState)
	assert.True(t, apperrors.IsCode(out.Err, apperrors.ErrCodePollingTimeout))
	assert.Nil(t, out.Report)
	assert.True(t, out.HasVideo)
}

func TestController_NothingProduced(t *testing.T) {
	f := newFixture(interview.Session{ID: "sess", InterviewType: "behavioral"})
	c := NewController(f.cfg)

	require.NoError(t, c.Start(context.Background()))
	out := c.End(context.Background())
	assert.Equal(t, StatusFailed, out.Status)
	assert.Error(t, out.Err)
	assertTracksStoppedOnce(t, f.devices)
}

func TestController_EndAnswerWithoutAnswer(t *testing.T) {
	f := newFixture(interview.Session{ID: "sess", InterviewType: "behavioral"})
	c := NewController(f.cfg)
	require.NoError(t, c.Start(context.Background()))

	err := c.EndAnswer(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
	assert.True(t, c.BeginAnswer())
	assert.False(t, c.BeginAnswer())
	c.End(context.Background())

	err = c.EndAnswer(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
}
