package analysis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wingman/plugin/clock"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validRec(index int) Record {
	return rec(index, string(rune('a'+index)), speechPayload("text", 10, 1, 100))
}

func invalidRec(index int) Record {
	return rec(index, string(rune('a'+index)), `{"results":{}}`)
}

func newTestPoller(t *testing.T, expected int, source Source) (*Poller, *clock.MockClock, *[]Progress) {
	t.Helper()
	clk := clock.NewMockClock(testStart)
	var progress []Progress
	p := NewPoller(Config{
		SessionID:  "sess",
		Expected:   expected,
		Source:     source,
		Policy:     DefaultPolicy(),
		Clock:      clk,
		OnProgress: func(pr Progress) { progress = append(progress, pr) },
	})
	return p, clk, &progress
}

func TestPolicy_Normalize(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   Policy
	}{
		{name: "zero uses defaults", policy: Policy{}, want: DefaultPolicy()},
		{name: "interval floor", policy: Policy{Interval: time.Second}, want: DefaultPolicy()},
		{name: "fast interval allowed", policy: Policy{Interval: time.Second, AllowFastInterval: true},
			want: Policy{Interval: time.Second, GraceWindow: 30 * time.Second, HardTimeout: 600 * time.Second, AllowFastInterval: true}},
		{name: "custom thresholds", policy: Policy{Interval: 20 * time.Second, GraceWindow: time.Minute, HardTimeout: time.Hour},
			want: Policy{Interval: 20 * time.Second, GraceWindow: time.Minute, HardTimeout: time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.normalize())
		})
	}
}

func TestPoller_Satisfied(t *testing.T) {
	source := &MockSource{Responses: []MockResponse{
		{Err: ErrNotReady},
		{Records: []Record{validRec(0)}},
	}}
	p, clk, progress := newTestPoller(t, 1, source)

	assert.Equal(t, StateIdle, p.State())
	assert.Equal(t, StatePolling, p.Poll(context.Background()))
	clk.Advance(10 * time.Second)
	assert.Equal(t, StateSatisfied, p.Poll(context.Background()))

	// Terminal states are sticky and stop fetching.
	assert.Equal(t, StateSatisfied, p.Poll(context.Background()))
	assert.Equal(t, 2, source.Calls())

	require.Len(t, *progress, 2)
	assert.Equal(t, "Analysis in progress: 0 of 1 segments analyzed...", (*progress)[0].Message)
	assert.Equal(t, "Analysis complete! Preparing results...", (*progress)[1].Message)
	assert.Len(t, p.Result().Records, 1)
}

func TestPoller_PartialThenForcedComplete(t *testing.T) {
	source := &MockSource{Responses: []MockResponse{
		{Records: []Record{validRec(0), validRec(1), invalidRec(2)}},
	}}
	p, clk, _ := newTestPoller(t, 3, source)

	assert.Equal(t, StatePolling, p.Poll(context.Background()))
	clk.Advance(10 * time.Second)
	assert.Equal(t, StatePolling, p.Poll(context.Background()))
	clk.Advance(10 * time.Second)
	assert.Equal(t, StatePolling, p.Poll(context.Background()))
	clk.Advance(10 * time.Second)
	assert.Equal(t, StateForcedComplete, p.Poll(context.Background()))

	result := p.Result()
	require.Len(t, result.Records, 2)
	report := Aggregate(result.Records)
	assert.Equal(t, 2, report.SegmentCount)
	assert.Equal(t, 20, report.Speech.TotalWords)
}

func TestPoller_ProgressResetsGraceWindow(t *testing.T) {
	source := &MockSource{Responses: []MockResponse{
		{Records: []Record{validRec(0)}},
		{Records: []Record{validRec(0)}},
		{Records: []Record{validRec(0)}},
		{Records: []Record{validRec(0), validRec(1)}},
		{Records: []Record{validRec(0), validRec(1)}},
		{Records: []Record{validRec(0), validRec(1)}},
		{Records: []Record{validRec(0), validRec(1)}},
	}}
	p, clk, _ := newTestPoller(t, 3, source)

	var states []State
	for i := 0; i < 7; i++ {
		states = append(states, p.Poll(context.Background()))
		clk.Advance(10 * time.Second)
	}
	assert.Equal(t, []State{
		StatePolling, StatePolling, StatePolling,
		StatePolling, StatePolling, StatePolling,
		StateForcedComplete,
	}, states)
}

func TestPoller_TransientErrorsDoNotResetTimers(t *testing.T) {
	source := &MockSource{Responses: []MockResponse{
		{Records: []Record{validRec(0)}},
		{Err: errors.New("connection reset")},
		{Err: errors.New("connection reset")},
		{Err: errors.New("connection reset")},
	}}
	p, clk, progress := newTestPoller(t, 2, source)

	assert.Equal(t, StatePolling, p.Poll(context.Background()))
	clk.Advance(10 * time.Second)
	assert.Equal(t, StatePolling, p.Poll(context.Background()))
	assert.Contains(t, (*progress)[1].Message, "retrying")
	assert.Equal(t, 1, (*progress)[1].Valid)
	clk.Advance(10 * time.Second)
	assert.Equal(t, StatePolling, p.Poll(context.Background()))
	clk.Advance(10 * time.Second)
	assert.Equal(t, StateForcedComplete, p.Poll(context.Background()))
	assert.Len(t, p.Result().Records, 1)
}

func TestPoller_HardTimeout(t *testing.T) {
	t.Run("no results", func(t *testing.T) {
		source := &MockSource{Responses: []MockResponse{{Err: ErrNotReady}}}
		p, clk, progress := newTestPoller(t, 1, source)

		state := p.Poll(context.Background())
		for elapsed := time.Duration(0); elapsed < 600*time.Second; elapsed += 10 * time.Second {
			require.Equal(t, StatePolling, state)
			clk.Advance(10 * time.Second)
			state = p.Poll(context.Background())
		}
		assert.Equal(t, StateTimedOut, state)
		last := (*progress)[len(*progress)-1]
		assert.Equal(t, "Analysis is taking longer than expected. Results will be available later.", last.Message)
		assert.False(t, state.HasResults())
	})

	t.Run("invalid records only", func(t *testing.T) {
		source := &MockSource{Responses: []MockResponse{{Records: []Record{invalidRec(0)}}}}
		p, clk, _ := newTestPoller(t, 1, source)

		p.Poll(context.Background())
		clk.Advance(600 * time.Second)
		assert.Equal(t, StateTimedOut, p.Poll(context.Background()))
	})
}

func TestPoller_Run(t *testing.T) {
	source := &MockSource{Responses: []MockResponse{
		{Err: ErrNotReady},
		{Err: ErrNotReady},
		{Records: []Record{validRec(0)}},
	}}
	p, clk, _ := newTestPoller(t, 1, source)

	done := make(chan *Result, 1)
	go func() {
		result, err := p.Run(context.Background())
		assert.NoError(t, err)
		done <- result
	}()

	for i := 0; i < 2; i++ {
		clk.BlockUntil(1)
		clk.Advance(p.Policy().Interval)
	}
	result := <-done
	assert.Equal(t, StateSatisfied, result.State)
	assert.Equal(t, 3, result.Ticks)
}

func TestPoller_RunReentrancyGuard(t *testing.T) {
	source := &MockSource{Responses: []MockResponse{{Err: ErrNotReady}}}
	p, clk, _ := newTestPoller(t, 1, source)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx)
		done <- err
	}()
	clk.BlockUntil(1)

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyPolling)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestHTTPSource_ListResults(t *testing.T) {
	t.Run("records", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/sessions/sess%201/analysis", r.URL.EscapedPath())
			assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"a","sessionId":"sess 1","segmentIndex":0,"results":{"durationSec":3}}]`))
		}))
		defer srv.Close()

		records, err := NewHTTPSource(srv.URL+"/", "secret").ListResults(context.Background(), "sess 1")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.True(t, IsValid(records[0]))
	})

	t.Run("not found means not ready", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, "").ListResults(context.Background(), "sess")
		assert.ErrorIs(t, err, ErrNotReady)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, "").ListResults(context.Background(), "sess")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotReady)
	})
}
