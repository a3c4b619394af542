package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wingman/internal/observability"
	"github.com/hrygo/wingman/plugin/metrics"
)

func newTestDispatcher(trigger Trigger, recorder metrics.Recorder) *Dispatcher {
	return NewDispatcher(Config{
		Trigger:     trigger,
		MinInterval: time.Millisecond,
		MaxInterval: 5 * time.Millisecond,
		Metrics:     recorder,
	})
}

func TestNewDispatcher_Defaults(t *testing.T) {
	d := NewDispatcher(Config{})
	assert.Equal(t, 2*time.Second, d.cfg.MinInterval)
	assert.Equal(t, 30*time.Second, d.cfg.MaxInterval)
	assert.Equal(t, 4, d.cfg.Fanout)
}

func TestTriggerAnalysis(t *testing.T) {
	tests := []struct {
		name        string
		trigger     *MockTrigger
		maxAttempts int
		wantOK      bool
		wantCalls   int
	}{
		{name: "first attempt", trigger: &MockTrigger{}, maxAttempts: 3, wantOK: true, wantCalls: 1},
		{name: "succeeds after retries", trigger: &MockTrigger{FailFirst: 2}, maxAttempts: 3, wantOK: true, wantCalls: 3},
		{name: "exhausted", trigger: &MockTrigger{AlwaysFail: true}, maxAttempts: 3, wantOK: false, wantCalls: 3},
		{name: "single attempt", trigger: &MockTrigger{AlwaysFail: true}, maxAttempts: 1, wantOK: false, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts []Attempt
			ok := newTestDispatcher(tt.trigger, nil).TriggerAnalysis(context.Background(), "mock://s/0", "s", 0, tt.maxAttempts,
				func(a Attempt) { attempts = append(attempts, a) })

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCalls, tt.trigger.Calls(0))
			require.Len(t, attempts, tt.wantCalls)
			for i, a := range attempts {
				assert.Equal(t, i+1, a.Number)
				assert.Equal(t, tt.maxAttempts, a.MaxAttempts)
			}
			assert.Equal(t, tt.wantOK, attempts[len(attempts)-1].Succeeded())
		})
	}
}

func TestTriggerAnalysis_CanceledContext(t *testing.T) {
	trigger := &MockTrigger{AlwaysFail: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := newTestDispatcher(trigger, nil).TriggerAnalysis(ctx, "mock://s/0", "s", 0, 5, nil)
	assert.False(t, ok)
	assert.LessOrEqual(t, trigger.Calls(0), 1)
}

func TestTriggerAnalysis_ReleasesBackoffOnSuccess(t *testing.T) {
	d := newTestDispatcher(&MockTrigger{}, nil)
	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		require.True(t, d.TriggerAnalysis(context.Background(), "mock://s/0", "s", i, 3, nil))
	}
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, time.Second, 10*time.Millisecond)
}

func TestTriggerAnalysis_LogsWithSessionContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	d := NewDispatcher(Config{Trigger: &MockTrigger{}, MinInterval: time.Millisecond, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	sc := observability.NewSessionContext(logger, "s", "technical")

	require.True(t, d.TriggerAnalysis(observability.WithSessionContext(context.Background(), sc), "mock://s/2", "s", 2, 1, nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "analysis triggered", entry["msg"])
	assert.Equal(t, sc.RunID, entry[observability.LogFieldRunID])
	assert.EqualValues(t, 2, entry[observability.LogFieldSegmentIndex])
}

func TestTriggerAnalysis_RecordsMetrics(t *testing.T) {
	agg := metrics.NewAggregator()
	newTestDispatcher(&MockTrigger{FailFirst: 1}, agg).TriggerAnalysis(context.Background(), "u", "s", 0, 3, nil)

	stat := agg.Snapshot().Calls[metrics.CollaboratorAnalysis]
	require.NotNil(t, stat)
	assert.Equal(t, int64(2), stat.Count)
	assert.InDelta(t, 0.5, stat.SuccessRate, 1e-6)
}

func TestTriggerAll(t *testing.T) {
	trigger := &MockTrigger{FailFirst: 1}
	jobs := make([]Job, 6)
	for i := range jobs {
		jobs[i] = Job{URI: "mock://s/" + string(rune('0'+i)), SessionID: "s", SegmentIndex: i}
	}

	var reports int
	accepted := newTestDispatcher(trigger, nil).TriggerAll(context.Background(), jobs, 2, func(Attempt) { reports++ })
	assert.Equal(t, 6, accepted)
	assert.Equal(t, 6, trigger.AcceptedCount())
	assert.Equal(t, 12, reports)
}

func TestHTTPTrigger(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gs://b/x.webm", body["videoUri"])
		assert.Equal(t, "s1", body["sessionId"])
		assert.EqualValues(t, 2, body["segmentIndex"])
		assert.Equal(t, "comprehensive", body["analysisType"])
		if n == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := newTestDispatcher(NewHTTPTrigger(srv.URL, ""), nil)
	ok := d.TriggerAnalysis(context.Background(), "gs://b/x.webm", "s1", 2, 3, nil)
	assert.True(t, ok)
	assert.Equal(t, int32(2), hits.Load())
}
