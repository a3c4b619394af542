package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wingman/plugin/analysis"
)

const segmentsJSON = `[
	{"id":"a","sessionId":"s","segmentIndex":1,"results":{"speech_analysis":{"transcript":"second","total_words":30,"words_per_minute":140,"filler_words":{"count":1}},"overall_score":{"overall_score":0.8}}},
	{"id":"b","sessionId":"s","segmentIndex":0,"results":{"speech_analysis":{"transcript":"first","total_words":10,"words_per_minute":100,"filler_words":{"count":2}},"overall_score":{"overall_score":0.9}}},
	{"id":"c","sessionId":"s","segmentIndex":2,"results":{}}
]`

func TestAggregateCommand_JSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "segments.json")
	require.NoError(t, os.WriteFile(file, []byte(segmentsJSON), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"aggregate", "--file", file, "--json"})
	require.NoError(t, rootCmd.Execute())

	var report analysis.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 2, report.SegmentCount)
	assert.Equal(t, "first second", report.Speech.Transcript)
	assert.Equal(t, 40, report.Speech.TotalWords)
	assert.InDelta(t, 7.5, report.Speech.FillerWords.Percentage, 1e-9)
	assert.Equal(t, "B", report.Overall.Grade)
}

func TestAggregateCommand_Stdin(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetIn(bytes.NewBufferString(segmentsJSON))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"aggregate", "--json=false", "--file", "-"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "first second")
	assert.Contains(t, out.String(), "Speech")
}

func TestRenderReport(t *testing.T) {
	records, err := analysis.DecodeRecordList([]byte(segmentsJSON))
	require.NoError(t, err)
	text := renderReport(analysis.Aggregate(records))
	for _, want := range []string{"Overall", "85%", "words per minute", "40", "Transcript"} {
		assert.Contains(t, text, want)
	}
	assert.Contains(t, renderReport(analysis.Aggregate(nil)), "No analysis results.")
}

func TestLoadProfile(t *testing.T) {
	t.Setenv("WINGMAN_STORAGE_BACKEND", "local")
	t.Setenv("WINGMAN_POLL_INTERVAL", "20s")
	viper.Set("data", t.TempDir())
	viper.Set("results-url", "store")
	t.Cleanup(viper.Reset)

	p, err := loadProfile()
	require.NoError(t, err)
	assert.Equal(t, "dev", p.Mode)
	assert.Equal(t, "sqlite", p.Driver)
	assert.Equal(t, "store", p.ResultsURL)
	assert.Equal(t, 20.0, p.PollInterval.Seconds())
	assert.Equal(t, filepath.Join(p.Data, "wingman_dev.db"), p.DSN)
}
