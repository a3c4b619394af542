package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hrygo/wingman/plugin/analysis"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	gradeStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("42"))

	questionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("135"))
	okStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// renderReport renders an aggregated report for the terminal.
func renderReport(r *analysis.Report) string {
	if r.IsEmpty() {
		return warnStyle.Render("No analysis results.")
	}

	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-22s", label)), valueStyle.Render(value))
	}

	grade := r.Overall.Grade
	if grade == "" {
		grade = "-"
	}
	fmt.Fprintf(&b, "%s %s\n", headerStyle.Render("Overall"), gradeStyle.Render(grade))
	row("score", percent(r.Overall.OverallScore))
	row("segments", fmt.Sprintf("%d", r.SegmentCount))
	row("duration", fmt.Sprintf("%.0fs", r.DurationSec))
	if len(r.Skipped) > 0 {
		row("skipped segments", fmt.Sprint(r.Skipped))
	}

	fmt.Fprintln(&b, headerStyle.Render("Speech"))
	row("words", fmt.Sprintf("%d", r.Speech.TotalWords))
	row("words per minute", fmt.Sprintf("%.0f", r.Speech.WordsPerMinute))
	row("clarity", percent(r.Speech.ClarityScore))
	row("filler words", fmt.Sprintf("%d (%.1f%%)", r.Speech.FillerWords.Count, r.Speech.FillerWords.Percentage))

	fmt.Fprintln(&b, headerStyle.Render("Presence"))
	row("eye contact", percent(r.Confidence.AverageEyeContactScore))
	row("head stability", percent(r.Confidence.HeadStabilityScore))
	row("confidence", percent(r.Confidence.ConfidenceScore))
	for _, emotion := range analysis.Emotions {
		row(emotion, percent(r.Facial.EmotionStatistics[emotion].Average))
	}

	if r.Speech.Transcript != "" {
		fmt.Fprintln(&b, headerStyle.Render("Transcript"))
		fmt.Fprintln(&b, lipgloss.NewStyle().Width(80).Render(r.Speech.Transcript))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
