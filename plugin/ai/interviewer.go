package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/wingman/plugin/analysis"
	"github.com/hrygo/wingman/plugin/interview"
)

const interviewerPrompt = `You are an experienced interviewer conducting a %s interview (difficulty: %s) for a software engineering position.
Ask concise, direct questions of one or two sentences. Ask one question at a time and build on the candidate's previous answers.
Reply with the question only.`

const feedbackPrompt = `You are an interview coach. Review the %s interview transcript below and give the candidate brief, specific feedback:
two strengths, two areas to improve, and one concrete suggestion for the next practice session.`

// NextQuestion asks the model for the next interviewer question given the conversation so far.
func (p *Provider) NextQuestion(ctx context.Context, history []interview.Turn, interviewType, difficulty string) (string, error) {
	if difficulty == "" {
		difficulty = "medium"
	}
	messages := []Message{{Role: "system", Content: fmt.Sprintf(interviewerPrompt, interviewType, difficulty)}}
	for _, turn := range history {
		role := "user"
		if turn.Role == interview.RoleInterviewer {
			role = "assistant"
		}
		messages = append(messages, Message{Role: role, Content: turn.Content})
	}
	if len(history) == 0 {
		messages = append(messages, Message{Role: "user", Content: "Please start the interview with your first question."})
	}
	return p.Chat(ctx, messages)
}

// Feedback summarizes the candidate's performance over the whole conversation.
// When report is non-empty its headline metrics are appended to the transcript.
func (p *Provider) Feedback(ctx context.Context, session interview.Session, turns []interview.Turn, report *analysis.Report) (string, error) {
	var transcript strings.Builder
	for _, turn := range turns {
		if turn.Placeholder {
			continue
		}
		speaker := "Candidate"
		if turn.Role == interview.RoleInterviewer {
			speaker = "Interviewer"
		}
		fmt.Fprintf(&transcript, "%s: %s\n", speaker, turn.Content)
	}
	if transcript.Len() == 0 {
		return "", fmt.Errorf("no conversation to review")
	}
	if !report.IsEmpty() {
		transcript.WriteString("\nDelivery analysis:\n")
		fmt.Fprintf(&transcript, "Overall score: %.1f (grade %s)\n", report.Overall.OverallScore, report.Overall.Grade)
		fmt.Fprintf(&transcript, "Speaking rate: %.0f words per minute\n", report.Speech.WordsPerMinute)
		fmt.Fprintf(&transcript, "Filler words: %d (%.1f%%)\n", report.Speech.FillerWords.Count, report.Speech.FillerWords.Percentage)
		fmt.Fprintf(&transcript, "Eye contact: %.2f\n", report.Confidence.AverageEyeContactScore)
	}
	return p.Chat(ctx, []Message{
		{Role: "system", Content: fmt.Sprintf(feedbackPrompt, session.InterviewType)},
		{Role: "user", Content: transcript.String()},
	})
}

var _ interview.QuestionGenerator = (*Provider)(nil)
