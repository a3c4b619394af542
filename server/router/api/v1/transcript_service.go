package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SessionTranscript is the wire form of a stored conversation.
type SessionTranscript struct {
	SessionID     string          `json:"sessionId"`
	InterviewType string          `json:"interviewType"`
	Status        string          `json:"status"`
	Turns         json.RawMessage `json:"conversationTranscript"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// GetSessionTranscript returns the conversation of a finished session.
// GET /api/v1/sessions/:id/transcript
func (s *APIV1Service) GetSessionTranscript(c echo.Context) error {
	sessionID := c.Param("id")
	transcript, err := s.Store.GetSessionTranscript(c.Request().Context(), sessionID)
	if err != nil {
		slog.Error("failed to get transcript", "session_id", sessionID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to get transcript")
	}
	if transcript == nil {
		return errorJSON(c, http.StatusNotFound, "transcript not found")
	}
	return c.JSON(http.StatusOK, &SessionTranscript{
		SessionID:     transcript.SessionID,
		InterviewType: transcript.InterviewType,
		Status:        transcript.Status,
		Turns:         json.RawMessage(transcript.Turns),
		UpdatedAt:     time.Unix(transcript.UpdatedTs, 0).UTC(),
	})
}
