package v1

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/wingman/plugin/analysis"
	"github.com/hrygo/wingman/store"
)

// maxAnalysisBodySize bounds one posted analysis result.
const maxAnalysisBodySize = 16 << 20

// AnalysisSegment is the wire form of a stored analysis result.
type AnalysisSegment struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"sessionId"`
	SegmentIndex int32           `json:"segmentIndex"`
	Results      json.RawMessage `json:"results"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// CreateAnalysisSegment stores the analysis of one segment. The body may carry the analysis
// under "results" or "analysisData", or flat next to "segmentIndex".
// POST /api/v1/sessions/:id/analysis
func (s *APIV1Service) CreateAnalysisSegment(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("id")
	if sessionID == "" {
		return errorJSON(c, http.StatusBadRequest, "session id is required")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxAnalysisBodySize))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "failed to read request body")
	}

	var record analysis.Record
	if err := json.Unmarshal(body, &record); err != nil {
		return errorJSON(c, http.StatusBadRequest, "body must be a JSON object")
	}
	results, err := analysis.NormalizePayload(body)
	if err == nil {
		_, err = analysis.DecodeRecord(analysis.Record{SegmentIndex: record.SegmentIndex, Payload: results})
	}
	if err != nil {
		msg := "analysis result is malformed"
		if errors.Is(err, analysis.ErrEmptyResult) {
			msg = "analysis result is empty"
		}
		return errorJSON(c, http.StatusBadRequest, msg)
	}
	if record.SegmentIndex < 0 {
		return errorJSON(c, http.StatusBadRequest, "segmentIndex must not be negative")
	}
	if record.SegmentIndex > math.MaxInt32 {
		return errorJSON(c, http.StatusBadRequest, "segmentIndex is out of range")
	}

	segment, err := s.Store.UpsertAnalysisSegment(ctx, &store.UpsertAnalysisSegment{
		UID:          shortuuid.New(),
		SessionID:    sessionID,
		SegmentIndex: int32(record.SegmentIndex),
		Results:      string(results),
	})
	if err != nil {
		slog.Error("failed to store analysis segment", "session_id", sessionID, "segment_index", record.SegmentIndex, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to store analysis result")
	}
	s.invalidateReport(c, sessionID)

	slog.Info("analysis results stored", "session_id", sessionID, "segment_index", segment.SegmentIndex, "uid", segment.UID)
	return c.JSON(http.StatusCreated, convertAnalysisSegmentFromStore(segment))
}

// ListAnalysisSegments lists the stored results of a session; 404 until the first arrives.
// GET /api/v1/sessions/:id/analysis
func (s *APIV1Service) ListAnalysisSegments(c echo.Context) error {
	segments, err := s.listSegments(c)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return errorJSON(c, http.StatusNotFound, "no analysis results")
	}
	out := make([]*AnalysisSegment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, convertAnalysisSegmentFromStore(seg))
	}
	return c.JSON(http.StatusOK, out)
}

// GetAggregatedReport folds every stored segment of a session into one report.
// GET /api/v1/sessions/:id/analysis/aggregate
func (s *APIV1Service) GetAggregatedReport(c echo.Context) error {
	ctx := c.Request().Context()
	key := reportCacheKey(c.Param("id"))
	if s.Cache != nil {
		if data, ok := s.Cache.Get(ctx, key); ok {
			c.Response().Header().Set("X-Cache", "HIT")
			return c.JSONBlob(http.StatusOK, data)
		}
	}

	segments, err := s.listSegments(c)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return errorJSON(c, http.StatusNotFound, "no analysis results")
	}
	records := make([]analysis.Record, 0, len(segments))
	for _, seg := range segments {
		records = append(records, analysis.RecordFromSegment(seg))
	}

	data, err := json.Marshal(analysis.Aggregate(records))
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to encode report")
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, data, reportTTL); err != nil {
			slog.Warn("failed to cache report", "key", key, "error", err)
		}
	}
	c.Response().Header().Set("X-Cache", "MISS")
	return c.JSONBlob(http.StatusOK, data)
}

func (s *APIV1Service) listSegments(c echo.Context) ([]*store.AnalysisSegment, error) {
	sessionID := c.Param("id")
	segments, err := s.Store.ListAnalysisSegments(c.Request().Context(), &store.FindAnalysisSegment{SessionID: &sessionID})
	if err != nil {
		slog.Error("failed to list analysis segments", "session_id", sessionID, "error", err)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to list analysis results")
	}
	return segments, nil
}

func (s *APIV1Service) invalidateReport(c echo.Context, sessionID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(c.Request().Context(), reportCacheKey(sessionID)); err != nil {
		slog.Warn("failed to invalidate cached report", "session_id", sessionID, "error", err)
	}
}

func reportCacheKey(sessionID string) string {
	return "report:" + sessionID
}

func convertAnalysisSegmentFromStore(seg *store.AnalysisSegment) *AnalysisSegment {
	return &AnalysisSegment{
		ID:           seg.UID,
		SessionID:    seg.SessionID,
		SegmentIndex: seg.SegmentIndex,
		Results:      json.RawMessage(seg.Results),
		CreatedAt:    time.Unix(seg.CreatedTs, 0).UTC(),
		UpdatedAt:    time.Unix(seg.UpdatedTs, 0).UTC(),
	}
}
