package store

// AnalysisSegment is the stored analysis of one recorded segment.
// Results holds the flat analysis object, unwrapped from whatever envelope it was posted in.
type AnalysisSegment struct {
	ID           int32
	UID          string
	SessionID    string
	SegmentIndex int32
	Results      string // JSON
	CreatedTs    int64
	UpdatedTs    int64
}

// UpsertAnalysisSegment writes the result of (SessionID, SegmentIndex), replacing an earlier one.
type UpsertAnalysisSegment struct {
	UID          string
	SessionID    string
	SegmentIndex int32
	Results      string
}

type FindAnalysisSegment struct {
	ID           *int32
	SessionID    *string
	SegmentIndex *int32
	Limit        int
}

type DeleteAnalysisSegment struct {
	SessionID *string
	// CreatedBefore deletes segments created before this unix timestamp.
	CreatedBefore *int64
}
