package store

// SessionTranscript is the conversation of one finished interview session.
type SessionTranscript struct {
	ID            int32
	SessionID     string
	InterviewType string
	Status        string
	Turns         string // JSON array of turns
	CreatedTs     int64
	UpdatedTs     int64
}

type UpsertSessionTranscript struct {
	SessionID     string
	InterviewType string
	Status        string
	Turns         string
}

type FindSessionTranscript struct {
	SessionID *string
	Limit     int
}

type DeleteSessionTranscript struct {
	SessionID *string
	// UpdatedBefore deletes transcripts last written before this unix timestamp.
	UpdatedBefore *int64
}
