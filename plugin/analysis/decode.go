package analysis

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyResult means the record carries no analysis content.
	ErrEmptyResult = errors.New("analysis result is empty")
	// ErrMalformedResult means the record content is not an analysis object.
	ErrMalformedResult = errors.New("analysis result is malformed")
)

var recordMetaKeys = map[string]struct{}{
	"id": {}, "sessionId": {}, "segmentIndex": {}, "createdAt": {}, "updatedAt": {}, "userId": {},
}

// DecodeRecord is the single adapter from the shapes the results store produces to a Segment.
// The analysis may be nested under "results" or "analysisData" (either as an object or as a
// JSON-encoded string), or be the flat object itself.
func DecodeRecord(r Record) (*Segment, error) {
	body, err := extractResults(r.Payload)
	if err != nil {
		return nil, err
	}

	var seg Segment
	if err := json.Unmarshal(body, &seg); err != nil {
		return nil, errors.Wrapf(ErrMalformedResult, "segment %d: %v", r.SegmentIndex, err)
	}
	seg.Index = r.SegmentIndex
	seg.RecordID = r.ID
	return &seg, nil
}

// IsValid reports whether the record carries non-empty analysis content.
func IsValid(r Record) bool {
	_, err := DecodeRecord(r)
	return err == nil
}

// NormalizePayload returns the flat analysis object carried by payload, whichever shape it
// was posted in.
func NormalizePayload(payload json.RawMessage) (json.RawMessage, error) {
	return extractResults(payload)
}

func extractResults(payload json.RawMessage) (json.RawMessage, error) {
	obj, err := asObject(payload)
	if err != nil {
		return nil, err
	}

	for _, key := range []string{"results", "analysisData"} {
		nested, ok := obj[key]
		if !ok || isNull(nested) {
			continue
		}
		inner, err := asObject(nested)
		if err != nil {
			return nil, err
		}
		// Old stored format nests one more level under "results".
		if deeper, ok := inner["results"]; ok && len(inner) == 1 {
			if _, err := asObject(deeper); err == nil {
				inner, _ = asObject(deeper)
			}
		}
		if len(inner) == 0 {
			return nil, ErrEmptyResult
		}
		return json.Marshal(inner)
	}

	flat := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		if _, meta := recordMetaKeys[k]; !meta {
			flat[k] = v
		}
	}
	if len(flat) == 0 {
		return nil, ErrEmptyResult
	}
	return json.Marshal(flat)
}

// asObject parses raw as a JSON object, unwrapping one level of string encoding.
func asObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return nil, ErrEmptyResult
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrap(ErrMalformedResult, err.Error())
		}
		raw = bytes.TrimSpace([]byte(s))
		if len(raw) == 0 {
			return nil, ErrEmptyResult
		}
	}
	if raw[0] != '{' {
		return nil, ErrMalformedResult
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.Wrap(ErrMalformedResult, err.Error())
	}
	return obj, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
