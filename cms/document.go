package cms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the timestamp format of the CMS API. Offsets carry no colon,
// so the values are not RFC 3339.
const TimeLayout = "2006-01-02T15:04:05-0700"

// Document is a raw CMS document. Data holds the type-specific fields and is
// decoded by the caller.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid,omitempty"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href,omitempty"`
	Tags                 []string        `json:"tags,omitempty"`
	FirstPublicationDate *time.Time      `json:"first_publication_date"`
	LastPublicationDate  *time.Time      `json:"last_publication_date"`
	Lang                 string          `json:"lang,omitempty"`
	Data                 json.RawMessage `json:"data"`
}

type documentJSON Document

type documentWire struct {
	*documentJSON
	FirstPublicationDate json.RawMessage `json:"first_publication_date"`
	LastPublicationDate  json.RawMessage `json:"last_publication_date"`
}

// UnmarshalJSON decodes a document, accepting CMS and RFC 3339 timestamps.
// Dates are returned in UTC; a null or missing date leaves the field nil.
func (d *Document) UnmarshalJSON(b []byte) error {
	w := documentWire{documentJSON: (*documentJSON)(d)}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var err error
	if d.FirstPublicationDate, err = parseTime(w.FirstPublicationDate); err != nil {
		return fmt.Errorf("first_publication_date: %w", err)
	}
	if d.LastPublicationDate, err = parseTime(w.LastPublicationDate); err != nil {
		return fmt.Errorf("last_publication_date: %w", err)
	}
	return nil
}

// MarshalJSON encodes a document with timestamps in TimeLayout.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentWire{
		documentJSON:         (*documentJSON)(&d),
		FirstPublicationDate: formatTime(d.FirstPublicationDate),
		LastPublicationDate:  formatTime(d.LastPublicationDate),
	})
}

func parseTime(raw json.RawMessage) (*time.Time, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{TimeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("cms: unrecognized timestamp %q", s)
}

func formatTime(t *time.Time) json.RawMessage {
	if t == nil {
		return json.RawMessage("null")
	}
	return json.RawMessage(`"` + t.Format(TimeLayout) + `"`)
}

// Response is one page of a document query.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         string     `json:"next_page"`
	PrevPage         string     `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Ref is a content release pointer. Queries must name the ref they read.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

type apiInfo struct {
	Refs []Ref `json:"refs"`
}
