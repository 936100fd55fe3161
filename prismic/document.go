package prismic

import (
	"encoding/json"
	"fmt"
)

// Document is a single CMS record as returned by the search endpoint.
// Data is kept raw so callers decode it into their own custom type shape.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid,omitempty"`
	Type                 string          `json:"type"`
	Lang                 string          `json:"lang,omitempty"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	LastPublicationDate  *string         `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// DecodeData unmarshals the document's data payload into v.
func (d Document) DecodeData(v any) error {
	if len(d.Data) == 0 || string(d.Data) == "null" {
		return &SchemaError{What: fmt.Sprintf("empty data for %s %q", d.Type, d.ID)}
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return &SchemaError{What: fmt.Sprintf("data for %s %q", d.Type, d.ID), Err: err}
	}
	return nil
}

// Response is one page of search results.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Next returns the next page cursor, or "" when the results are exhausted.
func (r Response) Next() string {
	if r.NextPage == nil {
		return ""
	}
	return *r.NextPage
}

// Ref is a content release pointer advertised by the API root.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

type apiRoot struct {
	Refs []Ref `json:"refs"`
}
