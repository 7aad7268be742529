// Package domain contains the core business entities and types.
package domain

import (
	"time"
)

// MediaKind selects which output the extractor produces.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// Ext returns the container extension for the kind.
func (k MediaKind) Ext() string {
	if k == KindAudio {
		return "mp3"
	}
	return "mp4"
}

// RecordStatus is the terminal state of a download attempt.
type RecordStatus string

const (
	RecordStatusDone  RecordStatus = "done"
	RecordStatusError RecordStatus = "error"
)

// DownloadRecord is the audit row written after every extraction attempt.
type DownloadRecord struct {
	ID        string       `json:"id"`
	URL       string       `json:"url"`
	Kind      MediaKind    `json:"kind"`
	Filename  string       `json:"filename,omitempty"`
	Status    RecordStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewRecord creates a DownloadRecord for the given request.
func NewRecord(id, url string, kind MediaKind) *DownloadRecord {
	return &DownloadRecord{
		ID:        id,
		URL:       url,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkDone records a successful extraction.
func (r *DownloadRecord) MarkDone(filename string) {
	r.Status = RecordStatusDone
	r.Filename = filename
}

// MarkError records a failed extraction with its internal category.
func (r *DownloadRecord) MarkError(category string) {
	r.Status = RecordStatusError
	r.Error = category
}

// Metadata is the slice of the extractor's JSON output the gateway cares
// about. The ID field is known to carry a literal "!" placeholder when the
// extractor cannot resolve a title; filename derivation must not trust it.
type Metadata struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Fulltitle string  `json:"fulltitle"`
	Ext       string  `json:"ext"`
	Duration  float64 `json:"duration"`
}

// TokenResponse is the JSON body returned when a client asks for a
// deferred download link instead of the file itself.
type TokenResponse struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error    string `json:"error"`
	LoginURL string `json:"login_url,omitempty"`
}
