package model

import "time"

// Mode distinguishes practice by chapter from practice by exam paper.
type Mode string

const (
	ModeChapters Mode = "chapters"
	ModePapers   Mode = "papers"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeChapters || m == ModePapers
}

// Question is a single practice question filed under a bucket.
// (Subject, Year, Mode, Bucket) is the bucket key; Bucket is compared as-is,
// without case or whitespace normalization.
// Solution and SolutionImage are optional and empty when absent.
type Question struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	Year          int       `json:"year"`
	Mode          Mode      `json:"mode"`
	Bucket        string    `json:"bucket"`
	Question      string    `json:"question"`
	Solution      string    `json:"solution,omitempty"`
	SolutionImage string    `json:"solution_image,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Filter narrows a catalog query. Zero-valued fields impose no constraint.
type Filter struct {
	Subject string
	Year    int
	Mode    Mode
	Bucket  string
}
