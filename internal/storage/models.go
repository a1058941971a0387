package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is the routing metadata kept for each answered question.
// Question text is stored for the listing surface; responses are not
// persisted by this core.
type Interaction struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Question   string    `json:"question"`
	Complexity string    `json:"complexity"`
	Provider   string    `json:"provider"`
	Effort     string    `json:"effort"`
}

// Stats holds row counts for the status surface.
type Stats struct {
	Chunks              int `json:"chunks"`
	LegislationSections int `json:"legislation_sections"`
	CaseSummaries       int `json:"case_summaries"`
	Principles          int `json:"principles"`
	Interactions        int `json:"interactions"`
}
