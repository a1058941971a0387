// Package knowledge builds bounded text blocks from the curated legal
// corpus for inclusion in provider prompts. The corpus holds case-law
// summaries, doctrinal principles, and legislation sections; lookups are
// read-only keyword and substring matches, never network calls.
package knowledge

import "context"

// CaseSummary is one curated case-law entry. Landmark cases rank ahead of
// others in search results.
type CaseSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Citation     string   `json:"citation"`
	Court        string   `json:"court"`
	Year         int      `json:"year"`
	Jurisdiction string   `json:"jurisdiction"`
	Summary      string   `json:"summary"`
	Holding      string   `json:"holding"`
	KeyPoints    []string `json:"key_points"`
	Landmark     bool     `json:"landmark"`
}

// LegalPrinciple is a doctrinal principle entry.
type LegalPrinciple struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	KeyPoints   []string `json:"key_points"`
}

// LegislationSection is one statutory provision tagged with lookup keywords.
type LegislationSection struct {
	ID           string   `json:"id"`
	Act          string   `json:"act"`
	Section      string   `json:"section"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	Jurisdiction string   `json:"jurisdiction"`
	Keywords     []string `json:"keywords"`
}

// Corpus is a read-only view over the curated legal reference data.
type Corpus interface {
	// SearchCases returns cases whose name, summary, or holding contains
	// any of the keywords, landmark cases first, capped at limit.
	SearchCases(ctx context.Context, keywords []string, limit int) ([]CaseSummary, error)
	// SearchPrinciples returns principles whose name, description, or
	// category contains any of the keywords, capped at limit.
	SearchPrinciples(ctx context.Context, keywords []string, limit int) ([]LegalPrinciple, error)
	// LegislationByKeyword returns sections whose keyword tag list contains
	// the exact keyword, capped at limit.
	LegislationByKeyword(ctx context.Context, keyword string, limit int) ([]LegislationSection, error)
}
