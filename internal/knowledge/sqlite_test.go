package knowledge

import (
	"context"
	"testing"

	"github.com/dmarek/casebook/internal/storage"
)

func openCorpus(t *testing.T) *SQLiteCorpus {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewSQLiteCorpus(store.DB())
}

func TestSearchCases_LandmarkFirst(t *testing.T) {
	c := openCorpus(t)
	ctx := context.Background()

	seed := []CaseSummary{
		{Name: "Wallace v United Grain Growers", Citation: "[1997] 3 SCR 701",
			Court: "SCC", Year: 1997, Jurisdiction: "CA",
			Summary: "Bad faith in the manner of dismissal.", Holding: "Extended notice for bad-faith dismissal."},
		{Name: "Bardal v Globe & Mail", Citation: "[1960] OWN 253",
			Court: "Ontario High Court", Year: 1960, Jurisdiction: "ON",
			Summary: "Factors for reasonable notice on dismissal.", Holding: "Notice turns on character of employment.",
			KeyPoints: []string{"age", "availability of similar employment"}, Landmark: true},
		{Name: "Unrelated Tax Case", Citation: "[2001] 1 FC 3",
			Court: "FCA", Year: 2001, Jurisdiction: "CA",
			Summary: "Input tax credits.", Holding: "Credits denied."},
	}
	for _, cs := range seed {
		if err := c.InsertCase(ctx, cs); err != nil {
			t.Fatalf("InsertCase: %v", err)
		}
	}

	cases, err := c.SearchCases(ctx, []string{"dismissal"}, 5)
	if err != nil {
		t.Fatalf("SearchCases: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("got %d cases, want 2: %v", len(cases), cases)
	}
	if !cases[0].Landmark || cases[0].Name != "Bardal v Globe & Mail" {
		t.Errorf("landmark case not ranked first: %+v", cases[0])
	}
	if len(cases[0].KeyPoints) != 2 {
		t.Errorf("KeyPoints = %v", cases[0].KeyPoints)
	}
}

func TestSearchCases_EmptyKeywords(t *testing.T) {
	c := openCorpus(t)
	cases, err := c.SearchCases(context.Background(), nil, 5)
	if err != nil {
		t.Fatalf("SearchCases: %v", err)
	}
	if len(cases) != 0 {
		t.Errorf("got %v, want none", cases)
	}
}

func TestSearchCases_Limit(t *testing.T) {
	c := openCorpus(t)
	ctx := context.Background()
	names := []string{"A v B", "C v D", "E v F"}
	for _, n := range names {
		if err := c.InsertCase(ctx, CaseSummary{Name: n, Summary: "constructive dismissal claim"}); err != nil {
			t.Fatalf("InsertCase: %v", err)
		}
	}

	cases, err := c.SearchCases(ctx, []string{"constructive"}, 2)
	if err != nil {
		t.Fatalf("SearchCases: %v", err)
	}
	if len(cases) != 2 {
		t.Errorf("got %d cases, want 2", len(cases))
	}
}

func TestSearchPrinciples(t *testing.T) {
	c := openCorpus(t)
	ctx := context.Background()

	seed := []LegalPrinciple{
		{Name: "Duty to Mitigate", Category: "damages",
			Description: "A dismissed employee must seek comparable employment.",
			KeyPoints:   []string{"burden on employer"}},
		{Name: "Contra Proferentem", Category: "contract",
			Description: "Ambiguity is resolved against the drafter."},
	}
	for _, p := range seed {
		if err := c.InsertPrinciple(ctx, p); err != nil {
			t.Fatalf("InsertPrinciple: %v", err)
		}
	}

	principles, err := c.SearchPrinciples(ctx, []string{"mitigate"}, 5)
	if err != nil {
		t.Fatalf("SearchPrinciples: %v", err)
	}
	if len(principles) != 1 || principles[0].Name != "Duty to Mitigate" {
		t.Fatalf("principles = %v", principles)
	}
	if len(principles[0].KeyPoints) != 1 {
		t.Errorf("KeyPoints = %v", principles[0].KeyPoints)
	}

	// Category matches count too.
	principles, err = c.SearchPrinciples(ctx, []string{"contract"}, 5)
	if err != nil {
		t.Fatalf("SearchPrinciples: %v", err)
	}
	if len(principles) != 1 || principles[0].Name != "Contra Proferentem" {
		t.Errorf("principles = %v", principles)
	}
}

func TestLegislationByKeyword_ExactTagMatch(t *testing.T) {
	c := openCorpus(t)
	ctx := context.Background()

	seed := []LegislationSection{
		{Act: "Employment Standards Act", Section: "54", Title: "Notice of termination",
			Body: "No employer shall terminate without notice.", Jurisdiction: "ON",
			Keywords: []string{"notice", "termination"}},
		{Act: "Employment Standards Act", Section: "64", Title: "Severance entitlement",
			Body: "Severance pay applies where...", Jurisdiction: "ON",
			Keywords: []string{"severance", "reasonable notice"}},
	}
	for _, s := range seed {
		if err := c.InsertLegislation(ctx, s); err != nil {
			t.Fatalf("InsertLegislation: %v", err)
		}
	}

	// "notice" must match the exact tag, not the "reasonable notice" tag on s 64.
	sections, err := c.LegislationByKeyword(ctx, "notice", 3)
	if err != nil {
		t.Fatalf("LegislationByKeyword: %v", err)
	}
	if len(sections) != 1 || sections[0].Section != "54" {
		t.Fatalf("sections = %v, want only s 54", sections)
	}
	if len(sections[0].Keywords) != 2 {
		t.Errorf("Keywords = %v", sections[0].Keywords)
	}

	sections, err = c.LegislationByKeyword(ctx, "unrelated", 3)
	if err != nil {
		t.Fatalf("LegislationByKeyword: %v", err)
	}
	if len(sections) != 0 {
		t.Errorf("sections = %v, want none", sections)
	}
}
