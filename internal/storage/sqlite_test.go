package storage

import (
	"context"
	"testing"
	"time"
)

func TestOpenAndMigrate(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	// All tables from the migration should exist.
	for _, table := range []string{
		"document_chunks", "legislation_sections", "case_summaries",
		"legal_principles", "interactions",
	} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	// FTS virtual table as well.
	var name string
	if err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE name='chunk_fts'").Scan(&name); err != nil {
		t.Errorf("chunk_fts missing: %v", err)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	s.Close()

	// Re-opening must not re-apply migrations.
	s, err = Open(dir)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s.Close()

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		t.Fatalf("counting versions: %v", err)
	}
	if count != 1 {
		t.Errorf("schema_version rows = %d, want 1", count)
	}
}

func TestInteractions(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"i1", "i2", "i3"} {
		err := s.SaveInteraction(ctx, Interaction{
			ID:         id,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			Question:   "q" + id,
			Complexity: "moderate",
			Provider:   "fastMultimodal",
			Effort:     "standard",
		})
		if err != nil {
			t.Fatalf("SaveInteraction(%s): %v", id, err)
		}
	}

	got, err := s.RecentInteractions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentInteractions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d interactions, want 2", len(got))
	}
	if got[0].ID != "i3" || got[1].ID != "i2" {
		t.Errorf("order = %s, %s; want i3, i2", got[0].ID, got[1].ID)
	}
	if got[0].Question != "qi3" {
		t.Errorf("Question = %q", got[0].Question)
	}
}

func TestStats(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.SaveInteraction(ctx, Interaction{ID: "i1", Question: "q"}); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Interactions != 1 {
		t.Errorf("Interactions = %d, want 1", st.Interactions)
	}
	if st.Chunks != 0 {
		t.Errorf("Chunks = %d, want 0", st.Chunks)
	}
}
