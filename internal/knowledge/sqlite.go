package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var _ Corpus = (*SQLiteCorpus)(nil)

// SQLiteCorpus serves curated corpus lookups from the shared database.
// Keyword matching relies on SQLite's case-insensitive LIKE; callers pass
// lowercased keywords.
type SQLiteCorpus struct {
	db *sql.DB
}

func NewSQLiteCorpus(db *sql.DB) *SQLiteCorpus {
	return &SQLiteCorpus{db: db}
}

func (c *SQLiteCorpus) SearchCases(ctx context.Context, keywords []string, limit int) ([]CaseSummary, error) {
	clause, args := likeClause([]string{"name", "summary", "holding"}, keywords)
	if clause == "" {
		return nil, nil
	}
	q := `SELECT id, name, citation, court, year, jurisdiction, summary, holding, key_points, landmark
		FROM case_summaries WHERE ` + clause + ` ORDER BY landmark DESC, name ASC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cases: %w", err)
	}
	defer rows.Close()

	var cases []CaseSummary
	for rows.Next() {
		var cs CaseSummary
		var keyPoints string
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.Citation, &cs.Court, &cs.Year,
			&cs.Jurisdiction, &cs.Summary, &cs.Holding, &keyPoints, &cs.Landmark); err != nil {
			return nil, fmt.Errorf("scanning case: %w", err)
		}
		cs.KeyPoints = decodeStrings(keyPoints)
		cases = append(cases, cs)
	}
	return cases, rows.Err()
}

func (c *SQLiteCorpus) SearchPrinciples(ctx context.Context, keywords []string, limit int) ([]LegalPrinciple, error) {
	clause, args := likeClause([]string{"name", "description", "category"}, keywords)
	if clause == "" {
		return nil, nil
	}
	q := `SELECT id, name, category, description, key_points
		FROM legal_principles WHERE ` + clause + ` ORDER BY name ASC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying principles: %w", err)
	}
	defer rows.Close()

	var principles []LegalPrinciple
	for rows.Next() {
		var p LegalPrinciple
		var keyPoints string
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &keyPoints); err != nil {
			return nil, fmt.Errorf("scanning principle: %w", err)
		}
		p.KeyPoints = decodeStrings(keyPoints)
		principles = append(principles, p)
	}
	return principles, rows.Err()
}

func (c *SQLiteCorpus) LegislationByKeyword(ctx context.Context, keyword string, limit int) ([]LegislationSection, error) {
	// Keywords are stored as a JSON string array; matching the quoted form
	// requires the exact tag rather than a substring of a longer tag.
	q := `SELECT id, act, section, title, body, jurisdiction, keywords
		FROM legislation_sections WHERE keywords LIKE ? ORDER BY act ASC, section ASC LIMIT ?`

	rows, err := c.db.QueryContext(ctx, q, `%"`+keyword+`"%`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying legislation: %w", err)
	}
	defer rows.Close()

	var sections []LegislationSection
	for rows.Next() {
		var s LegislationSection
		var keywords string
		if err := rows.Scan(&s.ID, &s.Act, &s.Section, &s.Title, &s.Body,
			&s.Jurisdiction, &keywords); err != nil {
			return nil, fmt.Errorf("scanning legislation: %w", err)
		}
		s.Keywords = decodeStrings(keywords)
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (c *SQLiteCorpus) InsertCase(ctx context.Context, cs CaseSummary) error {
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO case_summaries (id, name, citation, court, year, jurisdiction, summary, holding, key_points, landmark)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cs.ID, cs.Name, cs.Citation, cs.Court, cs.Year, cs.Jurisdiction,
		cs.Summary, cs.Holding, encodeStrings(cs.KeyPoints), cs.Landmark)
	if err != nil {
		return fmt.Errorf("inserting case %q: %w", cs.Name, err)
	}
	return nil
}

func (c *SQLiteCorpus) InsertPrinciple(ctx context.Context, p LegalPrinciple) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO legal_principles (id, name, category, description, key_points)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Category, p.Description, encodeStrings(p.KeyPoints))
	if err != nil {
		return fmt.Errorf("inserting principle %q: %w", p.Name, err)
	}
	return nil
}

func (c *SQLiteCorpus) InsertLegislation(ctx context.Context, s LegislationSection) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO legislation_sections (id, act, section, title, body, jurisdiction, keywords)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Act, s.Section, s.Title, s.Body, s.Jurisdiction, encodeStrings(s.Keywords))
	if err != nil {
		return fmt.Errorf("inserting legislation %s s %s: %w", s.Act, s.Section, err)
	}
	return nil
}

// likeClause ORs a LIKE condition per column per keyword. Empty keywords
// produce an empty clause, meaning no query should run.
func likeClause(columns, keywords []string) (string, []any) {
	var conds []string
	var args []any
	for _, kw := range keywords {
		for _, col := range columns {
			conds = append(conds, col+" LIKE ?")
			args = append(args, "%"+kw+"%")
		}
	}
	return strings.Join(conds, " OR "), args
}

func encodeStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeStrings(data string) []string {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}
