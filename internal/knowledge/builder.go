package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	maxCases       = 5
	maxPrinciples  = 5
	maxLegislation = 3
	maxBodyChars   = 500
)

// Builder assembles knowledge context text from the corpus. Corpus lookup
// failures degrade to a smaller (possibly empty) context rather than
// failing the caller's request.
type Builder struct {
	corpus Corpus
	logger *slog.Logger
}

func NewBuilder(corpus Corpus) *Builder {
	return &Builder{corpus: corpus, logger: slog.Default()}
}

// BuildLegalContext returns a bounded text block of case law, principles,
// and legislation relevant to the query, in that fixed order. An empty
// query or a query with no matches returns the empty string.
//
// Legislation is scanned keyword by keyword and stops at the first keyword
// that yields any hits. Later keywords are never consulted once one has
// matched; this bounds lookup cost and keeps a single statutory theme per
// answer.
func (b *Builder) BuildLegalContext(ctx context.Context, query string) string {
	keywords := ExtractKeywords(query)
	if len(keywords) == 0 {
		return ""
	}

	var blocks []string

	cases, err := b.corpus.SearchCases(ctx, keywords, maxCases)
	if err != nil {
		b.logger.Warn("case-law lookup failed", "error", err)
	} else if len(cases) > 0 {
		blocks = append(blocks, formatCases(cases))
	}

	principles, err := b.corpus.SearchPrinciples(ctx, keywords, maxPrinciples)
	if err != nil {
		b.logger.Warn("principle lookup failed", "error", err)
	} else if len(principles) > 0 {
		blocks = append(blocks, formatPrinciples(principles))
	}

	for _, kw := range keywords {
		sections, err := b.corpus.LegislationByKeyword(ctx, kw, maxLegislation)
		if err != nil {
			b.logger.Warn("legislation lookup failed", "keyword", kw, "error", err)
			continue
		}
		if len(sections) > 0 {
			blocks = append(blocks, formatLegislation(sections))
			break
		}
	}

	return strings.Join(blocks, "\n\n")
}

func formatCases(cases []CaseSummary) string {
	var sb strings.Builder
	sb.WriteString("RELEVANT CASE LAW:")
	for _, c := range cases {
		fmt.Fprintf(&sb, "\n\n%s, %s (%s, %d, %s)", c.Name, c.Citation, c.Court, c.Year, c.Jurisdiction)
		if c.Summary != "" {
			fmt.Fprintf(&sb, "\nSummary: %s", clip(c.Summary))
		}
		if c.Holding != "" {
			fmt.Fprintf(&sb, "\nHolding: %s", clip(c.Holding))
		}
		writeKeyPoints(&sb, c.KeyPoints)
	}
	return sb.String()
}

func formatPrinciples(principles []LegalPrinciple) string {
	var sb strings.Builder
	sb.WriteString("RELEVANT LEGAL PRINCIPLES:")
	for _, p := range principles {
		fmt.Fprintf(&sb, "\n\n%s (%s)", p.Name, p.Category)
		if p.Description != "" {
			fmt.Fprintf(&sb, "\n%s", clip(p.Description))
		}
		writeKeyPoints(&sb, p.KeyPoints)
	}
	return sb.String()
}

func formatLegislation(sections []LegislationSection) string {
	var sb strings.Builder
	sb.WriteString("RELEVANT LEGISLATION:")
	for _, s := range sections {
		fmt.Fprintf(&sb, "\n\n%s, s %s: %s (%s)", s.Act, s.Section, s.Title, s.Jurisdiction)
		if s.Body != "" {
			fmt.Fprintf(&sb, "\n%s", clip(s.Body))
		}
	}
	return sb.String()
}

func writeKeyPoints(sb *strings.Builder, points []string) {
	for _, p := range points {
		fmt.Fprintf(sb, "\n- %s", p)
	}
}

// clip bounds corpus text by characters, not tokens, so output size is
// reproducible across providers.
func clip(s string) string {
	if len(s) <= maxBodyChars {
		return s
	}
	cut := maxBodyChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
