// Package composer assembles provider payloads: formatted document
// sources, knowledge context, conversation history, and the user query.
// Truncation is by fixed character caps rather than token counts so the
// same inputs always produce the same payload.
package composer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmarek/casebook/internal/provider"
	"github.com/dmarek/casebook/internal/retrieval"
)

const maxSourceChars = 800

const (
	sourcesBegin = "--- BEGIN DOCUMENT SOURCES ---"
	sourcesEnd   = "--- END DOCUMENT SOURCES ---"
)

// SystemPrompt frames every generation request.
const SystemPrompt = `You are a legal research assistant. Answer precisely and cite ` +
	`authority where you rely on it. When you are uncertain, say so; never invent ` +
	`cases, statutes, or citations. This is legal information, not legal advice.`

// CitationInstruction is appended to the payload only when document
// sources are present, so providers never cite sources that do not exist.
const CitationInstruction = `When your answer relies on one of the numbered document ` +
	`sources above, cite it inline as [Source N]. Only cite sources that appear between ` +
	`the document source markers; do not cite anything else in this form.`

// FormatSearchContext renders retrieval results as numbered source blocks
// wrapped in start/end markers. Each block carries the file name plus any
// page, section, or timestamp metadata, followed by at most 800 characters
// of chunk content. Empty input yields an empty string.
func FormatSearchContext(results []retrieval.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, sourceLabel(i+1, r)+"\n"+truncate(r.Content, maxSourceChars))
	}

	return sourcesBegin + "\n\n" + strings.Join(blocks, "\n\n") + "\n\n" + sourcesEnd
}

func sourceLabel(n int, r retrieval.SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[Source %d: %s", n, r.SourceFileName)
	if r.PageNumber != nil {
		fmt.Fprintf(&sb, ", page %d", *r.PageNumber)
	}
	if r.SectionHeading != nil && *r.SectionHeading != "" {
		fmt.Fprintf(&sb, ", section %q", *r.SectionHeading)
	}
	if r.TimestampStart != nil {
		fmt.Fprintf(&sb, ", t=%.0fs", *r.TimestampStart)
	}
	sb.WriteString("]")
	return sb.String()
}

// BuildMessages produces the final message list: system framing, then up
// to the last historyWindow conversation turns (0 passes history through
// unmodified), then a single user message holding the context blocks and
// the query. Empty context blocks are dropped.
func BuildMessages(system string, history []provider.Message, historyWindow int, contextBlocks []string, query string) []provider.Message {
	if historyWindow > 0 && len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	msgs := make([]provider.Message, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, provider.Message{Role: "system", Content: system})
	}
	msgs = append(msgs, history...)

	parts := make([]string, 0, len(contextBlocks)+1)
	for _, block := range contextBlocks {
		if strings.TrimSpace(block) != "" {
			parts = append(parts, block)
		}
	}
	parts = append(parts, query)

	msgs = append(msgs, provider.Message{Role: "user", Content: strings.Join(parts, "\n\n")})
	return msgs
}

// truncate bounds s to max bytes, backing off to a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
