package seed

import "strings"

// chunkSize is the target chunk length in characters. Paragraphs are
// packed up to this size; a single paragraph longer than the target is
// hard-split so no chunk greatly exceeds it.
const chunkSize = 1200

// splitChunks breaks text into chunks of roughly chunkSize characters,
// preferring paragraph boundaries. Whitespace-only input yields nothing.
func splitChunks(text string) []string {
	var chunks []string
	var cur strings.Builder

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > chunkSize {
			flush()
			for _, piece := range hardSplit(para, chunkSize) {
				chunks = append(chunks, piece)
			}
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(para)+2 > chunkSize {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	flush()
	return chunks
}

// hardSplit cuts an oversized paragraph at word boundaries.
func hardSplit(para string, size int) []string {
	var pieces []string
	var cur strings.Builder
	for _, word := range strings.Fields(para) {
		if cur.Len() > 0 && cur.Len()+len(word)+1 > size {
			pieces = append(pieces, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}
