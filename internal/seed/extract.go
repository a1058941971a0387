package seed

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// PageText is extracted text with optional page attribution. Page is nil
// for formats without page structure.
type PageText struct {
	Page *int
	Text string
}

// extractFile pulls plain text from a document, returning per-page text
// where the format has pages and the stored file type.
func extractFile(path string) ([]PageText, string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err := extractPDF(path)
		return pages, "pdf", err
	case ".html", ".htm":
		text, err := extractHTMLFile(path)
		if err != nil {
			return nil, "html", err
		}
		return []PageText{{Text: text}}, "html", nil
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "text", fmt.Errorf("reading %s: %w", path, err)
		}
		return []PageText{{Text: string(data)}}, "text", nil
	default:
		return nil, "", fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func extractPDF(path string) ([]PageText, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var pages []PageText
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		n := i
		pages = append(pages, PageText{Page: &n, Text: text})
	}
	return pages, nil
}

func extractHTMLFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening html %s: %w", path, err)
	}
	defer f.Close()
	return stripHTML(f)
}

// stripHTML returns the visible text of an HTML document, skipping script
// and style subtrees.
func stripHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String(), nil
}
