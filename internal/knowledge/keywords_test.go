package knowledge

import (
	"reflect"
	"testing"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "lowercases and strips punctuation",
			query: "What is the Reasonable Notice period?",
			want:  []string{"reasonable", "notice", "period"},
		},
		{
			name:  "drops stop words and short tokens",
			query: "how do I sue my employer for unfair dismissal",
			want:  []string{"sue", "employer", "unfair", "dismissal"},
		},
		{
			name:  "deduplicates preserving first appearance",
			query: "notice notice period NOTICE severance period",
			want:  []string{"notice", "period", "severance"},
		},
		{
			name:  "keeps numeric tokens",
			query: "section 123 of the act",
			want:  []string{"section", "123", "act"},
		},
		{
			name:  "splits on apostrophes and hyphens",
			query: "employer's good-faith obligation",
			want:  []string{"employer", "good", "faith", "obligation"},
		},
		{
			name:  "empty query",
			query: "",
			want:  []string{},
		},
		{
			name:  "punctuation only",
			query: "?!... --- ;;",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractKeywords(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}
