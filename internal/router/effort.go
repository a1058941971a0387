package router

import (
	"fmt"

	"github.com/dmarek/casebook/internal/provider"
)

// EffortLevel is the caller-chosen knob trading latency and cost against
// reasoning depth.
type EffortLevel string

const (
	EffortQuick    EffortLevel = "quick"
	EffortStandard EffortLevel = "standard"
	EffortThorough EffortLevel = "thorough"
	EffortDeep     EffortLevel = "deep"
)

// EffortProfile is the per-call budget an effort level maps to. The table
// is static: the same effort always produces the same profile.
type EffortProfile struct {
	ReasoningDepth      provider.ReasoningDepth
	MaxOutputTokens     int
	RetrievalChunkLimit int
}

var effortProfiles = map[EffortLevel]EffortProfile{
	EffortQuick:    {ReasoningDepth: provider.ReasoningNone, MaxOutputTokens: 1024, RetrievalChunkLimit: 4},
	EffortStandard: {ReasoningDepth: provider.ReasoningLow, MaxOutputTokens: 2048, RetrievalChunkLimit: 8},
	EffortThorough: {ReasoningDepth: provider.ReasoningMedium, MaxOutputTokens: 4096, RetrievalChunkLimit: 12},
	EffortDeep:     {ReasoningDepth: provider.ReasoningHigh, MaxOutputTokens: 8192, RetrievalChunkLimit: 16},
}

// ProfileFor returns the budget for the given effort. Unknown levels get
// the standard profile.
func ProfileFor(effort EffortLevel) EffortProfile {
	if p, ok := effortProfiles[effort]; ok {
		return p
	}
	return effortProfiles[EffortStandard]
}

// ParseEffort validates a caller-supplied effort string. Empty input means
// the caller wants the default and maps to standard.
func ParseEffort(s string) (EffortLevel, error) {
	switch EffortLevel(s) {
	case "":
		return EffortStandard, nil
	case EffortQuick, EffortStandard, EffortThorough, EffortDeep:
		return EffortLevel(s), nil
	default:
		return "", fmt.Errorf("unknown effort level %q", s)
	}
}
