// Package classify derives a reasoning-complexity level from raw query text.
// Classification is a pure function over the query string: no I/O, no state,
// so results are reproducible and the package is trivially safe for
// concurrent use.
package classify

import "strings"

// Level is the reasoning complexity of a query.
type Level string

const (
	Simple   Level = "simple"
	Moderate Level = "moderate"
	Deep     Level = "deep"
)

// deepSignals are phrases that indicate a query needs multi-step legal
// reasoning: strategy language, named doctrines, and analytical cues.
// Matching is case-insensitive substring containment; each phrase counts
// at most once.
var deepSignals = []string{
	// Strategy and analysis cues.
	"strategy",
	"strategic",
	"implications",
	"weigh the",
	"pros and cons",
	"compare",
	"distinguish",
	"analyze",
	"analyse",
	"assess the risk",
	"likelihood of success",
	"strengths and weaknesses",
	"argue",
	"counterargument",
	// Named doctrines and terms of art.
	"reasonable notice",
	"wrongful dismissal",
	"constructive dismissal",
	"duty of care",
	"standard of care",
	"balance of probabilities",
	"burden of proof",
	"vicarious liability",
	"contributory negligence",
	"mitigation of damages",
	"specific performance",
	"injunctive relief",
	"unjust enrichment",
	"promissory estoppel",
	"fiduciary duty",
	"undue influence",
	"misrepresentation",
	"force majeure",
	"limitation period",
	"statutory interpretation",
}

// Classify maps a query to a complexity Level.
//
// Rules are evaluated top to bottom and the first match wins:
//  1. fewer than 8 words and no signals        -> Simple
//  2. two or more signals                      -> Deep
//  3. one signal and more than 15 words        -> Deep
//  4. one signal                               -> Moderate
//  5. more than 30 words                       -> Moderate
//  6. otherwise                                -> Simple
//
// Rule 5 is unreachable whenever a signal matched (rule 4 catches it first).
// That fallthrough is load-bearing: a one-signal query of any length between
// 8 and 15 words lands on Moderate, and callers tune effort defaults around
// it. Do not reorder.
func Classify(query string) Level {
	q := strings.ToLower(query)
	words := len(strings.Fields(query))

	signals := 0
	for _, phrase := range deepSignals {
		if strings.Contains(q, phrase) {
			signals++
		}
	}

	switch {
	case words < 8 && signals == 0:
		return Simple
	case signals >= 2:
		return Deep
	case signals == 1 && words > 15:
		return Deep
	case signals == 1:
		return Moderate
	case words > 30:
		return Moderate
	default:
		return Simple
	}
}

// SignalCount returns the number of distinct deep-reasoning signals in the
// query. Exposed for diagnostics and tests.
func SignalCount(query string) int {
	q := strings.ToLower(query)
	n := 0
	for _, phrase := range deepSignals {
		if strings.Contains(q, phrase) {
			n++
		}
	}
	return n
}
