package service

import (
	"regexp"
	"strconv"

	"github.com/fiqhlab/shariah-qa/internal/model"
)

// markerRegex matches numeric citation markers like [1] or [12] in the
// generated answer text.
var markerRegex = regexp.MustCompile(`\[(\d+)\]`)

// MapCitations resolves every citation marker found in answerText against a
// reference list of refCount entries. The default policy is positional:
// marker n maps to reference index n-1, the order the references were
// presented to the model. An optional override map replaces the positional
// target for specific marker numbers (for upstream remapping heuristics);
// markers it does not cover fall back to the positional policy.
//
// A marker that resolves outside [0, refCount) is recorded as unresolved,
// never clamped or redirected to a nearby reference. Pure function: same
// inputs, same map.
func MapCitations(answerText string, refCount int, override map[int]int) model.CitationMap {
	citations := make(model.CitationMap)

	for _, match := range markerRegex.FindAllStringSubmatch(answerText, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue // digits too large for int; treat as not a citation
		}
		if _, done := citations[n]; done {
			continue
		}

		idx, ok := override[n]
		if !ok {
			idx = n - 1
		}

		if idx < 0 || idx >= refCount {
			citations[n] = model.CitationRef{RefIndex: -1, Resolved: false}
			continue
		}
		citations[n] = model.CitationRef{RefIndex: idx, Resolved: true}
	}

	return citations
}

// MarkCited flags each reference that a resolved citation points at.
func MarkCited(refs []model.Reference, citations model.CitationMap) {
	for _, c := range citations {
		if c.Resolved && c.RefIndex >= 0 && c.RefIndex < len(refs) {
			refs[c.RefIndex].Cited = true
		}
	}
}
