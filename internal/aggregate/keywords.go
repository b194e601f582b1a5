package aggregate

import (
	"maps"
	"slices"
	"strings"
)

// CurationKeywords flag ortholog descriptions that hint at a multi-part
// enzyme. They help a curator decide between isozymes and a complex.
var CurationKeywords = []string{
	"effector",
	"anchor",
	"auxiliary",
	"carrier",
	"pts",
	"subunit",
	"chain",
	"reductase component",
}

// SpontaneousKeywords mark a reaction comment as non-enzymatic.
var SpontaneousKeywords = []string{
	"spontaneous",
	"non enzymatic",
	"non-enzymatic",
	"nonenzymatic",
}

// MatchKeywords returns the CurationKeywords found, case-insensitively, in
// any description, in CurationKeywords order.
func MatchKeywords(descriptions map[string]string) []string {
	var hits []string
	texts := make([]string, 0, len(descriptions))
	for _, k := range slices.Sorted(maps.Keys(descriptions)) {
		texts = append(texts, strings.ToLower(descriptions[k]))
	}
	for _, kw := range CurationKeywords {
		for _, text := range texts {
			if strings.Contains(text, kw) {
				hits = append(hits, kw)
				break
			}
		}
	}
	return hits
}

// IsSpontaneous reports whether comment contains a spontaneity keyword.
func IsSpontaneous(comment string) bool {
	lower := strings.ToLower(comment)
	for _, kw := range SpontaneousKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
