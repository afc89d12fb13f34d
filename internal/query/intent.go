// Package query routes free-text questions to the suitability rules, a
// district lookup or the semantic index, and renders the answer.
package query

import (
	"strings"

	"github.com/mwiater/geoassist/internal/district"
	"github.com/mwiater/geoassist/internal/suitability"
)

// IntentKind enumerates the routes a query can take.
type IntentKind int

const (
	IntentSuitability IntentKind = iota + 1
	IntentDistrict
	IntentSemantic
)

// Intent is the classified form of a query.
type Intent struct {
	Kind IntentKind
	// Suitability is set for IntentSuitability.
	Suitability suitability.Kind
	// District is set for IntentDistrict.
	District district.Record
}

// String is the label used in logs, metrics and the API.
func (i Intent) String() string {
	switch i.Kind {
	case IntentSuitability:
		return "suitability:" + i.Suitability.String()
	case IntentDistrict:
		return "district"
	case IntentSemantic:
		return "semantic"
	}
	return "unknown"
}

var suitabilityPhrases = []struct {
	kind    suitability.Kind
	phrases []string
}{
	{suitability.Agriculture, []string{"suitable for agriculture"}},
	{suitability.Solar, []string{"suitable for solar"}},
	{suitability.Urban, []string{"suitable for urban", "urban development"}},
}

// Classify picks the route for text. Suitability phrases win over district
// names, and district names win over the semantic fallback. Among district
// names the first one declared in the collection wins, even when a longer
// name also matches.
func Classify(text string, districts *district.Collection) Intent {
	lower := strings.ToLower(text)
	for _, sp := range suitabilityPhrases {
		for _, phrase := range sp.phrases {
			if strings.Contains(lower, phrase) {
				return Intent{Kind: IntentSuitability, Suitability: sp.kind}
			}
		}
	}
	if districts != nil {
		if rec, ok := districts.Mentioned(lower); ok {
			return Intent{Kind: IntentDistrict, District: rec}
		}
	}
	return Intent{Kind: IntentSemantic}
}
