package query

import (
	"fmt"
	"strings"

	"github.com/mwiater/geoassist/internal/rag"
)

// FormatText renders an answer as plain text for a terminal.
func FormatText(a Answer) string {
	var b strings.Builder
	switch a.Route {
	case IntentSuitability:
		if len(a.Suitable) == 0 {
			fmt.Fprintf(&b, "No suitable districts found for %s.", a.Label)
			break
		}
		fmt.Fprintf(&b, "Suitable districts for %s:", a.Label)
		for _, name := range a.Suitable {
			fmt.Fprintf(&b, "\n  - %s", name)
		}
	case IntentDistrict:
		b.WriteString(FormatDistrict(a))
	default:
		if len(a.Snippets) == 0 {
			b.WriteString("No matching documentation found.")
			break
		}
		b.WriteString("From the documentation:\n\n")
		b.WriteString(rag.FormatResults(a.Snippets, 0))
	}
	return b.String()
}

// FormatDistrict renders the district summary of a lookup answer.
func FormatDistrict(a Answer) string {
	if a.District == nil {
		return ""
	}
	d := a.District
	elevation := "unknown"
	if d.AverageElevation != nil {
		elevation = fmt.Sprintf("%.2f m", *d.AverageElevation)
	}
	dominant := d.DominantLULC
	if dominant == "" {
		dominant = "none"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "District: %s\nAverage elevation: %s\nDominant land cover: %s", d.Name, elevation, dominant)
	for _, c := range d.LULCClasses {
		fmt.Fprintf(&b, "\n  %-20s %6.2f%%", c.ClassName, c.Percentage)
	}
	return b.String()
}
