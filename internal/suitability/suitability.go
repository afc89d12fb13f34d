// Package suitability holds the threshold rules that decide whether a district
// suits a given land use.
package suitability

import (
	"fmt"
	"strings"

	"github.com/mwiater/geoassist/internal/district"
)

// MissingElevation stands in for an unmeasured district so that every
// elevation ceiling rejects it.
const MissingElevation = 10000.0

// Kind is a land use the rules can evaluate.
type Kind int

const (
	Agriculture Kind = iota + 1
	Solar
	Urban
)

// Kinds lists every evaluable land use.
var Kinds = []Kind{Agriculture, Solar, Urban}

// Label is the human readable name used in answers.
func (k Kind) Label() string {
	switch k {
	case Agriculture:
		return "Agriculture"
	case Solar:
		return "Solar"
	case Urban:
		return "Urban Development"
	}
	return "Unknown"
}

// String is the short machine name, used for logs, metrics and the API.
func (k Kind) String() string {
	switch k {
	case Agriculture:
		return "agriculture"
	case Solar:
		return "solar"
	case Urban:
		return "urban"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the short machine name of a kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(strings.TrimSpace(s), k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown suitability kind %q", s)
}

func elevation(r district.Record) float64 {
	if r.AverageElevation == nil {
		return MissingElevation
	}
	return *r.AverageElevation
}

// Evaluate applies the rule for k to one record.
func (k Kind) Evaluate(r district.Record) bool {
	switch k {
	case Agriculture:
		return IsAgriculture(r)
	case Solar:
		return IsSolar(r)
	case Urban:
		return IsUrban(r)
	}
	return false
}

// Filter returns the names of the records that satisfy k, in input order.
func (k Kind) Filter(records []district.Record) []string {
	names := []string{}
	for _, r := range records {
		if k.Evaluate(r) {
			names = append(names, r.Name)
		}
	}
	return names
}

// IsAgriculture: below 500 m with more than 20% agricultural land.
func IsAgriculture(r district.Record) bool {
	if elevation(r) >= 500 {
		return false
	}
	for _, c := range r.LULCClasses {
		if strings.Contains(strings.ToLower(c.ClassName), "agricultur") && c.Percentage > 20 {
			return true
		}
	}
	return false
}

// IsSolar: at most 800 m with more than 10% wasteland.
func IsSolar(r district.Record) bool {
	if elevation(r) > 800 {
		return false
	}
	for _, c := range r.LULCClasses {
		if strings.Contains(strings.ToLower(c.ClassName), "wasteland") && c.Percentage > 10 {
			return true
		}
	}
	return false
}

// UrbanBreakdown is the land-cover split the urban rule looks at.
type UrbanBreakdown struct {
	District     string
	Elevation    float64
	BuiltUp      float64
	Barren       float64
	ForestWater  float64
	HasElevation bool
}

// Breakdown sums class shares into the urban buckets. A class counts toward
// the first bucket it matches, in the order built-up, barren/wasteland,
// forest/water.
func Breakdown(r district.Record) UrbanBreakdown {
	b := UrbanBreakdown{District: r.Name, Elevation: elevation(r), HasElevation: r.HasElevation()}
	for _, c := range r.LULCClasses {
		name := strings.ToLower(c.ClassName)
		switch {
		case strings.Contains(name, "built"):
			b.BuiltUp += c.Percentage
		case strings.Contains(name, "barren"), strings.Contains(name, "wasteland"):
			b.Barren += c.Percentage
		case strings.Contains(name, "forest"), strings.Contains(name, "water"):
			b.ForestWater += c.Percentage
		}
	}
	return b
}

// Suitable applies the urban thresholds to the breakdown.
func (b UrbanBreakdown) Suitable() bool {
	return b.Elevation <= 600 && b.BuiltUp <= 10 && b.Barren >= 5 && b.ForestWater <= 50
}

func (b UrbanBreakdown) String() string {
	elev := "     -"
	if b.HasElevation {
		elev = fmt.Sprintf("%6.1f", b.Elevation)
	}
	return fmt.Sprintf("%-20s | Elev: %sm | Built-up: %5.1f%% | Barren: %5.1f%% | Forest/Water: %5.1f%%",
		b.District, elev, b.BuiltUp, b.Barren, b.ForestWater)
}

// IsUrban: at most 600 m, little existing built-up land, some open barren
// land and not dominated by forest or water.
func IsUrban(r district.Record) bool {
	return Breakdown(r).Suitable()
}
