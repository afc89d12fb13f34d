// Package aggregate reduces sampled raster cells to per-district statistics.
package aggregate

import (
	"fmt"
	"math"
	"sort"
)

// ClassShare is one land-cover class and the share of a district it covers.
type ClassShare struct {
	ClassName  string  `json:"class_name"`
	Percentage float64 `json:"percentage"`
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MeanElevation returns the mean of values rounded to two decimals. ok is
// false for an empty sample; callers store that as a missing elevation, never 0.
func MeanElevation(values []float64) (mean float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Round2(sum / float64(len(values))), true
}

// LandCover counts cell values per class and converts the counts to
// percentages of the valid cells. Values missing from classes are reported as
// "Unknown (<value>)". The result is ordered by descending percentage, with
// ties broken by ascending class code.
//
// Each percentage is rounded to two decimals on its own, so the shares need
// not sum to exactly 100.
func LandCover(values []float64, classes map[int]string) []ClassShare {
	if len(values) == 0 {
		return []ClassShare{}
	}
	counts := make(map[int]int)
	for _, v := range values {
		counts[int(math.Round(v))]++
	}

	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		ci, cj := counts[codes[i]], counts[codes[j]]
		if ci != cj {
			return ci > cj
		}
		return codes[i] < codes[j]
	})

	total := float64(len(values))
	out := make([]ClassShare, 0, len(codes))
	for _, code := range codes {
		out = append(out, ClassShare{
			ClassName:  ClassName(code, classes),
			Percentage: Round2(float64(counts[code]) / total * 100),
		})
	}
	return out
}

// ClassName resolves a raster value to its configured class label.
func ClassName(code int, classes map[int]string) string {
	if name, ok := classes[code]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", code)
}

// Dominant returns the class with the largest share, assuming shares are
// ordered as LandCover orders them.
func Dominant(shares []ClassShare) (string, bool) {
	if len(shares) == 0 {
		return "", false
	}
	return shares[0].ClassName, true
}

// Total sums the percentages of shares.
func Total(shares []ClassShare) float64 {
	var sum float64
	for _, s := range shares {
		sum += s.Percentage
	}
	return sum
}
