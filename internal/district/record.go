// internal/district/record.go
// Package district defines the per-district summary record, its JSON file
// format and the offline pipeline that produces it from geospatial inputs.
package district

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mwiater/geoassist/internal/aggregate"
	"github.com/mwiater/geoassist/internal/util"
	"github.com/xeipuuv/gojsonschema"
)

// ClassShare is one land-cover class share inside a Record.
type ClassShare = aggregate.ClassShare

// Record is the summary of one district. A nil AverageElevation means the DEM
// had no valid cells for the district.
type Record struct {
	Name             string       `json:"district"`
	Latitude         *float64     `json:"latitude,omitempty"`
	Longitude        *float64     `json:"longitude,omitempty"`
	AverageElevation *float64     `json:"average_elevation"`
	LULCClasses      []ClassShare `json:"lulc_classes"`
	DominantLULC     string       `json:"dominant_lulc,omitempty"`
}

// HasElevation reports whether the record carries a measured elevation.
func (r Record) HasElevation() bool { return r.AverageElevation != nil }

// recordSchema describes the district data file. It is checked before
// decoding so a hand-edited file fails with a readable message.
var recordSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []any{"district"},
		"properties": map[string]any{
			"district":          map[string]any{"type": "string"},
			"latitude":          map[string]any{"type": "number", "minimum": -90, "maximum": 90},
			"longitude":         map[string]any{"type": "number", "minimum": -180, "maximum": 180},
			"average_elevation": map[string]any{"type": []any{"number", "null"}},
			"dominant_lulc":     map[string]any{"type": "string"},
			"lulc_classes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"class_name", "percentage"},
					"properties": map[string]any{
						"class_name": map[string]any{"type": "string"},
						"percentage": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
					},
				},
			},
		},
	},
}

// Validate checks a raw district data document against the record schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(recordSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("district data failed validation: %s", strings.Join(details, "; "))
}

// Decode validates and parses a district data document.
func Decode(data []byte) ([]Record, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse district data: %w", err)
	}
	for i := range records {
		if records[i].LULCClasses == nil {
			records[i].LULCClasses = []ClassShare{}
		}
	}
	return records, nil
}

// Read loads the district data file at path.
func Read(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read district data %s: %w", path, err)
	}
	records, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Encode renders records as an indented JSON array. Missing class lists are
// written as [] rather than null.
func Encode(records []Record) ([]byte, error) {
	out := make([]Record, len(records))
	for i, r := range records {
		if r.LULCClasses == nil {
			r.LULCClasses = []ClassShare{}
		}
		out[i] = r
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write stores records at path, creating parent directories as needed.
func Write(path string, records []Record) error {
	data, err := Encode(records)
	if err != nil {
		return fmt.Errorf("encode district data: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(path, data); err != nil {
		return fmt.Errorf("write district data %s: %w", path, err)
	}
	return nil
}
