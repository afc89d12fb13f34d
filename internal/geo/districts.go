// Package geo loads district boundary polygons and moves them between
// coordinate reference systems.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ErrNoFeatures is returned when a boundary file holds no usable polygons.
var ErrNoFeatures = errors.New("boundary file contains no polygon features")

// UnknownName is used when none of the configured attribute columns is present.
const UnknownName = "Unknown"

// District is one administrative unit from the boundary file.
type District struct {
	Name     string
	Geometry orb.Geometry // in CRS
	CRS      EPSG
	// Centroid is the area-weighted centroid in WGS84 longitude/latitude.
	Centroid    orb.Point
	HasCentroid bool
	Properties  map[string]any
}

// Boundaries is the loaded polygon dataset in file order.
type Boundaries struct {
	Path      string
	CRS       EPSG
	Districts []District
}

type crsMember struct {
	CRS *struct {
		Type       string `json:"type"`
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

// LoadBoundaries reads a GeoJSON FeatureCollection. Each feature's name comes
// from the first non-empty attribute in nameFields. Features without polygon
// geometry are skipped. The file CRS defaults to WGS84 unless a legacy "crs"
// member names another system.
func LoadBoundaries(path string, nameFields []string) (*Boundaries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundaries %s: %w", path, err)
	}
	return ParseBoundaries(path, data, nameFields)
}

// ParseBoundaries is LoadBoundaries over an in-memory document.
func ParseBoundaries(path string, data []byte, nameFields []string) (*Boundaries, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse boundaries %s: %w", path, err)
	}

	crs := WGS84
	var member crsMember
	if err := json.Unmarshal(data, &member); err == nil && member.CRS != nil && member.CRS.Properties.Name != "" {
		parsed, perr := ParseEPSG(member.CRS.Properties.Name)
		if perr != nil {
			return nil, fmt.Errorf("boundaries %s: %w", path, perr)
		}
		crs = parsed.Normalize()
	}
	if !crs.Supported() {
		return nil, fmt.Errorf("boundaries %s: %s is not supported", path, crs)
	}

	b := &Boundaries{Path: path, CRS: crs}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		d := District{
			Name:       featureName(f.Properties, nameFields),
			Geometry:   f.Geometry,
			CRS:        crs,
			Properties: map[string]any(f.Properties),
		}
		if c, area := planar.CentroidArea(f.Geometry); area > 0 {
			if wgs, err := ReprojectPoint(c, crs, WGS84); err == nil {
				d.Centroid = wgs
				d.HasCentroid = true
			}
		}
		b.Districts = append(b.Districts, d)
	}
	if len(b.Districts) == 0 {
		return nil, fmt.Errorf("boundaries %s: %w", path, ErrNoFeatures)
	}
	return b, nil
}

func featureName(props geojson.Properties, fields []string) string {
	for _, field := range fields {
		if v, ok := props[field]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return UnknownName
}

// To returns a copy of the boundaries with every geometry reprojected to dst.
// Centroids stay in WGS84.
func (b *Boundaries) To(dst EPSG) (*Boundaries, error) {
	dst = dst.Normalize()
	out := &Boundaries{Path: b.Path, CRS: dst, Districts: make([]District, len(b.Districts))}
	for i, d := range b.Districts {
		g, err := Reproject(d.Geometry, d.CRS, dst)
		if err != nil {
			return nil, fmt.Errorf("district %s: %w", d.Name, err)
		}
		d.Geometry = g
		d.CRS = dst
		out.Districts[i] = d
	}
	return out, nil
}

// FeatureCollection renders the boundaries as GeoJSON in WGS84. Each feature
// keeps its source properties and is tagged with its name and whether it
// appears in highlight (case-insensitive).
func (b *Boundaries) FeatureCollection(highlight []string) (*geojson.FeatureCollection, error) {
	wgs, err := b.To(WGS84)
	if err != nil {
		return nil, err
	}
	marked := make(map[string]struct{}, len(highlight))
	for _, name := range highlight {
		marked[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	fc := geojson.NewFeatureCollection()
	for _, d := range wgs.Districts {
		f := geojson.NewFeature(d.Geometry)
		for k, v := range d.Properties {
			f.Properties[k] = v
		}
		f.Properties["district"] = d.Name
		_, ok := marked[strings.ToLower(d.Name)]
		f.Properties["suitable"] = ok
		fc.Append(f)
	}
	return fc, nil
}
