package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/wroge/wgs84"
)

// epsgRepo resolves codes beyond the mercator pair, UTM zones included.
var epsgRepo = wgs84.EPSG()

// EPSG identifies a coordinate reference system by its EPSG code.
type EPSG int

const (
	// WGS84 is geographic longitude/latitude, the GeoJSON default.
	WGS84 EPSG = 4326
	// WebMercator is the spherical mercator used by most tiled rasters.
	WebMercator EPSG = 3857
)

// Normalize folds legacy aliases of the supported systems onto their canonical code.
func (e EPSG) Normalize() EPSG {
	switch e {
	case 900913, 3785, 102100, 102113:
		return WebMercator
	case 4269, 4258:
		// NAD83 and ETRS89 are within a metre of WGS84 for district-scale work.
		return WGS84
	}
	return e
}

func (e EPSG) String() string {
	return fmt.Sprintf("EPSG:%d", int(e))
}

// ParseEPSG accepts "EPSG:4326", "urn:ogc:def:crs:EPSG::3857", "CRS84" or a bare code.
func ParseEPSG(name string) (EPSG, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, fmt.Errorf("empty CRS name")
	}
	upper := strings.ToUpper(s)
	if strings.HasSuffix(upper, "CRS84") {
		return WGS84, nil
	}
	if i := strings.LastIndex(upper, ":"); i >= 0 {
		s = s[i+1:]
	}
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("unrecognised CRS %q", name)
	}
	return EPSG(code), nil
}

// Supported reports whether geometry can be reprojected to or from e.
func (e EPSG) Supported() bool {
	switch e.Normalize() {
	case WGS84, WebMercator:
		return true
	}
	return epsgRepo.Code(int(e.Normalize())) != nil
}

// Reproject returns g expressed in dst. The input geometry is cloned first, so
// the caller's copy is never modified.
func Reproject(g orb.Geometry, src, dst EPSG) (orb.Geometry, error) {
	src, dst = src.Normalize(), dst.Normalize()
	if src == dst {
		return g, nil
	}
	if !src.Supported() || !dst.Supported() {
		return nil, fmt.Errorf("reprojection %s -> %s is not supported", src, dst)
	}
	clone := orb.Clone(g)
	switch {
	case src == WGS84 && dst == WebMercator:
		return project.Geometry(clone, project.WGS84.ToMercator), nil
	case src == WebMercator && dst == WGS84:
		return project.Geometry(clone, project.Mercator.ToWGS84), nil
	}
	transform := wgs84.Transform(epsgRepo.Code(int(src)), epsgRepo.Code(int(dst)))
	return project.Geometry(clone, func(p orb.Point) orb.Point {
		x, y, _ := transform(p[0], p[1], 0)
		return orb.Point{x, y}
	}), nil
}

// ReprojectPoint is Reproject for a single coordinate.
func ReprojectPoint(p orb.Point, src, dst EPSG) (orb.Point, error) {
	g, err := Reproject(p, src, dst)
	if err != nil {
		return orb.Point{}, err
	}
	return g.(orb.Point), nil
}
