package raster

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var (
	// ErrOutsideExtent means the polygon's bounding box misses the raster.
	ErrOutsideExtent = errors.New("geometry is outside the raster extent")
	// ErrDegenerateGeometry means the geometry has no area to sample.
	ErrDegenerateGeometry = errors.New("geometry is empty or has no area")
	// ErrNoValidCells means every cell inside the polygon is nodata.
	ErrNoValidCells = errors.New("no valid cells inside geometry")
)

// IsNoData reports whether err is one of the sampling outcomes that simply
// mean "no measurement here".
func IsNoData(err error) bool {
	return errors.Is(err, ErrOutsideExtent) || errors.Is(err, ErrDegenerateGeometry) || errors.Is(err, ErrNoValidCells)
}

// Sample returns the values of every valid cell whose centre lies inside geom.
// geom must already be in the grid's CRS. The scan is limited to the cells
// under the geometry's bounding box.
func (g *Grid) Sample(geom orb.Geometry) ([]float64, error) {
	var contains func(orb.Point) bool
	switch p := geom.(type) {
	case orb.Polygon:
		contains = func(pt orb.Point) bool { return planar.PolygonContains(p, pt) }
	case orb.MultiPolygon:
		contains = func(pt orb.Point) bool { return planar.MultiPolygonContains(p, pt) }
	default:
		return nil, ErrDegenerateGeometry
	}
	if planar.Area(geom) == 0 {
		return nil, ErrDegenerateGeometry
	}

	c0, r0, c1, r1, ok := g.window(geom.Bound())
	if !ok {
		return nil, ErrOutsideExtent
	}

	var values []float64
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			v := g.At(col, row)
			if !g.Valid(v) {
				continue
			}
			if !contains(g.Transform.CellCenter(col, row)) {
				continue
			}
			values = append(values, float64(v))
		}
	}
	if len(values) == 0 {
		return nil, ErrNoValidCells
	}
	return values, nil
}

// Reason returns a short label for a sampling error, suitable for metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrOutsideExtent):
		return "outside_extent"
	case errors.Is(err, ErrDegenerateGeometry):
		return "degenerate_geometry"
	case errors.Is(err, ErrNoValidCells):
		return "no_valid_cells"
	}
	return "error"
}
