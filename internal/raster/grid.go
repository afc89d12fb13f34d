// Package raster reads single-band rasters into memory and samples them
// inside district polygons.
package raster

import (
	"fmt"
	"math"

	"github.com/mwiater/geoassist/internal/geo"
	"github.com/paulmach/orb"
)

// GeoTransform maps cell indices to CRS coordinates for a north-up raster.
type GeoTransform struct {
	// OriginX/OriginY locate the outer corner of cell (0,0).
	OriginX float64
	OriginY float64
	// PixelWidth is positive; PixelHeight is negative for north-up rasters.
	PixelWidth  float64
	PixelHeight float64
}

// CellCenter returns the CRS coordinate of the centre of (col,row).
func (t GeoTransform) CellCenter(col, row int) orb.Point {
	return orb.Point{
		t.OriginX + (float64(col)+0.5)*t.PixelWidth,
		t.OriginY + (float64(row)+0.5)*t.PixelHeight,
	}
}

// Grid is one raster band held in memory, row-major from the top-left cell.
type Grid struct {
	Path      string
	Width     int
	Height    int
	Transform GeoTransform
	NoData    *float64
	CRS       geo.EPSG
	Data      []float32
}

// NewGrid allocates an empty grid. It is mostly useful for tests and for
// readers that fill Data themselves.
func NewGrid(width, height int, t GeoTransform, crs geo.EPSG) *Grid {
	return &Grid{
		Width:     width,
		Height:    height,
		Transform: t,
		CRS:       crs,
		Data:      make([]float32, width*height),
	}
}

func (g *Grid) validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("raster %s has invalid size %dx%d", g.Path, g.Width, g.Height)
	}
	if len(g.Data) != g.Width*g.Height {
		return fmt.Errorf("raster %s has %d cells, expected %d", g.Path, len(g.Data), g.Width*g.Height)
	}
	if g.Transform.PixelWidth <= 0 || g.Transform.PixelHeight == 0 {
		return fmt.Errorf("raster %s has invalid pixel size %gx%g", g.Path, g.Transform.PixelWidth, g.Transform.PixelHeight)
	}
	return nil
}

// At returns the raw value of (col,row).
func (g *Grid) At(col, row int) float32 {
	return g.Data[row*g.Width+col]
}

// Set stores v at (col,row).
func (g *Grid) Set(col, row int, v float32) {
	g.Data[row*g.Width+col] = v
}

// Valid reports whether v is a measurement rather than nodata or NaN.
func (g *Grid) Valid(v float32) bool {
	if math.IsNaN(float64(v)) {
		return false
	}
	if g.NoData != nil && v == float32(*g.NoData) {
		return false
	}
	return true
}

// Bound returns the raster extent in its CRS.
func (g *Grid) Bound() orb.Bound {
	t := g.Transform
	x0, x1 := t.OriginX, t.OriginX+float64(g.Width)*t.PixelWidth
	y0, y1 := t.OriginY, t.OriginY+float64(g.Height)*t.PixelHeight
	return orb.Bound{
		Min: orb.Point{math.Min(x0, x1), math.Min(y0, y1)},
		Max: orb.Point{math.Max(x0, x1), math.Max(y0, y1)},
	}
}

// window converts a CRS bound into the half-open cell range it covers,
// clipped to the raster. ok is false when nothing overlaps.
func (g *Grid) window(b orb.Bound) (c0, r0, c1, r1 int, ok bool) {
	t := g.Transform
	colA := math.Floor((b.Min.X() - t.OriginX) / t.PixelWidth)
	colB := math.Floor((b.Max.X() - t.OriginX) / t.PixelWidth)
	rowA := math.Floor((b.Max.Y() - t.OriginY) / t.PixelHeight)
	rowB := math.Floor((b.Min.Y() - t.OriginY) / t.PixelHeight)

	c0 = clamp(int(math.Min(colA, colB)), 0, g.Width)
	c1 = clamp(int(math.Max(colA, colB))+1, 0, g.Width)
	r0 = clamp(int(math.Min(rowA, rowB)), 0, g.Height)
	r1 = clamp(int(math.Max(rowA, rowB))+1, 0, g.Height)
	if c0 >= c1 || r0 >= r1 {
		return 0, 0, 0, 0, false
	}
	return c0, r0, c1, r1, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
