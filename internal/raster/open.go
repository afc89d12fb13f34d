package raster

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mwiater/geoassist/internal/geo"
)

// Options fill in what a raster file does not say about itself.
type Options struct {
	// NoData, when set, replaces whatever nodata value the file declares.
	NoData *float64
	// EPSG is used when the file carries no CRS. Zero means WGS84.
	EPSG geo.EPSG
}

// Open reads a GeoTIFF (.tif/.tiff) or ESRI ASCII grid (.asc) into memory.
// GeoTIFFs without geotags are placed using a sibling world file.
func Open(path string, opts Options) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open raster %s: %w", path, err)
	}

	var g *Grid
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc":
		g, err = readASCIIGrid(path, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	case ".tif", ".tiff":
		g, err = readGeoTIFF(path, data)
		if errors.Is(err, errNotGeoreferenced) {
			t, werr := readWorldFile(path)
			if werr != nil {
				return nil, fmt.Errorf("geotiff %s: no geotags and %w", path, werr)
			}
			g.Transform = t
			err = nil
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("open raster %s: unsupported format %q", path, filepath.Ext(path))
	}

	if opts.NoData != nil {
		nd := *opts.NoData
		g.NoData = &nd
	}
	if g.CRS == 0 {
		g.CRS = opts.EPSG
	}
	if g.CRS == 0 {
		g.CRS = geo.WGS84
	}
	g.CRS = g.CRS.Normalize()
	if !g.CRS.Supported() {
		return nil, fmt.Errorf("raster %s: %s is not supported", path, g.CRS)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

var worldFileExts = []string{".tfw", ".tifw", ".tiffw", ".wld"}

// readWorldFile finds a world file next to path and converts its six
// coefficients (A D B E C F) into a transform. C/F address the centre of the
// upper-left cell.
func readWorldFile(path string) (GeoTransform, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range worldFileExts {
		for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
			f, err := os.Open(candidate)
			if err != nil {
				continue
			}
			defer f.Close()

			var v []float64
			sc := bufio.NewScanner(f)
			for sc.Scan() && len(v) < 6 {
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					continue
				}
				x, err := strconv.ParseFloat(line, 64)
				if err != nil {
					return GeoTransform{}, fmt.Errorf("world file %s: %w", candidate, err)
				}
				v = append(v, x)
			}
			if len(v) < 6 {
				return GeoTransform{}, fmt.Errorf("world file %s: expected 6 lines, got %d", candidate, len(v))
			}
			a, d, b, e, c, fy := v[0], v[1], v[2], v[3], v[4], v[5]
			if d != 0 || b != 0 {
				return GeoTransform{}, fmt.Errorf("world file %s: rotated rasters are not supported", candidate)
			}
			return GeoTransform{
				OriginX:     c - a/2,
				OriginY:     fy - e/2,
				PixelWidth:  a,
				PixelHeight: e,
			}, nil
		}
	}
	return GeoTransform{}, errors.New("no world file found")
}
