// internal/district/build.go
package district

import (
	"fmt"

	"github.com/mwiater/geoassist/internal/aggregate"
	"github.com/mwiater/geoassist/internal/geo"
	"github.com/mwiater/geoassist/internal/logging"
	"github.com/mwiater/geoassist/internal/metrics"
	"github.com/mwiater/geoassist/internal/raster"
)

// Sources are the opened inputs of one build run.
type Sources struct {
	Boundaries *geo.Boundaries
	DEM        *raster.Grid
	LULC       *raster.Grid
	Classes    map[int]string
}

// Options name the input files of a build run.
type Options struct {
	DistrictsPath string
	NameFields    []string
	DEMPath       string
	LULCPath      string
	DEM           raster.Options
	LULC          raster.Options
	Classes       map[int]string
}

// BuildFiles opens every input named in opts and runs Build over them.
func BuildFiles(opts Options) ([]Record, error) {
	status("Loading district boundaries from %s", opts.DistrictsPath)
	b, err := geo.LoadBoundaries(opts.DistrictsPath, opts.NameFields)
	if err != nil {
		return nil, err
	}
	status("Opening elevation raster %s", opts.DEMPath)
	dem, err := raster.Open(opts.DEMPath, opts.DEM)
	if err != nil {
		return nil, err
	}
	status("Opening land cover raster %s", opts.LULCPath)
	lulc, err := raster.Open(opts.LULCPath, opts.LULC)
	if err != nil {
		return nil, err
	}
	return Build(Sources{Boundaries: b, DEM: dem, LULC: lulc, Classes: opts.Classes})
}

// Build samples both rasters inside every district polygon and returns one
// record per district, in boundary file order. A district the rasters do not
// cover still gets a record with a null elevation and no classes.
func Build(src Sources) ([]Record, error) {
	if src.Boundaries == nil || src.DEM == nil || src.LULC == nil {
		return nil, fmt.Errorf("build requires boundaries, a DEM and a LULC raster")
	}
	demShapes, err := src.Boundaries.To(src.DEM.CRS)
	if err != nil {
		return nil, fmt.Errorf("reproject boundaries to DEM: %w", err)
	}
	lulcShapes, err := src.Boundaries.To(src.LULC.CRS)
	if err != nil {
		return nil, fmt.Errorf("reproject boundaries to LULC: %w", err)
	}

	total := len(src.Boundaries.Districts)
	records := make([]Record, 0, total)
	for i, d := range src.Boundaries.Districts {
		status("Processing district %d/%d: %s", i+1, total, d.Name)
		rec := Record{Name: d.Name, LULCClasses: []ClassShare{}}
		if d.HasCentroid {
			lat, lon := d.Centroid.Lat(), d.Centroid.Lon()
			rec.Latitude, rec.Longitude = &lat, &lon
		}

		if values, err := src.DEM.Sample(demShapes.Districts[i].Geometry); err != nil {
			samplingFailed(d.Name, "dem", err)
		} else if mean, ok := aggregate.MeanElevation(values); ok {
			rec.AverageElevation = &mean
		}

		if values, err := src.LULC.Sample(lulcShapes.Districts[i].Geometry); err != nil {
			samplingFailed(d.Name, "lulc", err)
		} else {
			rec.LULCClasses = aggregate.LandCover(values, src.Classes)
			rec.DominantLULC, _ = aggregate.Dominant(rec.LULCClasses)
		}

		metrics.DistrictsBuiltTotal.Inc()
		records = append(records, rec)
	}
	status("Built %d district records", len(records))
	return records, nil
}

func samplingFailed(name, layer string, err error) {
	logging.Warnf("[BUILD] %s: no %s data: %v", name, layer, err)
	metrics.SamplingFailuresTotal.WithLabelValues(layer, raster.Reason(err)).Inc()
}

func status(format string, args ...any) {
	logging.LogEvent("[BUILD] "+format, args...)
}
