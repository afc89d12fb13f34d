package raster

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readASCIIGrid parses an ESRI ASCII grid (.asc). Both the corner and the
// centre variants of the origin header are accepted.
func readASCIIGrid(path string, r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			first = sc.Text()
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("ascii grid %s: header %q has no value", path, key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("ascii grid %s: header %q: %w", path, key, err)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ascii grid %s: %w", path, err)
	}

	ncols, okc := header["ncols"]
	nrows, okr := header["nrows"]
	cell, okz := header["cellsize"]
	if !okc || !okr || !okz {
		return nil, fmt.Errorf("ascii grid %s: ncols, nrows and cellsize are required", path)
	}

	var x0, y0 float64
	switch {
	case hasKey(header, "xllcorner") && hasKey(header, "yllcorner"):
		x0, y0 = header["xllcorner"], header["yllcorner"]
	case hasKey(header, "xllcenter") && hasKey(header, "yllcenter"):
		x0, y0 = header["xllcenter"]-cell/2, header["yllcenter"]-cell/2
	default:
		return nil, fmt.Errorf("ascii grid %s: missing lower-left origin", path)
	}

	w, h := int(ncols), int(nrows)
	g := &Grid{
		Path:   path,
		Width:  w,
		Height: h,
		Transform: GeoTransform{
			OriginX:     x0,
			OriginY:     y0 + float64(h)*cell,
			PixelWidth:  cell,
			PixelHeight: -cell,
		},
		Data: make([]float32, 0, w*h),
	}
	if nd, ok := header["nodata_value"]; ok {
		g.NoData = &nd
	}

	appendValue := func(tok string) error {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("ascii grid %s: cell %d: %w", path, len(g.Data), err)
		}
		g.Data = append(g.Data, float32(v))
		return nil
	}
	if first != "" {
		if err := appendValue(first); err != nil {
			return nil, err
		}
	}
	for sc.Scan() && len(g.Data) < w*h {
		if err := appendValue(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ascii grid %s: %w", path, err)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func hasKey(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}
