package raster

import (
	"encoding/binary"
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/mwiater/geoassist/internal/geo"
	"github.com/paulmach/orb"
	"golang.org/x/image/tiff"
)

const sampleASC = `ncols 4
nrows 4
xllcorner 0
yllcorner 0
cellsize 1
NODATA_value -9999
1 2 3 4
5 6 7 8
9 10 -9999 12
13 14 15 16
`

func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestOpenASCIIGrid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dem.asc", []byte(sampleASC))
	g, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if g.Width != 4 || g.Height != 4 {
		t.Fatalf("unexpected size %dx%d", g.Width, g.Height)
	}
	if g.Transform.OriginY != 4 || g.Transform.PixelHeight != -1 {
		t.Fatalf("unexpected transform %+v", g.Transform)
	}
	if g.CRS != geo.WGS84 {
		t.Fatalf("expected default CRS WGS84, got %s", g.CRS)
	}
	if g.NoData == nil || *g.NoData != -9999 {
		t.Fatalf("expected nodata -9999, got %v", g.NoData)
	}
	if g.At(1, 2) != 10 {
		t.Fatalf("expected At(1,2)=10, got %v", g.At(1, 2))
	}
}

func TestSample(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dem.asc", []byte(sampleASC))
	g, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	tests := []struct {
		name string
		geom orb.Geometry
		want []float64
		err  error
	}{
		{name: "lower left block", geom: square(0, 0, 2, 2), want: []float64{9, 10, 13, 14}},
		{name: "skips nodata", geom: square(1, 1, 3, 3), want: []float64{6, 7, 10}},
		{name: "multipolygon", geom: orb.MultiPolygon{square(0, 3, 1, 4), square(3, 0, 4, 1)}, want: []float64{1, 16}},
		{name: "outside", geom: square(10, 10, 11, 11), err: ErrOutsideExtent},
		{name: "line", geom: orb.LineString{{0, 0}, {1, 1}}, err: ErrDegenerateGeometry},
		{name: "flat polygon", geom: orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {2, 0}, {0, 0}}}, err: ErrDegenerateGeometry},
		{name: "only nodata", geom: square(2.2, 1.2, 2.8, 1.8), err: ErrNoValidCells},
		{name: "smaller than a cell", geom: square(0.1, 0.1, 0.2, 0.2), err: ErrNoValidCells},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Sample(tt.geom)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				if !IsNoData(err) {
					t.Fatalf("expected IsNoData for %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Sample error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestOpenNoDataOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dem.asc", []byte(sampleASC))
	nd := 16.0
	g, err := Open(path, Options{NoData: &nd})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	got, err := g.Sample(square(3, 0, 4, 1))
	if !errors.Is(err, ErrNoValidCells) {
		t.Fatalf("expected override to mask 16, got %v %v", got, err)
	}
	// the file's own nodata is no longer special
	got, err = g.Sample(square(2, 1, 3, 2))
	if err != nil || len(got) != 1 || got[0] != -9999 {
		t.Fatalf("expected -9999 to be a value after override, got %v %v", got, err)
	}
}

const utmASC = `ncols 4
nrows 4
xllcorner 500000
yllcorner 2300000
cellsize 1000
NODATA_value -9999
1 2 3 4
5 6 7 8
9 10 -9999 12
13 14 15 16
`

func TestOpenUTMGrid(t *testing.T) {
	utm44N := geo.EPSG(32644)
	g, err := Open(writeFile(t, t.TempDir(), "dem.asc", []byte(utmASC)), Options{EPSG: utm44N})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if g.CRS != utm44N {
		t.Fatalf("expected %s, got %s", utm44N, g.CRS)
	}

	// a district drawn in lon/lat over the lower-left 2x2 block
	wgs, err := geo.Reproject(square(500000, 2300000, 502000, 2302000), utm44N, geo.WGS84)
	if err != nil {
		t.Fatalf("Reproject error: %v", err)
	}
	local, err := geo.Reproject(wgs, geo.WGS84, g.CRS)
	if err != nil {
		t.Fatalf("Reproject error: %v", err)
	}
	got, err := g.Sample(local)
	if err != nil {
		t.Fatalf("Sample error: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{9, 10, 13, 14}) {
		t.Fatalf("unexpected values %v", got)
	}
}

func TestOpenUnsupported(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(writeFile(t, dir, "dem.png", []byte("x")), Options{}); err == nil {
		t.Fatal("expected unsupported extension error")
	}
	if _, err := Open(filepath.Join(dir, "missing.tif"), Options{}); err == nil {
		t.Fatal("expected missing file error")
	}
	path := writeFile(t, dir, "unknown.asc", []byte(sampleASC))
	if _, err := Open(path, Options{EPSG: 999999}); err == nil {
		t.Fatal("expected unsupported CRS error")
	}
	if _, err := Open(writeFile(t, dir, "short.asc", []byte("ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n")), Options{}); err == nil {
		t.Fatal("expected cell count error")
	}
}

type tagSpec struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func shorts(v ...uint16) []byte {
	out := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(out[i*2:], x)
	}
	return out
}

func longs(v ...uint32) []byte {
	out := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], x)
	}
	return out
}

func doubles(v ...float64) []byte {
	out := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(x))
	}
	return out
}

// buildTIFF lays out a little-endian TIFF as header, pixel strip, IFD, then
// any tag values too large to inline. The strip always starts at offset 8.
func buildTIFF(tags []tagSpec, pixels []byte) []byte {
	sort.Slice(tags, func(i, j int) bool { return tags[i].tag < tags[j].tag })
	if len(pixels)%2 == 1 {
		pixels = append(pixels, 0)
	}
	ifdOff := 8 + len(pixels)
	extraOff := ifdOff + 2 + len(tags)*12 + 4

	buf := []byte("II")
	buf = append(buf, shorts(42)...)
	buf = append(buf, longs(uint32(ifdOff))...)
	buf = append(buf, pixels...)
	buf = append(buf, shorts(uint16(len(tags)))...)

	var extra []byte
	for _, tg := range tags {
		entry := append(shorts(tg.tag, tg.typ), longs(tg.count)...)
		if len(tg.data) <= 4 {
			field := make([]byte, 4)
			copy(field, tg.data)
			entry = append(entry, field...)
		} else {
			entry = append(entry, longs(uint32(extraOff+len(extra)))...)
			extra = append(extra, tg.data...)
			if len(extra)%2 == 1 {
				extra = append(extra, 0)
			}
		}
		buf = append(buf, entry...)
	}
	buf = append(buf, longs(0)...)
	return append(buf, extra...)
}

func TestOpenGeoTIFFInt16(t *testing.T) {
	pixels := shorts(100, 200, uint16(0x8000), 300, 400, 500)
	nodata := []byte("-32768\x00")
	data := buildTIFF([]tagSpec{
		{tag: tagImageWidth, typ: 3, count: 1, data: shorts(3)},
		{tag: tagImageLength, typ: 3, count: 1, data: shorts(2)},
		{tag: tagBitsPerSample, typ: 3, count: 1, data: shorts(16)},
		{tag: tagCompression, typ: 3, count: 1, data: shorts(1)},
		{tag: 262, typ: 3, count: 1, data: shorts(1)},
		{tag: tagStripOffsets, typ: 4, count: 1, data: longs(8)},
		{tag: tagSamplesPerPixel, typ: 3, count: 1, data: shorts(1)},
		{tag: tagRowsPerStrip, typ: 3, count: 1, data: shorts(2)},
		{tag: tagStripByteCounts, typ: 4, count: 1, data: longs(12)},
		{tag: tagSampleFormat, typ: 3, count: 1, data: shorts(sampleFormatInt)},
		{tag: tagModelPixelScale, typ: 12, count: 3, data: doubles(0.5, 0.5, 0)},
		{tag: tagModelTiepoint, typ: 12, count: 6, data: doubles(0, 0, 0, 78, 12, 0)},
		{tag: tagGeoKeyDirectory, typ: 3, count: 8, data: shorts(1, 1, 0, 1, keyGeographicType, 0, 1, 4326)},
		{tag: tagGDALNoData, typ: 2, count: uint32(len(nodata)), data: nodata},
	}, pixels)

	path := writeFile(t, t.TempDir(), "dem.tif", data)
	g, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if g.CRS != geo.WGS84 {
		t.Fatalf("expected EPSG:4326 from geokeys, got %s", g.CRS)
	}
	if g.NoData == nil || *g.NoData != -32768 {
		t.Fatalf("expected nodata -32768, got %v", g.NoData)
	}
	want := GeoTransform{OriginX: 78, OriginY: 12, PixelWidth: 0.5, PixelHeight: -0.5}
	if g.Transform != want {
		t.Fatalf("expected %+v, got %+v", want, g.Transform)
	}

	got, err := g.Sample(square(78, 11, 79.5, 12))
	if err != nil {
		t.Fatalf("Sample error: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{100, 200, 300, 400, 500}) {
		t.Fatalf("unexpected values %v", got)
	}
}

func TestOpenGeoTIFFFloat32(t *testing.T) {
	pixels := longs(math.Float32bits(1.5), math.Float32bits(float32(math.NaN())), math.Float32bits(2.5), math.Float32bits(3.5))
	data := buildTIFF([]tagSpec{
		{tag: tagImageWidth, typ: 3, count: 1, data: shorts(2)},
		{tag: tagImageLength, typ: 3, count: 1, data: shorts(2)},
		{tag: tagBitsPerSample, typ: 3, count: 1, data: shorts(32)},
		{tag: tagStripOffsets, typ: 4, count: 2, data: longs(8, 16)},
		{tag: tagStripByteCounts, typ: 4, count: 2, data: longs(8, 8)},
		{tag: tagRowsPerStrip, typ: 3, count: 1, data: shorts(1)},
		{tag: tagSampleFormat, typ: 3, count: 1, data: shorts(sampleFormatIEEEFloat)},
		{tag: tagModelPixelScale, typ: 12, count: 3, data: doubles(1000, 1000, 0)},
		{tag: tagModelTiepoint, typ: 12, count: 6, data: doubles(0, 0, 0, 0, 2000, 0)},
		{tag: tagGeoKeyDirectory, typ: 3, count: 8, data: shorts(1, 1, 0, 1, keyProjectedCSType, 0, 1, 3857)},
	}, pixels)

	g, err := Open(writeFile(t, t.TempDir(), "dem.tif", data), Options{})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if g.CRS != geo.WebMercator {
		t.Fatalf("expected web mercator, got %s", g.CRS)
	}
	got, err := g.Sample(square(0, 0, 2000, 2000))
	if err != nil {
		t.Fatalf("Sample error: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{1.5, 2.5, 3.5}) {
		t.Fatalf("expected NaN cell to be skipped, got %v", got)
	}
}

func TestOpenGeoTIFFRejectsMalformedStrips(t *testing.T) {
	base := func(bits, format uint16, counts tagSpec) []tagSpec {
		return []tagSpec{
			{tag: tagImageWidth, typ: 3, count: 1, data: shorts(2)},
			{tag: tagImageLength, typ: 3, count: 1, data: shorts(1)},
			{tag: tagBitsPerSample, typ: 3, count: 1, data: shorts(bits)},
			{tag: tagStripOffsets, typ: 4, count: 1, data: longs(8)},
			counts,
			{tag: tagSampleFormat, typ: 3, count: 1, data: shorts(format)},
			{tag: tagModelPixelScale, typ: 12, count: 3, data: doubles(1, 1, 0)},
			{tag: tagModelTiepoint, typ: 12, count: 6, data: doubles(0, 0, 0, 0, 1, 0)},
		}
	}
	long8 := make([]byte, 8)
	binary.LittleEndian.PutUint64(long8, math.MaxUint64)

	tests := []struct {
		name string
		tags []tagSpec
	}{
		{name: "half float", tags: base(16, sampleFormatIEEEFloat, tagSpec{tag: tagStripByteCounts, typ: 4, count: 1, data: longs(4)})},
		{name: "wrapping byte count", tags: base(8, sampleFormatUint, tagSpec{tag: tagStripByteCounts, typ: 16, count: 1, data: long8})},
		{name: "strip past end", tags: base(8, sampleFormatUint, tagSpec{tag: tagStripByteCounts, typ: 4, count: 1, data: longs(4096)})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildTIFF(tt.tags, []byte{1, 2, 3, 4})
			if _, err := Open(writeFile(t, t.TempDir(), "bad.tif", data), Options{}); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestOpenTIFFWithWorldFile(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	copy(img.Pix, []uint8{1, 2, 3, 4, 5, 6})

	f, err := os.Create(filepath.Join(dir, "lulc.tif"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()
	writeFile(t, dir, "lulc.tfw", []byte("0.5\n0\n0\n-0.5\n78.25\n12.75\n"))

	g, err := Open(filepath.Join(dir, "lulc.tif"), Options{EPSG: geo.WGS84})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	want := GeoTransform{OriginX: 78, OriginY: 13, PixelWidth: 0.5, PixelHeight: -0.5}
	if g.Transform != want {
		t.Fatalf("expected %+v, got %+v", want, g.Transform)
	}
	got, err := g.Sample(square(78, 12, 79.5, 13))
	if err != nil {
		t.Fatalf("Sample error: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("unexpected values %v", got)
	}
}

func TestOpenTIFFWithoutGeoreference(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "bare.tif"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tiff.Encode(f, image.NewGray(image.Rect(0, 0, 2, 2)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()
	if _, err := Open(filepath.Join(dir, "bare.tif"), Options{}); err == nil {
		t.Fatal("expected error without geotags or world file")
	}
}
