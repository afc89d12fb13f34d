package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	gtiff "github.com/google/tiff"
	"github.com/mwiater/geoassist/internal/geo"
	"golang.org/x/image/tiff"
)

const (
	tagImageWidth         = 256
	tagImageLength        = 257
	tagBitsPerSample      = 258
	tagCompression        = 259
	tagStripOffsets       = 273
	tagSamplesPerPixel    = 277
	tagRowsPerStrip       = 278
	tagStripByteCounts    = 279
	tagTileWidth          = 322
	tagSampleFormat       = 339
	tagModelPixelScale    = 33550
	tagModelTiepoint      = 33922
	tagModelTransform     = 34264
	tagGeoKeyDirectory    = 34735
	tagGDALNoData         = 42113
	keyRasterType         = 1025
	keyGeographicType     = 2048
	keyProjectedCSType    = 3072
	rasterPixelIsPoint    = 2
	sampleFormatUint      = 1
	sampleFormatInt       = 2
	sampleFormatIEEEFloat = 3
)

var errNotGeoreferenced = errors.New("tiff carries no georeferencing tags")

// tagValue is one IFD field as raw bytes in the file's byte order.
type tagValue struct {
	typ   uint16
	count int
	raw   []byte
}

// tiffHeader is the subset of the first IFD needed to place and decode a band.
type tiffHeader struct {
	order        binary.ByteOrder
	ifd          gtiff.IFD
	width        int
	height       int
	bits         int
	sampleFormat int
	samples      int
	compression  int
	tiled        bool
}

func parseTIFFHeader(data []byte) (*tiffHeader, error) {
	if len(data) < 8 {
		return nil, errors.New("tiff too short")
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, errors.New("not a tiff file")
	}
	if order.Uint16(data[2:4]) == 43 {
		return nil, errors.New("BigTIFF is not supported")
	}

	t, err := gtiff.Parse(bytes.NewReader(data), nil, nil)
	if err != nil {
		return nil, err
	}
	ifds := t.IFDs()
	if len(ifds) == 0 {
		return nil, errors.New("tiff has no image directory")
	}

	h := &tiffHeader{order: order, ifd: ifds[0]}
	h.width = h.uint(tagImageWidth, 0)
	h.height = h.uint(tagImageLength, 0)
	h.bits = h.uint(tagBitsPerSample, 1)
	h.sampleFormat = h.uint(tagSampleFormat, sampleFormatUint)
	h.samples = h.uint(tagSamplesPerPixel, 1)
	h.compression = h.uint(tagCompression, 1)
	h.tiled = h.ifd.HasField(tagTileWidth)
	if h.width <= 0 || h.height <= 0 {
		return nil, errors.New("tiff has no image dimensions")
	}
	return h, nil
}

func (h *tiffHeader) lookup(tag uint16) (tagValue, bool) {
	if !h.ifd.HasField(tag) {
		return tagValue{}, false
	}
	f := h.ifd.GetField(tag)
	if f == nil || f.Value() == nil {
		return tagValue{}, false
	}
	v := tagValue{typ: f.Type().ID(), count: int(f.Count()), raw: f.Value().Bytes()}
	if size := int(f.Type().Size()); size == 0 || len(v.raw) < size*v.count {
		return tagValue{}, false
	}
	return v, true
}

func (h *tiffHeader) uints(tag uint16) []uint64 {
	e, ok := h.lookup(tag)
	if !ok {
		return nil
	}
	out := make([]uint64, 0, e.count)
	for i := 0; i < e.count; i++ {
		switch e.typ {
		case 1, 7:
			out = append(out, uint64(e.raw[i]))
		case 3:
			out = append(out, uint64(h.order.Uint16(e.raw[i*2:])))
		case 4:
			out = append(out, uint64(h.order.Uint32(e.raw[i*4:])))
		case 16:
			out = append(out, h.order.Uint64(e.raw[i*8:]))
		default:
			return nil
		}
	}
	return out
}

func (h *tiffHeader) uint(tag uint16, def int) int {
	v := h.uints(tag)
	if len(v) == 0 {
		return def
	}
	return int(v[0])
}

func (h *tiffHeader) doubles(tag uint16) []float64 {
	e, ok := h.lookup(tag)
	if !ok {
		return nil
	}
	out := make([]float64, 0, e.count)
	for i := 0; i < e.count; i++ {
		switch e.typ {
		case 12:
			out = append(out, math.Float64frombits(h.order.Uint64(e.raw[i*8:])))
		case 11:
			out = append(out, float64(math.Float32frombits(h.order.Uint32(e.raw[i*4:]))))
		default:
			return nil
		}
	}
	return out
}

func (h *tiffHeader) ascii(tag uint16) string {
	e, ok := h.lookup(tag)
	if !ok || e.typ != 2 {
		return ""
	}
	return strings.TrimRight(string(e.raw[:e.count]), "\x00 ")
}

// geoKeys returns the inline SHORT values of the GeoKeyDirectory.
func (h *tiffHeader) geoKeys() map[int]int {
	dir := h.uints(tagGeoKeyDirectory)
	if len(dir) < 4 {
		return nil
	}
	keys := make(map[int]int)
	n := int(dir[3])
	for i := 0; i < n; i++ {
		base := 4 + i*4
		if base+3 >= len(dir) {
			break
		}
		if dir[base+1] != 0 {
			// value lives in another tag; none of the keys used here do that
			continue
		}
		keys[int(dir[base])] = int(dir[base+3])
	}
	return keys
}

// transform derives the geotransform from tiepoint+scale or from a full
// model transformation matrix.
func (h *tiffHeader) transform() (GeoTransform, error) {
	if m := h.doubles(tagModelTransform); len(m) >= 16 {
		if m[1] != 0 || m[4] != 0 {
			return GeoTransform{}, errors.New("rotated rasters are not supported")
		}
		return GeoTransform{OriginX: m[3], OriginY: m[7], PixelWidth: m[0], PixelHeight: m[5]}, nil
	}
	scale := h.doubles(tagModelPixelScale)
	tie := h.doubles(tagModelTiepoint)
	if len(scale) < 2 || len(tie) < 6 {
		return GeoTransform{}, errNotGeoreferenced
	}
	t := GeoTransform{
		OriginX:     tie[3] - tie[0]*scale[0],
		OriginY:     tie[4] + tie[1]*scale[1],
		PixelWidth:  scale[0],
		PixelHeight: -scale[1],
	}
	if h.geoKeys()[keyRasterType] == rasterPixelIsPoint {
		t.OriginX -= t.PixelWidth / 2
		t.OriginY -= t.PixelHeight / 2
	}
	return t, nil
}

func (h *tiffHeader) epsg() geo.EPSG {
	keys := h.geoKeys()
	if code := keys[keyProjectedCSType]; code > 0 && code != 32767 {
		return geo.EPSG(code)
	}
	if code := keys[keyGeographicType]; code > 0 && code != 32767 {
		return geo.EPSG(code)
	}
	return 0
}

func (h *tiffHeader) noData() *float64 {
	s := h.ascii(tagGDALNoData)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// readGeoTIFF decodes the first band of a GeoTIFF. Georeferencing missing
// from the tags is reported as errNotGeoreferenced so the caller can try a
// world file.
func readGeoTIFF(path string, data []byte) (*Grid, error) {
	h, err := parseTIFFHeader(data)
	if err != nil {
		return nil, fmt.Errorf("geotiff %s: %w", path, err)
	}
	if h.samples != 1 {
		return nil, fmt.Errorf("geotiff %s: %d samples per pixel, expected a single band", path, h.samples)
	}

	var values []float32
	if h.compression == 1 && !h.tiled {
		values, err = h.readStrips(data)
	} else {
		values, err = h.decodeImage(data)
	}
	if err != nil {
		return nil, fmt.Errorf("geotiff %s: %w", path, err)
	}

	g := &Grid{
		Path:   path,
		Width:  h.width,
		Height: h.height,
		NoData: h.noData(),
		CRS:    h.epsg(),
		Data:   values,
	}
	t, terr := h.transform()
	if terr != nil && !errors.Is(terr, errNotGeoreferenced) {
		return nil, fmt.Errorf("geotiff %s: %w", path, terr)
	}
	g.Transform = t
	return g, terr
}

// readStrips reads uncompressed strip data for any integer or float sample type.
func (h *tiffHeader) readStrips(data []byte) ([]float32, error) {
	offsets := h.uints(tagStripOffsets)
	counts := h.uints(tagStripByteCounts)
	if len(offsets) == 0 || len(offsets) != len(counts) {
		return nil, errors.New("missing strip offsets")
	}
	bytesPer := h.bits / 8
	if bytesPer == 0 || h.bits%8 != 0 {
		return nil, fmt.Errorf("unsupported bit depth %d", h.bits)
	}

	total := h.width * h.height
	buf := make([]byte, 0, total*bytesPer)
	for i, off := range offsets {
		end := off + counts[i]
		if end < off || end > uint64(len(data)) {
			return nil, errors.New("strip out of range")
		}
		buf = append(buf, data[off:end]...)
	}
	if len(buf) < total*bytesPer {
		return nil, fmt.Errorf("strip data holds %d bytes, expected %d", len(buf), total*bytesPer)
	}

	out := make([]float32, total)
	o := h.order
	for i := range out {
		b := buf[i*bytesPer:]
		switch {
		case h.sampleFormat == sampleFormatIEEEFloat && h.bits == 32:
			out[i] = math.Float32frombits(o.Uint32(b))
		case h.sampleFormat == sampleFormatIEEEFloat && h.bits == 64:
			out[i] = float32(math.Float64frombits(o.Uint64(b)))
		case h.sampleFormat == sampleFormatIEEEFloat:
			return nil, fmt.Errorf("unsupported %d-bit floating point samples", h.bits)
		case h.sampleFormat == sampleFormatInt && h.bits == 8:
			out[i] = float32(int8(b[0]))
		case h.sampleFormat == sampleFormatInt && h.bits == 16:
			out[i] = float32(int16(o.Uint16(b)))
		case h.sampleFormat == sampleFormatInt && h.bits == 32:
			out[i] = float32(int32(o.Uint32(b)))
		case h.bits == 8:
			out[i] = float32(b[0])
		case h.bits == 16:
			out[i] = float32(o.Uint16(b))
		case h.bits == 32:
			out[i] = float32(o.Uint32(b))
		default:
			return nil, fmt.Errorf("unsupported sample format %d/%d bits", h.sampleFormat, h.bits)
		}
	}
	return out, nil
}

// decodeImage handles compressed or tiled 8/16-bit bands through x/image/tiff.
func (h *tiffHeader) decodeImage(data []byte) ([]float32, error) {
	if h.sampleFormat == sampleFormatIEEEFloat {
		return nil, errors.New("compressed floating point rasters are not supported; re-save uncompressed")
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() != h.width || b.Dy() != h.height {
		return nil, fmt.Errorf("decoded size %dx%d does not match header %dx%d", b.Dx(), b.Dy(), h.width, h.height)
	}
	out := make([]float32, h.width*h.height)
	signed := h.sampleFormat == sampleFormatInt
	switch im := img.(type) {
	case *image.Gray:
		for y := 0; y < h.height; y++ {
			for x := 0; x < h.width; x++ {
				v := im.GrayAt(b.Min.X+x, b.Min.Y+y).Y
				if signed {
					out[y*h.width+x] = float32(int8(v))
				} else {
					out[y*h.width+x] = float32(v)
				}
			}
		}
	case *image.Gray16:
		for y := 0; y < h.height; y++ {
			for x := 0; x < h.width; x++ {
				v := im.Gray16At(b.Min.X+x, b.Min.Y+y).Y
				if signed {
					out[y*h.width+x] = float32(int16(v))
				} else {
					out[y*h.width+x] = float32(v)
				}
			}
		}
	case *image.Paletted:
		for y := 0; y < h.height; y++ {
			for x := 0; x < h.width; x++ {
				out[y*h.width+x] = float32(im.ColorIndexAt(b.Min.X+x, b.Min.Y+y))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported pixel layout %T", img)
	}
	return out, nil
}
