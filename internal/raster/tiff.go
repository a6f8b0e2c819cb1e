package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TIFF tags used by single-band GeoTIFF elevation rasters. Multi-band
// imagery, JPEG/LZW compression, and BigTIFF are out of scope: GDAL-produced
// DEMs are single-band, uncompressed or deflate.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagModelTransform  = 34264
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113
)

const (
	compressionNone         = 1
	compressionDeflate      = 8
	compressionDeflateAdobe = 32946

	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3

	geoKeyGeographicType = 2048
	geoKeyProjectedCSTyp = 3072
)

type tiffEntry struct {
	typ   uint16
	count uint32
	// value holds the 4-byte value/offset field.
	value []byte
}

type tiffDecoder struct {
	data    []byte
	bo      binary.ByteOrder
	entries map[uint16]tiffEntry
}

// Open reads a single-band GeoTIFF from disk into a Grid. The whole file is
// held in memory; city-scale DEM tiles are tens of megabytes at most.
func Open(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: read %s", path)
	}
	g, err := Decode(data)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: decode %s", path)
	}
	zap.L().Debug("raster loaded",
		zap.String("path", path),
		zap.Int("width", g.Width),
		zap.Int("height", g.Height),
		zap.Int("epsg", g.EPSG),
	)
	return g, nil
}

// Decode parses GeoTIFF bytes into a Grid.
func Decode(data []byte) (*Grid, error) {
	d, err := newTIFFDecoder(data)
	if err != nil {
		return nil, err
	}
	return d.decode()
}

func newTIFFDecoder(data []byte) (*tiffDecoder, error) {
	if len(data) < 8 {
		return nil, eris.New("tiff: file too short")
	}

	var bo binary.ByteOrder
	switch string(data[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, eris.New("tiff: bad byte order mark")
	}

	switch magic := bo.Uint16(data[2:4]); magic {
	case 42:
	case 43:
		return nil, eris.New("tiff: BigTIFF is not supported")
	default:
		return nil, eris.Errorf("tiff: bad magic %d", magic)
	}

	ifdOff := bo.Uint32(data[4:8])
	if int(ifdOff)+2 > len(data) {
		return nil, eris.New("tiff: IFD offset out of range")
	}

	n := int(bo.Uint16(data[ifdOff : ifdOff+2]))
	entries := make(map[uint16]tiffEntry, n)
	pos := int(ifdOff) + 2
	for i := 0; i < n; i++ {
		if pos+12 > len(data) {
			return nil, eris.New("tiff: truncated IFD")
		}
		tag := bo.Uint16(data[pos : pos+2])
		entries[tag] = tiffEntry{
			typ:   bo.Uint16(data[pos+2 : pos+4]),
			count: bo.Uint32(data[pos+4 : pos+8]),
			value: data[pos+8 : pos+12],
		}
		pos += 12
	}

	return &tiffDecoder{data: data, bo: bo, entries: entries}, nil
}

func typeSize(typ uint16) int {
	switch typ {
	case 1, 2, 6, 7: // BYTE, ASCII, SBYTE, UNDEFINED
		return 1
	case 3, 8: // SHORT, SSHORT
		return 2
	case 4, 9, 11: // LONG, SLONG, FLOAT
		return 4
	case 5, 10, 12: // RATIONAL, SRATIONAL, DOUBLE
		return 8
	default:
		return 0
	}
}

// valueBytes resolves an entry's payload, following the offset indirection
// for values larger than four bytes.
func (d *tiffDecoder) valueBytes(e tiffEntry) ([]byte, error) {
	size := typeSize(e.typ) * int(e.count)
	if size == 0 {
		return nil, eris.Errorf("tiff: unsupported field type %d", e.typ)
	}
	if size <= 4 {
		return e.value[:size], nil
	}
	off := int(d.bo.Uint32(e.value))
	if off+size > len(d.data) {
		return nil, eris.New("tiff: field value out of range")
	}
	return d.data[off : off+size], nil
}

func (d *tiffDecoder) uintValues(tag uint16) ([]uint64, bool, error) {
	e, ok := d.entries[tag]
	if !ok {
		return nil, false, nil
	}
	raw, err := d.valueBytes(e)
	if err != nil {
		return nil, false, err
	}
	out := make([]uint64, e.count)
	for i := range out {
		switch e.typ {
		case 1:
			out[i] = uint64(raw[i])
		case 3:
			out[i] = uint64(d.bo.Uint16(raw[i*2:]))
		case 4:
			out[i] = uint64(d.bo.Uint32(raw[i*4:]))
		default:
			return nil, false, eris.Errorf("tiff: tag %d has non-integer type %d", tag, e.typ)
		}
	}
	return out, true, nil
}

func (d *tiffDecoder) uintValue(tag uint16, def uint64) (uint64, error) {
	vs, ok, err := d.uintValues(tag)
	if err != nil {
		return 0, err
	}
	if !ok || len(vs) == 0 {
		return def, nil
	}
	return vs[0], nil
}

func (d *tiffDecoder) doubleValues(tag uint16) ([]float64, bool, error) {
	e, ok := d.entries[tag]
	if !ok {
		return nil, false, nil
	}
	raw, err := d.valueBytes(e)
	if err != nil {
		return nil, false, err
	}
	out := make([]float64, e.count)
	for i := range out {
		switch e.typ {
		case 11:
			out[i] = float64(math.Float32frombits(d.bo.Uint32(raw[i*4:])))
		case 12:
			out[i] = math.Float64frombits(d.bo.Uint64(raw[i*8:]))
		default:
			return nil, false, eris.Errorf("tiff: tag %d has non-float type %d", tag, e.typ)
		}
	}
	return out, true, nil
}

func (d *tiffDecoder) asciiValue(tag uint16) (string, bool, error) {
	e, ok := d.entries[tag]
	if !ok {
		return "", false, nil
	}
	raw, err := d.valueBytes(e)
	if err != nil {
		return "", false, err
	}
	return strings.TrimRight(string(raw), "\x00"), true, nil
}

func (d *tiffDecoder) decode() (*Grid, error) {
	width, err := d.uintValue(tagImageWidth, 0)
	if err != nil {
		return nil, err
	}
	height, err := d.uintValue(tagImageLength, 0)
	if err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		return nil, eris.New("tiff: missing image dimensions")
	}

	spp, err := d.uintValue(tagSamplesPerPixel, 1)
	if err != nil {
		return nil, err
	}
	if spp != 1 {
		return nil, eris.Errorf("tiff: %d samples per pixel; only single-band rasters are supported", spp)
	}

	bits, err := d.uintValue(tagBitsPerSample, 8)
	if err != nil {
		return nil, err
	}
	format, err := d.uintValue(tagSampleFormat, sampleFormatUint)
	if err != nil {
		return nil, err
	}
	compression, err := d.uintValue(tagCompression, compressionNone)
	if err != nil {
		return nil, err
	}
	predictor, err := d.uintValue(tagPredictor, 1)
	if err != nil {
		return nil, err
	}
	if predictor != 1 && predictor != 2 {
		return nil, eris.Errorf("tiff: predictor %d is not supported", predictor)
	}
	if predictor == 2 && format == sampleFormatFloat {
		return nil, eris.New("tiff: horizontal predictor on float samples is not supported")
	}

	originX, originY, scaleX, scaleY, err := d.geoTransform()
	if err != nil {
		return nil, err
	}

	g := NewGrid(int(width), int(height), originX, originY, scaleX, scaleY)
	g.HasNoData = false
	g.NoData = 0

	if s, ok, err := d.asciiValue(tagGDALNoData); err != nil {
		return nil, err
	} else if ok {
		nd, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if perr != nil {
			return nil, eris.Wrapf(perr, "tiff: parse nodata %q", s)
		}
		g.NoData = nd
		g.HasNoData = true
	}

	if epsg, err := d.epsgCode(); err != nil {
		return nil, err
	} else {
		g.EPSG = epsg
	}

	conv, err := sampleConverter(int(bits), int(format), d.bo)
	if err != nil {
		return nil, err
	}
	bps := int(bits) / 8

	if _, tiled := d.entries[tagTileOffsets]; tiled {
		err = d.decodeTiles(g, int(compression), int(predictor), bps, conv)
	} else {
		err = d.decodeStrips(g, int(compression), int(predictor), bps, conv)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// geoTransform derives the affine transform from ModelPixelScale+Tiepoint or
// from a (rotation-free) ModelTransformation matrix.
func (d *tiffDecoder) geoTransform() (originX, originY, scaleX, scaleY float64, err error) {
	scale, hasScale, err := d.doubleValues(tagModelPixelScale)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	tie, hasTie, err := d.doubleValues(tagModelTiepoint)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	if hasScale && hasTie && len(scale) >= 2 && len(tie) >= 6 {
		sx, sy := scale[0], scale[1]
		if sx <= 0 || sy <= 0 {
			return 0, 0, 0, 0, eris.New("tiff: non-positive pixel scale")
		}
		// Tiepoint maps raster (i, j) to model (x, y).
		i, j, x, y := tie[0], tie[1], tie[3], tie[4]
		return x - i*sx, y + j*sy, sx, sy, nil
	}

	tr, hasTr, err := d.doubleValues(tagModelTransform)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if hasTr && len(tr) >= 16 {
		if tr[1] != 0 || tr[4] != 0 {
			return 0, 0, 0, 0, eris.New("tiff: rotated rasters are not supported")
		}
		if tr[0] <= 0 || tr[5] >= 0 {
			return 0, 0, 0, 0, eris.New("tiff: unexpected transform orientation")
		}
		return tr[3], tr[7], tr[0], -tr[5], nil
	}

	return 0, 0, 0, 0, eris.New("tiff: missing georeferencing (no pixel scale/tiepoint or transform)")
}

// epsgCode extracts the EPSG code from the GeoKey directory, preferring the
// projected CRS key over the geographic one. Returns 0 if absent.
func (d *tiffDecoder) epsgCode() (int, error) {
	keys, ok, err := d.uintValues(tagGeoKeyDirectory)
	if err != nil {
		return 0, err
	}
	if !ok || len(keys) < 4 {
		return 0, nil
	}

	var geographic, projected int
	// Directory header is four shorts, then four shorts per key.
	for i := 4; i+3 < len(keys); i += 4 {
		keyID, tagLoc, value := keys[i], keys[i+1], keys[i+3]
		if tagLoc != 0 {
			continue // value stored in another tag; EPSG keys are inline
		}
		switch keyID {
		case geoKeyGeographicType:
			geographic = int(value)
		case geoKeyProjectedCSTyp:
			projected = int(value)
		}
	}
	if projected != 0 {
		return projected, nil
	}
	return geographic, nil
}

// sampleConverter returns a function decoding one raw sample to float64.
func sampleConverter(bits, format int, bo binary.ByteOrder) (func([]byte) float64, error) {
	switch {
	case format == sampleFormatUint && bits == 8:
		return func(b []byte) float64 { return float64(b[0]) }, nil
	case format == sampleFormatUint && bits == 16:
		return func(b []byte) float64 { return float64(bo.Uint16(b)) }, nil
	case format == sampleFormatUint && bits == 32:
		return func(b []byte) float64 { return float64(bo.Uint32(b)) }, nil
	case format == sampleFormatInt && bits == 8:
		return func(b []byte) float64 { return float64(int8(b[0])) }, nil
	case format == sampleFormatInt && bits == 16:
		return func(b []byte) float64 { return float64(int16(bo.Uint16(b))) }, nil
	case format == sampleFormatInt && bits == 32:
		return func(b []byte) float64 { return float64(int32(bo.Uint32(b))) }, nil
	case format == sampleFormatFloat && bits == 32:
		return func(b []byte) float64 { return float64(math.Float32frombits(bo.Uint32(b))) }, nil
	case format == sampleFormatFloat && bits == 64:
		return func(b []byte) float64 { return math.Float64frombits(bo.Uint64(b)) }, nil
	default:
		return nil, eris.Errorf("tiff: unsupported sample format %d with %d bits", format, bits)
	}
}

func decompress(raw []byte, compression int) ([]byte, error) {
	switch compression {
	case compressionNone:
		return raw, nil
	case compressionDeflate, compressionDeflateAdobe:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, eris.Wrap(err, "tiff: open deflate block")
		}
		defer func() { _ = zr.Close() }()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, eris.Wrap(err, "tiff: inflate block")
		}
		return out, nil
	default:
		return nil, eris.Errorf("tiff: compression %d is not supported", compression)
	}
}

// undoHorizontalPredictor reverses per-row horizontal differencing in place.
func undoHorizontalPredictor(raw []byte, cols, rows, bps int, bo binary.ByteOrder) {
	for r := 0; r < rows; r++ {
		rowStart := r * cols * bps
		for c := 1; c < cols; c++ {
			pos := rowStart + c*bps
			prev := rowStart + (c-1)*bps
			switch bps {
			case 1:
				raw[pos] += raw[prev]
			case 2:
				bo.PutUint16(raw[pos:], bo.Uint16(raw[pos:])+bo.Uint16(raw[prev:]))
			case 4:
				bo.PutUint32(raw[pos:], bo.Uint32(raw[pos:])+bo.Uint32(raw[prev:]))
			}
		}
	}
}

// block reads, decompresses and predictor-corrects one strip or tile.
func (d *tiffDecoder) block(off, cnt uint64, compression, predictor, cols, rows, bps int) ([]byte, error) {
	if off+cnt > uint64(len(d.data)) {
		return nil, eris.New("tiff: block out of range")
	}
	raw, err := decompress(d.data[off:off+cnt], compression)
	if err != nil {
		return nil, err
	}
	if len(raw) < cols*rows*bps {
		return nil, eris.Errorf("tiff: short block: %d bytes for %dx%d samples", len(raw), cols, rows)
	}
	if predictor == 2 {
		undoHorizontalPredictor(raw, cols, rows, bps, d.bo)
	}
	return raw, nil
}

func (d *tiffDecoder) decodeStrips(g *Grid, compression, predictor, bps int, conv func([]byte) float64) error {
	offsets, ok, err := d.uintValues(tagStripOffsets)
	if err != nil {
		return err
	}
	if !ok {
		return eris.New("tiff: missing strip offsets")
	}
	counts, ok, err := d.uintValues(tagStripByteCounts)
	if err != nil {
		return err
	}
	if !ok || len(counts) != len(offsets) {
		return eris.New("tiff: missing or mismatched strip byte counts")
	}

	rps, err := d.uintValue(tagRowsPerStrip, uint64(g.Height))
	if err != nil {
		return err
	}
	if rps == 0 {
		rps = uint64(g.Height)
	}

	for s := range offsets {
		rowStart := s * int(rps)
		rows := int(rps)
		if rowStart+rows > g.Height {
			rows = g.Height - rowStart
		}
		if rows <= 0 {
			break
		}

		raw, err := d.block(offsets[s], counts[s], compression, predictor, g.Width, rows, bps)
		if err != nil {
			return err
		}
		for r := 0; r < rows; r++ {
			for c := 0; c < g.Width; c++ {
				g.Set(c, rowStart+r, conv(raw[(r*g.Width+c)*bps:]))
			}
		}
	}
	return nil
}

func (d *tiffDecoder) decodeTiles(g *Grid, compression, predictor, bps int, conv func([]byte) float64) error {
	offsets, _, err := d.uintValues(tagTileOffsets)
	if err != nil {
		return err
	}
	counts, ok, err := d.uintValues(tagTileByteCounts)
	if err != nil {
		return err
	}
	if !ok || len(counts) != len(offsets) {
		return eris.New("tiff: missing or mismatched tile byte counts")
	}

	tw, err := d.uintValue(tagTileWidth, 0)
	if err != nil {
		return err
	}
	tl, err := d.uintValue(tagTileLength, 0)
	if err != nil {
		return err
	}
	if tw == 0 || tl == 0 {
		return eris.New("tiff: missing tile dimensions")
	}

	across := (g.Width + int(tw) - 1) / int(tw)
	down := (g.Height + int(tl) - 1) / int(tl)
	if across*down != len(offsets) {
		return eris.Errorf("tiff: expected %d tiles, found %d", across*down, len(offsets))
	}

	for ty := 0; ty < down; ty++ {
		for tx := 0; tx < across; tx++ {
			idx := ty*across + tx
			raw, err := d.block(offsets[idx], counts[idx], compression, predictor, int(tw), int(tl), bps)
			if err != nil {
				return err
			}

			for r := 0; r < int(tl); r++ {
				row := ty*int(tl) + r
				if row >= g.Height {
					break
				}
				for c := 0; c < int(tw); c++ {
					col := tx*int(tw) + c
					if col >= g.Width {
						break
					}
					g.Set(col, row, conv(raw[(r*int(tw)+c)*bps:]))
				}
			}
		}
	}
	return nil
}
