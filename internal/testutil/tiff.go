// Package testutil builds small TIFF fixtures in memory.
package testutil

import (
	"bytes"
	"compress/lzw"
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff"
)

// FloatTIFFOptions controls the layout of a generated elevation TIFF.
// The zero value is a little-endian, uncompressed, single strip float32 file.
type FloatTIFFOptions struct {
	Order        binary.ByteOrder
	Compression  uint16 // 1 (none), 5 (lzw) or 8 (deflate)
	Predictor    uint16 // 1, 2 or 3
	RowsPerStrip int
	TileWidth    int
	TileHeight   int

	// Override the sample description, for files that must not decode as float32.
	SamplesPerPixel int
	BitsPerSample   uint16
	SampleFormat    uint16

	// TruncateBy drops bytes from the end of the last block's data.
	TruncateBy int
}

type ifdEntry struct {
	tag  uint16
	typ  uint16
	vals []uint32
}

const (
	dtShort = 3
	dtLong  = 4
)

// FloatTIFF encodes samples (row-major, width*height) as a float32 TIFF.
func FloatTIFF(width, height int, samples []float32, opts FloatTIFFOptions) ([]byte, error) {
	if len(samples) != width*height {
		return nil, fmt.Errorf("%d samples for %dx%d", len(samples), width, height)
	}
	order := opts.Order
	if order == nil {
		order = binary.LittleEndian
	}
	compression := opts.Compression
	if compression == 0 {
		compression = 1
	}
	predictor := opts.Predictor
	if predictor == 0 {
		predictor = 1
	}
	spp := opts.SamplesPerPixel
	if spp == 0 {
		spp = 1
	}
	bps := opts.BitsPerSample
	if bps == 0 {
		bps = 32
	}
	sampleFormat := opts.SampleFormat
	if sampleFormat == 0 {
		sampleFormat = 3
	}

	tiled := opts.TileWidth > 0 && opts.TileHeight > 0
	blockW, blockH := width, height
	if tiled {
		blockW, blockH = opts.TileWidth, opts.TileHeight
	} else if opts.RowsPerStrip > 0 && opts.RowsPerStrip < height {
		blockH = opts.RowsPerStrip
	}
	across := (width + blockW - 1) / blockW
	down := (height + blockH - 1) / blockH

	var blocks [][]byte
	for by := 0; by < down; by++ {
		rows := blockH
		if !tiled {
			rows = min(blockH, height-by*blockH)
		}
		for bx := 0; bx < across; bx++ {
			var raw []byte
			for y := 0; y < rows; y++ {
				row := make([]float32, blockW)
				for x := range row {
					ix, iy := bx*blockW+x, by*blockH+y
					if ix < width && iy < height {
						row[x] = samples[iy*width+ix]
					}
				}
				raw = append(raw, encodeRow(row, order, predictor)...)
			}
			var err error
			if raw, err = compress(raw, compression); err != nil {
				return nil, err
			}
			blocks = append(blocks, raw)
		}
	}
	if opts.TruncateBy > 0 {
		last := blocks[len(blocks)-1]
		blocks[len(blocks)-1] = last[:max(0, len(last)-opts.TruncateBy)]
	}

	var out bytes.Buffer
	if order == binary.BigEndian {
		out.WriteString("MM\x00\x2A")
	} else {
		out.WriteString("II\x2A\x00")
	}
	out.Write(make([]byte, 4)) // IFD offset, patched below

	offsets := make([]uint32, len(blocks))
	counts := make([]uint32, len(blocks))
	for i, b := range blocks {
		offsets[i] = uint32(out.Len())
		counts[i] = uint32(len(b))
		out.Write(b)
	}
	if out.Len()%2 == 1 {
		out.WriteByte(0)
	}

	bpsVals := make([]uint32, spp)
	formatVals := make([]uint32, spp)
	for i := range bpsVals {
		bpsVals[i] = uint32(bps)
		formatVals[i] = uint32(sampleFormat)
	}
	entries := []ifdEntry{
		{256, dtLong, []uint32{uint32(width)}},
		{257, dtLong, []uint32{uint32(height)}},
		{258, dtShort, bpsVals},
		{259, dtShort, []uint32{uint32(compression)}},
		{262, dtShort, []uint32{1}},
		{277, dtShort, []uint32{uint32(spp)}},
		{284, dtShort, []uint32{1}},
		{317, dtShort, []uint32{uint32(predictor)}},
		{339, dtShort, formatVals},
	}
	if tiled {
		entries = append(entries,
			ifdEntry{322, dtLong, []uint32{uint32(blockW)}},
			ifdEntry{323, dtLong, []uint32{uint32(blockH)}},
			ifdEntry{324, dtLong, offsets},
			ifdEntry{325, dtLong, counts},
		)
	} else {
		entries = append(entries,
			ifdEntry{273, dtLong, offsets},
			ifdEntry{278, dtLong, []uint32{uint32(blockH)}},
			ifdEntry{279, dtLong, counts},
		)
	}
	writeIFD(&out, order, entries)
	return out.Bytes(), nil
}

// lzwMaxBlock keeps an LZW block short enough never to reach the 9 to 10 bit
// code width change, the only place compress/lzw and TIFF's early-change LZW
// differ.
const lzwMaxBlock = 240

func compress(raw []byte, compression uint16) ([]byte, error) {
	var buf bytes.Buffer
	switch compression {
	case 1:
		return raw, nil
	case 5:
		if len(raw) > lzwMaxBlock {
			return nil, fmt.Errorf("lzw block of %d bytes is over %d", len(raw), lzwMaxBlock)
		}
		lw := lzw.NewWriter(&buf, lzw.MSB, 8)
		if _, err := lw.Write(raw); err != nil {
			return nil, err
		}
		if err := lw.Close(); err != nil {
			return nil, err
		}
	case 8:
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("compression %d not supported by the fixture writer", compression)
	}
	return buf.Bytes(), nil
}

func writeIFD(out *bytes.Buffer, order binary.ByteOrder, entries []ifdEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	ifdOffset := uint32(out.Len())
	order.PutUint32(out.Bytes()[4:8], ifdOffset)

	extraOffset := ifdOffset + 2 + 12*uint32(len(entries)) + 4
	var extra bytes.Buffer

	var b2 [2]byte
	var b4 [4]byte
	order.PutUint16(b2[:], uint16(len(entries)))
	out.Write(b2[:])

	for _, e := range entries {
		size := 2
		if e.typ == dtLong {
			size = 4
		}
		data := make([]byte, size*len(e.vals))
		for i, v := range e.vals {
			if size == 2 {
				order.PutUint16(data[2*i:], uint16(v))
			} else {
				order.PutUint32(data[4*i:], v)
			}
		}

		order.PutUint16(b2[:], e.tag)
		out.Write(b2[:])
		order.PutUint16(b2[:], e.typ)
		out.Write(b2[:])
		order.PutUint32(b4[:], uint32(len(e.vals)))
		out.Write(b4[:])

		if len(data) <= 4 {
			var inline [4]byte
			copy(inline[:], data)
			out.Write(inline[:])
			continue
		}
		order.PutUint32(b4[:], extraOffset+uint32(extra.Len()))
		out.Write(b4[:])
		extra.Write(data)
		if extra.Len()%2 == 1 {
			extra.WriteByte(0)
		}
	}
	out.Write(make([]byte, 4)) // no next IFD
	out.Write(extra.Bytes())
}

// encodeRow applies the TIFF predictor the way a writer would.
func encodeRow(row []float32, order binary.ByteOrder, predictor uint16) []byte {
	n := len(row)
	out := make([]byte, 4*n)
	switch predictor {
	case 2:
		bits := make([]uint32, n)
		for i, v := range row {
			bits[i] = math.Float32bits(v)
		}
		for i := n - 1; i > 0; i-- {
			bits[i] -= bits[i-1]
		}
		for i, v := range bits {
			order.PutUint32(out[4*i:], v)
		}
	case 3:
		be := make([]byte, 4*n)
		for i, v := range row {
			binary.BigEndian.PutUint32(be[4*i:], math.Float32bits(v))
		}
		for s := 0; s < n; s++ {
			for b := 0; b < 4; b++ {
				out[b*n+s] = be[4*s+b]
			}
		}
		for i := len(out) - 1; i > 0; i-- {
			out[i] -= out[i-1]
		}
	default:
		for i, v := range row {
			order.PutUint32(out[4*i:], math.Float32bits(v))
		}
	}
	return out
}

// ColorTIFF encodes img with the x/image TIFF encoder.
func ColorTIFF(img image.Image, compression tiff.CompressionType) ([]byte, error) {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: compression}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Ramp returns width*height heights rising linearly from lo to hi.
func Ramp(width, height int, lo, hi float32) []float32 {
	out := make([]float32, width*height)
	n := len(out) - 1
	for i := range out {
		if n == 0 {
			out[i] = lo
			continue
		}
		out[i] = lo + (hi-lo)*float32(i)/float32(n)
	}
	return out
}
