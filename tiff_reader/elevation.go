package tiff_reader

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/tiff"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"

	"tiff2png/contracts"
)

// Reader decodes TIFF files into raster buffers. It holds no state, the
// zero value is ready to use.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func parseFirstIFD(r io.ReadSeeker) (*layout, tiff.ReadAtReadSeeker, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", contracts.ErrOpenFile, err)
	}
	ra := tiff.NewReadAtReadSeeker(r)
	t, err := tiff.Parse(ra, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", contracts.ErrMalformedTIFF, err)
	}
	ifds := t.IFDs()
	if len(ifds) == 0 {
		return nil, nil, fmt.Errorf("%w: no image file directory", contracts.ErrMalformedTIFF)
	}
	l, err := readLayout(ifds[0])
	if err != nil {
		return nil, nil, err
	}
	return l, ra, nil
}

// DecodeElevation decodes the first image of a single-channel float32 TIFF.
func (d *Reader) DecodeElevation(r io.ReadSeeker) (*contracts.FloatBuffer, error) {
	l, ra, err := parseFirstIFD(r)
	if err != nil {
		return nil, err
	}
	if !l.isFloat32() {
		return nil, fmt.Errorf("%w: want 1 sample of 32-bit IEEE float, file has %s",
			contracts.ErrDecodeMismatch, l.describe())
	}
	switch l.predictor {
	case prNone, prHorizontal, prFloatingPt:
	default:
		return nil, fmt.Errorf("%w: predictor %d", contracts.ErrUnsupported, l.predictor)
	}

	out := &contracts.FloatBuffer{
		Width:   l.width,
		Height:  l.height,
		Samples: make([]float32, l.width*l.height),
	}

	rowBytes := l.blockWidth * 4
	block := make([]byte, rowBytes*l.blockHeight)
	scratch := make([]byte, rowBytes)

	for by := 0; by < l.blocksDown; by++ {
		rows := l.blockRows(by)
		for bx := 0; bx < l.blocksAcross; bx++ {
			i := by*l.blocksAcross + bx
			data := block[:rows*rowBytes]
			if err := l.readBlock(ra, l.offsets[i], l.byteCounts[i], data); err != nil {
				return nil, fmt.Errorf("block %d: %w", i, err)
			}

			order := l.order
			for y := 0; y < rows; y++ {
				row := data[y*rowBytes : (y+1)*rowBytes]
				switch l.predictor {
				case prHorizontal:
					undoHorizontal32(row, l.order)
				case prFloatingPt:
					undoFloatingPoint(row, scratch, 4)
					order = binary.BigEndian
				}
			}

			l.place(out, data, rows, bx, by, order)
		}
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// readBlock fills dst with the decompressed bytes of one strip or tile. The
// block is streamed from ra, so a byte count larger than the file costs
// nothing before the data runs out.
func (l *layout) readBlock(ra io.ReaderAt, offset, count uint64, dst []byte) error {
	if offset > math.MaxInt64 || count > math.MaxInt64-offset {
		return fmt.Errorf("%w: block at %d with %d bytes", contracts.ErrMalformedTIFF, offset, count)
	}
	raw := io.NewSectionReader(ra, int64(offset), int64(count))

	var src io.Reader
	switch l.compression {
	case cNone:
		src = raw
	case cLZW:
		rc := lzw.NewReader(bufio.NewReader(raw), lzw.MSB, 8)
		defer rc.Close()
		src = rc
	case cDeflate, cDeflateOld:
		rc, err := zlib.NewReader(bufio.NewReader(raw))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: deflate block truncated", contracts.ErrDimensionMismatch)
			}
			return fmt.Errorf("%w: deflate: %v", contracts.ErrMalformedTIFF, err)
		}
		defer rc.Close()
		src = rc
	default:
		return fmt.Errorf("%w: compression %d", contracts.ErrUnsupported, l.compression)
	}

	if _, err := io.ReadFull(src, dst); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: block decodes to fewer than %d bytes", contracts.ErrDimensionMismatch, len(dst))
		}
		return fmt.Errorf("%w: %v", contracts.ErrMalformedTIFF, err)
	}
	return nil
}

// place copies a decoded block into out, clipping tiles at the right and
// bottom image edges.
func (l *layout) place(out *contracts.FloatBuffer, data []byte, rows, bx, by int, order binary.ByteOrder) {
	x0, y0 := bx*l.blockWidth, by*l.blockHeight
	cols := min(l.blockWidth, l.width-x0)
	rows = min(rows, l.height-y0)
	for y := 0; y < rows; y++ {
		src := data[y*l.blockWidth*4:]
		dst := out.Samples[(y0+y)*l.width+x0:]
		for x := 0; x < cols; x++ {
			dst[x] = math.Float32frombits(order.Uint32(src[4*x:]))
		}
	}
}

// undoHorizontal32 reverses predictor 2 on a row of 32-bit samples.
func undoHorizontal32(row []byte, order binary.ByteOrder) {
	for i := 4; i+4 <= len(row); i += 4 {
		v := order.Uint32(row[i:]) + order.Uint32(row[i-4:])
		order.PutUint32(row[i:], v)
	}
}

// undoFloatingPoint reverses predictor 3 (Adobe technical note 3). The row
// is byte-differenced and split into byte planes, most significant first;
// the result is big-endian regardless of the file byte order.
func undoFloatingPoint(row, scratch []byte, bytesPerSample int) {
	for i := 1; i < len(row); i++ {
		row[i] += row[i-1]
	}
	samples := len(row) / bytesPerSample
	tmp := scratch[:len(row)]
	copy(tmp, row)
	for s := 0; s < samples; s++ {
		for b := 0; b < bytesPerSample; b++ {
			row[s*bytesPerSample+b] = tmp[b*samples+s]
		}
	}
}
