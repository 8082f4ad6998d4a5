package tiff_reader

import (
	"encoding/binary"
	"fmt"

	"github.com/google/tiff"

	"tiff2png/contracts"
)

// Tags (TIFF 6.0, p. 28-41).
const (
	tImageWidth                = 256
	tImageLength               = 257
	tBitsPerSample             = 258
	tCompression               = 259
	tPhotometricInterpretation = 262
	tStripOffsets              = 273
	tSamplesPerPixel           = 277
	tRowsPerStrip              = 278
	tStripByteCounts           = 279
	tPredictor                 = 317
	tTileWidth                 = 322
	tTileLength                = 323
	tTileOffsets               = 324
	tTileByteCounts            = 325
	tSampleFormat              = 339
)

const (
	cNone         = 1
	cLZW          = 5
	cDeflate      = 8
	cDeflateOld   = 32946
	prNone        = 1
	prHorizontal  = 2
	prFloatingPt  = 3
	sfUint        = 1
	sfIEEEFloat   = 3
	maxPixelCount = 1 << 30
)

// layout is what the first IFD says about where and how pixels are stored.
type layout struct {
	order binary.ByteOrder

	width, height   int
	samplesPerPixel int
	bitsPerSample   []uint64
	sampleFormat    uint64
	photometric     uint64
	compression     uint64
	predictor       uint64

	tiled        bool
	blockWidth   int
	blockHeight  int
	blocksAcross int
	blocksDown   int
	offsets      []uint64
	byteCounts   []uint64
}

func fieldValues(ifd tiff.IFD, id uint16) ([]uint64, binary.ByteOrder, error) {
	if !ifd.HasField(id) {
		return nil, nil, nil
	}
	f := ifd.GetField(id)
	val := f.Value()
	n := int(f.Count())
	size := int(f.Type().Size())
	b := val.Bytes()
	if n == 0 || size == 0 || len(b) < n*size {
		return nil, nil, fmt.Errorf("%w: tag %d has %d bytes for %d values", contracts.ErrMalformedTIFF, id, len(b), n)
	}
	order := val.Order()
	out := make([]uint64, n)
	for i := range out {
		v := b[i*size : (i+1)*size]
		switch size {
		case 1:
			out[i] = uint64(v[0])
		case 2:
			out[i] = uint64(order.Uint16(v))
		case 4:
			out[i] = uint64(order.Uint32(v))
		case 8:
			out[i] = order.Uint64(v)
		default:
			return nil, nil, fmt.Errorf("%w: tag %d has non-integer type", contracts.ErrMalformedTIFF, id)
		}
	}
	return out, order, nil
}

func firstValue(ifd tiff.IFD, id uint16, def uint64) (uint64, error) {
	vals, _, err := fieldValues(ifd, id)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return def, nil
	}
	return vals[0], nil
}

func requiredValues(ifd tiff.IFD, id uint16) ([]uint64, error) {
	vals, _, err := fieldValues(ifd, id)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: missing tag %d", contracts.ErrMalformedTIFF, id)
	}
	return vals, nil
}

func readLayout(ifd tiff.IFD) (*layout, error) {
	widths, order, err := fieldValues(ifd, tImageWidth)
	if err != nil {
		return nil, err
	}
	if len(widths) == 0 {
		return nil, fmt.Errorf("%w: missing ImageWidth", contracts.ErrMalformedTIFF)
	}
	heights, err := requiredValues(ifd, tImageLength)
	if err != nil {
		return nil, err
	}

	l := &layout{
		order:  order,
		width:  int(widths[0]),
		height: int(heights[0]),
	}
	if l.width <= 0 || l.height <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", contracts.ErrMalformedTIFF, l.width, l.height)
	}
	if uint64(l.width)*uint64(l.height) > maxPixelCount {
		return nil, fmt.Errorf("%w: image size %dx%d too large", contracts.ErrUnsupported, l.width, l.height)
	}

	spp, err := firstValue(ifd, tSamplesPerPixel, 1)
	if err != nil {
		return nil, err
	}
	l.samplesPerPixel = int(spp)

	if l.bitsPerSample, _, err = fieldValues(ifd, tBitsPerSample); err != nil {
		return nil, err
	}
	if len(l.bitsPerSample) == 0 {
		l.bitsPerSample = []uint64{1}
	}
	if l.sampleFormat, err = firstValue(ifd, tSampleFormat, sfUint); err != nil {
		return nil, err
	}
	if l.photometric, err = firstValue(ifd, tPhotometricInterpretation, 1); err != nil {
		return nil, err
	}
	if l.compression, err = firstValue(ifd, tCompression, cNone); err != nil {
		return nil, err
	}
	if l.predictor, err = firstValue(ifd, tPredictor, prNone); err != nil {
		return nil, err
	}

	if ifd.HasField(tTileWidth) {
		l.tiled = true
		tw, err := firstValue(ifd, tTileWidth, 0)
		if err != nil {
			return nil, err
		}
		th, err := firstValue(ifd, tTileLength, 0)
		if err != nil {
			return nil, err
		}
		if tw == 0 || th == 0 {
			return nil, fmt.Errorf("%w: tile size %dx%d", contracts.ErrMalformedTIFF, tw, th)
		}
		l.blockWidth, l.blockHeight = int(tw), int(th)
		l.blocksAcross = (l.width + l.blockWidth - 1) / l.blockWidth
		l.blocksDown = (l.height + l.blockHeight - 1) / l.blockHeight
		if l.offsets, err = requiredValues(ifd, tTileOffsets); err != nil {
			return nil, err
		}
		if l.byteCounts, err = requiredValues(ifd, tTileByteCounts); err != nil {
			return nil, err
		}
	} else {
		rps, err := firstValue(ifd, tRowsPerStrip, uint64(l.height))
		if err != nil {
			return nil, err
		}
		if rps == 0 || rps > uint64(l.height) {
			rps = uint64(l.height)
		}
		l.blockWidth, l.blockHeight = l.width, int(rps)
		l.blocksAcross = 1
		l.blocksDown = (l.height + l.blockHeight - 1) / l.blockHeight
		if l.offsets, err = requiredValues(ifd, tStripOffsets); err != nil {
			return nil, err
		}
		if l.byteCounts, err = requiredValues(ifd, tStripByteCounts); err != nil {
			return nil, err
		}
	}

	blocks := l.blocksAcross * l.blocksDown
	if len(l.offsets) < blocks || len(l.byteCounts) < blocks {
		return nil, fmt.Errorf("%w: %d offsets and %d byte counts for %d blocks",
			contracts.ErrDimensionMismatch, len(l.offsets), len(l.byteCounts), blocks)
	}
	return l, nil
}

// isFloat32 reports single-channel 32-bit IEEE float samples.
func (l *layout) isFloat32() bool {
	if l.samplesPerPixel != 1 || l.sampleFormat != sfIEEEFloat {
		return false
	}
	for _, b := range l.bitsPerSample {
		if b != 32 {
			return false
		}
	}
	return true
}

func (l *layout) describe() string {
	return fmt.Sprintf("%d sample(s) of %v bits, sample format %d, photometric %d",
		l.samplesPerPixel, l.bitsPerSample, l.sampleFormat, l.photometric)
}

// blockRows is how many rows of block row by hold pixel data in the file.
// Tiles are always full, the last strip may be short.
func (l *layout) blockRows(by int) int {
	if l.tiled {
		return l.blockHeight
	}
	return min(l.blockHeight, l.height-by*l.blockHeight)
}
