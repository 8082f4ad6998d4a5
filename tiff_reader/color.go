package tiff_reader

import (
	"errors"
	"fmt"
	"image"
	"io"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"tiff2png/contracts"
)

// DecodeColor decodes the first image of a color TIFF into 8-bit RGBA.
// RGBA and NRGBA samples are kept exactly as stored, anything else goes
// through a color model conversion.
func (d *Reader) DecodeColor(r io.ReadSeeker) (*contracts.RGBABuffer, error) {
	l, _, err := parseFirstIFD(r)
	if err != nil {
		return nil, err
	}
	if l.sampleFormat == sfIEEEFloat {
		return nil, fmt.Errorf("%w: want 8-bit color, file has %s", contracts.ErrDecodeMismatch, l.describe())
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrOpenFile, err)
	}
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, decodeError(err)
	}
	return toRGBA(img), nil
}

func decodeError(err error) error {
	var unsupported tiff.UnsupportedError
	if errors.As(err, &unsupported) {
		return fmt.Errorf("%w: %v", contracts.ErrDecodeMismatch, err)
	}
	return fmt.Errorf("%w: %v", contracts.ErrMalformedTIFF, err)
}

func toRGBA(img image.Image) *contracts.RGBABuffer {
	b := img.Bounds()
	out := &contracts.RGBABuffer{
		Width:  b.Dx(),
		Height: b.Dy(),
	}

	switch m := img.(type) {
	case *image.NRGBA:
		out.Pix = packRows(m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y), b.Dx()*4, b.Dy())
	case *image.RGBA:
		out.Pix = packRows(m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y), b.Dx()*4, b.Dy())
	default:
		dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		out.Pix = dst.Pix
	}
	return out
}

func packRows(pix []uint8, stride, start, rowBytes, rows int) []uint8 {
	out := make([]uint8, rowBytes*rows)
	for y := 0; y < rows; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], pix[start+y*stride:])
	}
	return out
}
