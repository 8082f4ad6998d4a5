package contracts

import (
	"encoding/binary"
	"fmt"
)

type PixelFormat int

const (
	PixelFormatGray16 PixelFormat = iota + 1
	PixelFormatRGB8
)

func (f PixelFormat) Channels() int {
	switch f {
	case PixelFormatGray16:
		return 1
	case PixelFormatRGB8:
		return 3
	}
	return 0
}

func (f PixelFormat) BytesPerSample() int {
	switch f {
	case PixelFormatGray16:
		return 2
	case PixelFormatRGB8:
		return 1
	}
	return 0
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatGray16:
		return "gray16"
	case PixelFormatRGB8:
		return "rgb8"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// All buffers are row-major, Width*Height pixels.

type FloatBuffer struct {
	Width   int
	Height  int
	Samples []float32
}

type Gray16Buffer struct {
	Width   int
	Height  int
	Samples []uint16
}

type RGBABuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

type RGBBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// Frame is a raster handed to an Encoder, tagged with its pixel format.
// 16-bit samples are stored big-endian.
type Frame struct {
	Format PixelFormat
	Width  int
	Height int
	Pix    []byte
}

func checkLen(got, width, height, channels int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("%w: negative size %dx%d", ErrDimensionMismatch, width, height)
	}
	if want := width * height * channels; got != want {
		return fmt.Errorf("%w: %d samples for %dx%d with %d channel(s), want %d",
			ErrDimensionMismatch, got, width, height, channels, want)
	}
	return nil
}

func (b *FloatBuffer) Validate() error {
	return checkLen(len(b.Samples), b.Width, b.Height, 1)
}

func (b *Gray16Buffer) Validate() error {
	return checkLen(len(b.Samples), b.Width, b.Height, 1)
}

func (b *RGBABuffer) Validate() error {
	return checkLen(len(b.Pix), b.Width, b.Height, 4)
}

func (b *RGBBuffer) Validate() error {
	return checkLen(len(b.Pix), b.Width, b.Height, 3)
}

func (b *Gray16Buffer) Frame() *Frame {
	pix := make([]byte, 2*len(b.Samples))
	for i, v := range b.Samples {
		binary.BigEndian.PutUint16(pix[2*i:], v)
	}
	return &Frame{
		Format: PixelFormatGray16,
		Width:  b.Width,
		Height: b.Height,
		Pix:    pix,
	}
}

func (b *RGBBuffer) Frame() *Frame {
	return &Frame{
		Format: PixelFormatRGB8,
		Width:  b.Width,
		Height: b.Height,
		Pix:    b.Pix,
	}
}
