package png_writer

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"tiff2png/contracts"
)

type Frame = contracts.Frame

type PNGWriter struct {
	enc png.Encoder
}

func NewPNGWriter(level png.CompressionLevel) *PNGWriter {
	return &PNGWriter{
		enc: png.Encoder{CompressionLevel: level},
	}
}

// Encode writes frame as a 16-bit grayscale or 8-bit RGB PNG.
func (pw *PNGWriter) Encode(w io.Writer, frame *Frame) error {
	img, err := frameImage(frame)
	if err != nil {
		return err
	}
	if err := pw.enc.Encode(w, img); err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrEncode, err)
	}
	return nil
}

func checkFrame(frame *Frame) error {
	pixelBytes := frame.Format.Channels() * frame.Format.BytesPerSample()
	if pixelBytes == 0 {
		return fmt.Errorf("%w: unknown pixel format %v", contracts.ErrEncode, frame.Format)
	}
	if len(frame.Pix)%pixelBytes != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of %d for %v",
			contracts.ErrEncode, len(frame.Pix), pixelBytes, frame.Format)
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return fmt.Errorf("%w: image size %dx%d", contracts.ErrEncode, frame.Width, frame.Height)
	}
	if want := frame.Width * frame.Height * pixelBytes; len(frame.Pix) != want {
		return fmt.Errorf("%w: %d bytes for %dx%d %v, want %d",
			contracts.ErrEncode, len(frame.Pix), frame.Width, frame.Height, frame.Format, want)
	}
	return nil
}

// frameImage wraps frame in the image type image/png writes with the
// matching color type: Gray16 as grayscale depth 16, opaque RGBA as
// truecolor depth 8.
func frameImage(frame *Frame) (image.Image, error) {
	if err := checkFrame(frame); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, frame.Width, frame.Height)

	switch frame.Format {
	case contracts.PixelFormatGray16:
		return &image.Gray16{
			Pix:    frame.Pix,
			Stride: 2 * frame.Width,
			Rect:   rect,
		}, nil
	case contracts.PixelFormatRGB8:
		img := image.NewRGBA(rect)
		n := frame.Width * frame.Height
		for i := 0; i < n; i++ {
			copy(img.Pix[4*i:4*i+3], frame.Pix[3*i:3*i+3])
			img.Pix[4*i+3] = 0xff
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: unknown pixel format %v", contracts.ErrEncode, frame.Format)
}
