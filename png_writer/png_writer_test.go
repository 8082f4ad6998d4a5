package png_writer

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"tiff2png/contracts"
)

// IHDR starts after the 8-byte signature, 4-byte length and 4-byte type.
const (
	ihdrBitDepth  = 8 + 8 + 8
	ihdrColorType = ihdrBitDepth + 1
)

func TestEncodeGray16(t *testing.T) {
	buf := &contracts.Gray16Buffer{Width: 3, Height: 1, Samples: []uint16{0, 0x1234, 65535}}

	var out bytes.Buffer
	if err := NewPNGWriter(png.DefaultCompression).Encode(&out, buf.Frame()); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	data := out.Bytes()
	if data[ihdrBitDepth] != 16 || data[ihdrColorType] != 0 {
		t.Errorf("bit depth %d color type %d, want 16 grayscale (0)", data[ihdrBitDepth], data[ihdrColorType])
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	gray, ok := img.(*image.Gray16)
	if !ok {
		t.Fatalf("decoded %T, want *image.Gray16", img)
	}
	for x, want := range buf.Samples {
		if got := gray.Gray16At(x, 0).Y; got != want {
			t.Errorf("pixel %d = %#x, want %#x", x, got, want)
		}
	}
}

func TestEncodeRGB(t *testing.T) {
	buf := &contracts.RGBBuffer{Width: 2, Height: 1, Pix: []uint8{255, 0, 0, 10, 20, 30}}

	var out bytes.Buffer
	if err := NewPNGWriter(png.BestSpeed).Encode(&out, buf.Frame()); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	data := out.Bytes()
	if data[ihdrBitDepth] != 8 || data[ihdrColorType] != 2 {
		t.Errorf("bit depth %d color type %d, want 8 truecolor (2)", data[ihdrBitDepth], data[ihdrColorType])
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		t.Fatalf("decoded %T, want *image.RGBA", img)
	}
	if want := []uint8{255, 0, 0, 255, 10, 20, 30, 255}; !bytes.Equal(rgba.Pix, want) {
		t.Errorf("Pix = %v, want %v", rgba.Pix, want)
	}
}

func TestEncodeRejectsBadFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{"rgb length not divisible by channels", &Frame{Format: contracts.PixelFormatRGB8, Width: 1, Height: 1, Pix: []byte{1, 2, 3, 4}}},
		{"gray16 odd byte count", &Frame{Format: contracts.PixelFormatGray16, Width: 1, Height: 1, Pix: []byte{1}}},
		{"length does not match size", &Frame{Format: contracts.PixelFormatRGB8, Width: 2, Height: 2, Pix: make([]byte, 9)}},
		{"empty image", &Frame{Format: contracts.PixelFormatGray16}},
		{"unknown format", &Frame{Width: 1, Height: 1, Pix: []byte{0}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			err := NewPNGWriter(png.DefaultCompression).Encode(&out, tc.frame)
			if !errors.Is(err, contracts.ErrEncode) {
				t.Fatalf("err = %v, want ErrEncode", err)
			}
			if out.Len() != 0 {
				t.Errorf("wrote %d bytes for an invalid frame", out.Len())
			}
		})
	}
}
