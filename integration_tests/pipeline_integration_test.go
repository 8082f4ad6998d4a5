package tests

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"tiff2png/contracts"
	"tiff2png/converter"
	"tiff2png/internal/testutil"
	"tiff2png/png_writer"
	"tiff2png/tiff_reader"
)

func newConverter() *converter.Converter {
	return converter.New(tiff_reader.NewReader(), png_writer.NewPNGWriter(png.DefaultCompression))
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding PNG: %v", err)
	}
	return img
}

func TestTopoPipelineTiledDeflate(t *testing.T) {
	const w, h = 37, 23
	heights := testutil.Ramp(w, h, converter.MinSwissHeight, converter.MaxSwissHeight)

	data, err := testutil.FloatTIFF(w, h, heights, testutil.FloatTIFFOptions{
		Compression: 8,
		Predictor:   3,
		TileWidth:   16,
		TileHeight:  16,
	})
	if err != nil {
		t.Fatalf("building fixture: %v", err)
	}

	var out bytes.Buffer
	res, err := newConverter().Convert(contracts.KindTopo, bytes.NewReader(data), &out)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if res.Clamped != 0 {
		t.Errorf("Clamped = %d, want 0", res.Clamped)
	}

	gray, ok := decodePNG(t, out.Bytes()).(*image.Gray16)
	if !ok {
		t.Fatal("topo output is not 16-bit grayscale")
	}
	if b := gray.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Fatalf("output size = %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
	}

	rng := converter.SwissElevationRange()
	prev := uint16(0)
	for i, hgt := range heights {
		got := gray.Gray16At(i%w, i/w).Y
		if want := rng.Quantize(hgt); got != want {
			t.Fatalf("pixel %d = %d, want %d", i, got, want)
		}
		if got < prev {
			t.Fatalf("pixel %d = %d after %d, ramp not monotonic", i, got, prev)
		}
		prev = got
	}
	if first, last := gray.Gray16At(0, 0).Y, gray.Gray16At(w-1, h-1).Y; first != 0 || last != 65535 {
		t.Errorf("ramp ends = %d, %d; want 0, 65535", first, last)
	}
}

func TestAlbedoPipeline(t *testing.T) {
	const w, h = 5, 4
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 50), G: uint8(y * 60), B: uint8(x + y), A: uint8(x * y * 10)})
		}
	}
	data, err := testutil.ColorTIFF(img, tiff.Deflate)
	if err != nil {
		t.Fatalf("building fixture: %v", err)
	}

	var out bytes.Buffer
	if _, err := newConverter().Convert(contracts.KindAlbedo, bytes.NewReader(data), &out); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	rgb, ok := decodePNG(t, out.Bytes()).(*image.RGBA)
	if !ok {
		t.Fatal("albedo output is not 8-bit truecolor")
	}
	if b := rgb.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Fatalf("output size = %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := img.NRGBAAt(x, y)
			got := rgb.RGBAAt(x, y)
			if got.R != src.R || got.G != src.G || got.B != src.B || got.A != 255 {
				t.Fatalf("pixel (%d,%d) = %v, want color of %v", x, y, got, src)
			}
		}
	}
}

func TestWrongPipelineLeavesNoPNG(t *testing.T) {
	dir := t.TempDir()

	elevation, err := testutil.FloatTIFF(2, 2, testutil.Ramp(2, 2, 300, 400), testutil.FloatTIFFOptions{})
	if err != nil {
		t.Fatal(err)
	}
	albedo, err := testutil.ColorTIFF(image.NewNRGBA(image.Rect(0, 0, 2, 2)), tiff.Uncompressed)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		kind contracts.Kind
		data []byte
	}{
		{"albedo file as topo", contracts.KindTopo, albedo},
		{"elevation file as albedo", contracts.KindAlbedo, elevation},
	}
	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := filepath.Join(dir, "in"+string(rune('a'+i))+".tif")
			out := filepath.Join(dir, "out"+string(rune('a'+i))+".png")
			if err := os.WriteFile(in, tc.data, 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := newConverter().ConvertFile(tc.kind, in, out)
			if !errors.Is(err, contracts.ErrDecodeMismatch) {
				t.Fatalf("err = %v, want ErrDecodeMismatch", err)
			}
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Errorf("output %s exists after a failed conversion", out)
			}
		})
	}
}

func TestSwisstopoSamples(t *testing.T) {
	samples := []struct {
		kind contracts.Kind
		path string
	}{
		{contracts.KindTopo, filepath.Join("testdata", "swissalti3d.tif")},
		{contracts.KindAlbedo, filepath.Join("testdata", "swissimage-dop10.tif")},
	}
	for _, s := range samples {
		t.Run(s.kind.String(), func(t *testing.T) {
			if _, err := os.Stat(s.path); os.IsNotExist(err) {
				t.Skipf("Skipping test: %s not found", s.path)
			}
			out := filepath.Join(t.TempDir(), s.kind.String()+".png")
			res, err := newConverter().ConvertFile(s.kind, s.path, out)
			if err != nil {
				t.Fatalf("ConvertFile failed: %v", err)
			}
			t.Logf("%s: %dx%d %s, %d samples clamped", s.path, res.Width, res.Height, res.Format, res.Clamped)
		})
	}
}
