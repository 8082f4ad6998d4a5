package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tiff2png/contracts"
	"tiff2png/internal/testutil"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want InputFlags
		ok   bool
	}{
		{
			name: "flags after subcommand",
			argv: []string{"topo", "-i", "in.tif", "-o", "out.png"},
			want: InputFlags{Kind: contracts.KindTopo, InputPath: "in.tif", OutputPath: "out.png"},
			ok:   true,
		},
		{
			name: "flags before subcommand",
			argv: []string{"--input", "in.tif", "--output", "out.png", "albedo"},
			want: InputFlags{Kind: contracts.KindAlbedo, InputPath: "in.tif", OutputPath: "out.png"},
			ok:   true,
		},
		{
			name: "mixed",
			argv: []string{"-i", "in.tif", "albedo", "-o", "out.png"},
			want: InputFlags{Kind: contracts.KindAlbedo, InputPath: "in.tif", OutputPath: "out.png"},
			ok:   true,
		},
		{name: "no subcommand", argv: []string{"-i", "in.tif", "-o", "out.png"}},
		{name: "unknown subcommand", argv: []string{"dem", "-i", "in.tif", "-o", "out.png"}},
		{name: "missing output", argv: []string{"topo", "-i", "in.tif"}},
		{name: "extra argument", argv: []string{"topo", "-i", "in.tif", "-o", "out.png", "more"}},
		{name: "unknown flag", argv: []string{"topo", "-q"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgs(tc.argv, io.Discard)
			if !tc.ok {
				if err == nil {
					t.Fatalf("expected an error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("parseArgs = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRunAlbedo(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dop10.tif")
	out := filepath.Join(dir, "albedo.png")

	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 128})
	data, err := testutil.ColorTIFF(img, 0)
	if err != nil {
		t.Fatalf("building fixture: %v", err)
	}
	if err := os.WriteFile(in, data, 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	if err := run(InputFlags{Kind: contracts.KindAlbedo, InputPath: in, OutputPath: out}, &stdout); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Converted to") {
		t.Errorf("stdout = %q, want a completion line", stdout.String())
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	r, g, b, a := decoded.At(0, 0).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 || a>>8 != 255 {
		t.Errorf("pixel = %d,%d,%d,%d; want opaque red", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestRunRejectsBadPaths(t *testing.T) {
	dir := t.TempDir()
	err := run(InputFlags{Kind: contracts.KindTopo, InputPath: filepath.Join(dir, "missing.tif"), OutputPath: filepath.Join(dir, "out.png")}, io.Discard)
	if err == nil {
		t.Fatal("expected an error for a missing input")
	}
}
