package contracts

import (
	"fmt"
	"io"
)

type Kind int

const (
	KindTopo Kind = iota + 1
	KindAlbedo
)

func (k Kind) String() string {
	switch k {
	case KindTopo:
		return "topo"
	case KindAlbedo:
		return "albedo"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the subcommand names exactly, in lowercase.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "topo":
		return KindTopo, nil
	case "albedo":
		return KindAlbedo, nil
	}
	return 0, fmt.Errorf("unknown conversion kind %q, expected topo or albedo", s)
}

// Decoder turns a TIFF byte stream into a typed raster buffer.
type Decoder interface {
	DecodeElevation(r io.ReadSeeker) (*FloatBuffer, error)
	DecodeColor(r io.ReadSeeker) (*RGBABuffer, error)
}

// Encoder serializes a frame of an explicit pixel format.
type Encoder interface {
	Encode(w io.Writer, frame *Frame) error
}

type ConvertResult struct {
	Kind    Kind
	Format  PixelFormat
	Width   int
	Height  int
	Clamped int
}
