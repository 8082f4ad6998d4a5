package converter

import (
	"fmt"
	"math"

	"tiff2png/contracts"
)

// swissALTI3D covers the whole of Switzerland within these heights (meters).
const (
	MinSwissHeight float32 = 193.0
	MaxSwissHeight float32 = 4644.0
)

// ElevationRange maps [Min, Max] meters onto the full uint16 range.
type ElevationRange struct {
	Min float32
	Max float32
}

func SwissElevationRange() ElevationRange {
	return ElevationRange{Min: MinSwissHeight, Max: MaxSwissHeight}
}

func NewElevationRange(lo, hi float32) (ElevationRange, error) {
	if math.IsNaN(float64(lo)) || math.IsNaN(float64(hi)) || !(hi > lo) {
		return ElevationRange{}, fmt.Errorf("invalid elevation range [%v, %v]", lo, hi)
	}
	return ElevationRange{Min: lo, Max: hi}, nil
}

// Scale is the height in meters of one uint16 step.
func (r ElevationRange) Scale() float64 {
	return (float64(r.Max) - float64(r.Min)) / math.MaxUint16
}

// Quantize truncates (h-Min)/Scale toward zero. Heights below Min and NaN
// give 0, heights above Max give 65535.
func (r ElevationRange) Quantize(h float32) uint16 {
	v, _ := r.quantize(h)
	return v
}

// QuantizeChecked is Quantize that fails instead of clamping.
func (r ElevationRange) QuantizeChecked(h float32) (uint16, error) {
	v, ok := r.quantize(h)
	if !ok {
		return 0, fmt.Errorf("%w: %v not in [%v, %v]", contracts.ErrRangeViolation, h, r.Min, r.Max)
	}
	return v, nil
}

func (r ElevationRange) quantize(h float32) (uint16, bool) {
	switch {
	case math.IsNaN(float64(h)):
		return 0, false
	case h < r.Min:
		return 0, false
	case h > r.Max:
		return math.MaxUint16, false
	}
	// multiply before dividing so Max lands exactly on 65535
	q := (float64(h) - float64(r.Min)) * math.MaxUint16 / (float64(r.Max) - float64(r.Min))
	if q >= math.MaxUint16 {
		return math.MaxUint16, true
	}
	return uint16(q), true
}

type RangePolicy int

const (
	RangeClamp RangePolicy = iota
	RangeReject
)

func (p RangePolicy) String() string {
	if p == RangeReject {
		return "reject"
	}
	return "clamp"
}

// QuantizeBuffer quantizes every sample of buf, keeping order and size.
// It returns how many samples fell outside rng.
func QuantizeBuffer(buf *contracts.FloatBuffer, rng ElevationRange, policy RangePolicy) (*contracts.Gray16Buffer, int, error) {
	if err := buf.Validate(); err != nil {
		return nil, 0, err
	}
	out := &contracts.Gray16Buffer{
		Width:   buf.Width,
		Height:  buf.Height,
		Samples: make([]uint16, len(buf.Samples)),
	}
	outside := 0
	for i, h := range buf.Samples {
		v, ok := rng.quantize(h)
		if !ok {
			if policy == RangeReject {
				return nil, outside, fmt.Errorf("%w: sample %d (x=%d, y=%d) is %v, range [%v, %v]",
					contracts.ErrRangeViolation, i, i%buf.Width, i/buf.Width, h, rng.Min, rng.Max)
			}
			outside++
		}
		out.Samples[i] = v
	}
	return out, outside, nil
}

// ReduceRGBA drops the alpha channel. Color channels are copied unchanged,
// alpha never influences them.
func ReduceRGBA(buf *contracts.RGBABuffer) (*contracts.RGBBuffer, error) {
	if len(buf.Pix)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of RGBA pixels", contracts.ErrInputFormat, len(buf.Pix))
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	n := buf.Width * buf.Height
	rgb := make([]uint8, 3*n)
	for i := 0; i < n; i++ {
		copy(rgb[3*i:3*i+3], buf.Pix[4*i:4*i+3])
	}
	return &contracts.RGBBuffer{
		Width:  buf.Width,
		Height: buf.Height,
		Pix:    rgb,
	}, nil
}
