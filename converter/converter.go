package converter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"tiff2png/contracts"
	"tiff2png/files_manager"
	"tiff2png/utils"
)

type Converter struct {
	decoder contracts.Decoder
	encoder contracts.Encoder
	rng     ElevationRange
	policy  RangePolicy
	log     io.Writer
}

type Option func(*Converter)

func WithRange(rng ElevationRange) Option {
	return func(c *Converter) { c.rng = rng }
}

func WithRangePolicy(policy RangePolicy) Option {
	return func(c *Converter) { c.policy = policy }
}

// WithLogger sets where progress lines go. Defaults to io.Discard.
func WithLogger(w io.Writer) Option {
	return func(c *Converter) {
		if w == nil {
			w = io.Discard
		}
		c.log = w
	}
}

func New(decoder contracts.Decoder, encoder contracts.Encoder, opts ...Option) *Converter {
	c := &Converter{
		decoder: decoder,
		encoder: encoder,
		rng:     SwissElevationRange(),
		policy:  RangeClamp,
		log:     io.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert decodes r, applies the transform for kind and encodes the result to w.
// Nothing is written to w unless decoding and transforming succeed.
func (c *Converter) Convert(kind contracts.Kind, r io.ReadSeeker, w io.Writer) (contracts.ConvertResult, error) {
	frame, result, err := c.transform(kind, r)
	if err != nil {
		return result, err
	}
	if err := c.encoder.Encode(w, frame); err != nil {
		return result, err
	}
	return result, nil
}

func (c *Converter) transform(kind contracts.Kind, r io.ReadSeeker) (*contracts.Frame, contracts.ConvertResult, error) {
	result := contracts.ConvertResult{Kind: kind}

	switch kind {
	case contracts.KindTopo:
		elevation, err := c.decoder.DecodeElevation(r)
		if err != nil {
			return nil, result, fmt.Errorf("decoding elevation: %w", err)
		}
		gray, clamped, err := QuantizeBuffer(elevation, c.rng, c.policy)
		if err != nil {
			return nil, result, err
		}
		if clamped > 0 {
			fmt.Fprintf(c.log, "[WARN]: %d of %d samples outside [%v, %v] m were clamped\n",
				clamped, len(elevation.Samples), c.rng.Min, c.rng.Max)
		}
		result.Format = contracts.PixelFormatGray16
		result.Width, result.Height = gray.Width, gray.Height
		result.Clamped = clamped
		return gray.Frame(), result, nil

	case contracts.KindAlbedo:
		rgba, err := c.decoder.DecodeColor(r)
		if err != nil {
			return nil, result, fmt.Errorf("decoding albedo: %w", err)
		}
		rgb, err := ReduceRGBA(rgba)
		if err != nil {
			return nil, result, err
		}
		result.Format = contracts.PixelFormatRGB8
		result.Width, result.Height = rgb.Width, rgb.Height
		return rgb.Frame(), result, nil
	}

	return nil, result, fmt.Errorf("unsupported conversion kind: %v", kind)
}

// ConvertFile converts inputPath into a PNG at outputPath. The PNG is written
// to a temporary sibling first and only renamed into place once complete.
func (c *Converter) ConvertFile(kind contracts.Kind, inputPath, outputPath string) (contracts.ConvertResult, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return contracts.ConvertResult{Kind: kind}, fmt.Errorf("%w: %q: %v", contracts.ErrOpenFile, inputPath, err)
	}

	if res, err := utils.GetTIFFResolution(data); err == nil {
		fmt.Fprintf(c.log, "%s: %s\n", inputPath, res)
	}

	frame, result, err := c.transform(kind, bytes.NewReader(data))
	if err != nil {
		return result, err
	}

	tmpPath := files_manager.TempPath(outputPath)
	out, err := os.Create(tmpPath)
	if err != nil {
		return result, fmt.Errorf("%w: %q: %v", contracts.ErrCreateFile, tmpPath, err)
	}

	bw := bufio.NewWriterSize(out, 1024*1024)
	err = c.encoder.Encode(bw, frame)
	if err == nil {
		err = bw.Flush()
		if err != nil {
			err = fmt.Errorf("%w: %v", contracts.ErrWriteFile, err)
		}
	}
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: %v", contracts.ErrWriteFile, cerr)
	}
	if err != nil {
		files_manager.Discard(tmpPath)
		return result, err
	}

	if err := files_manager.Commit(tmpPath, outputPath); err != nil {
		files_manager.Discard(tmpPath)
		return result, err
	}

	fmt.Fprintf(c.log, "Converted to %s (%dx%d %s)\n", outputPath, result.Width, result.Height, result.Format)
	return result, nil
}
