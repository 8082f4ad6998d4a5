// Command tiff2png converts swisstopo rasters to PNG.
//
// Usage:
//
//	tiff2png topo -i swissalti3d.tif -o height.png
//	tiff2png albedo -i swissimage-dop10.tif -o albedo.png
//
// topo maps 32-bit float elevation onto 16-bit grayscale, albedo drops the
// alpha channel of an RGBA image. -i and -o may also precede the subcommand.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"time"

	"tiff2png/contracts"
	"tiff2png/converter"
	"tiff2png/files_manager"
	"tiff2png/png_writer"
	"tiff2png/tiff_reader"
)

type InputFlags = contracts.InputFlags

const usage = "usage: tiff2png [-i INPUT] [-o OUTPUT] <topo|albedo> [-i INPUT] [-o OUTPUT]"

func main() {
	args, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "[ERROR]: %v\n%s\n", err, usage)
		os.Exit(2)
	}

	if err := run(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR]: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(name string, args *InputFlags, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&args.InputPath, "input", args.InputPath, "Input TIFF file")
	fs.StringVar(&args.InputPath, "i", args.InputPath, "Input TIFF file (shorthand)")
	fs.StringVar(&args.OutputPath, "output", args.OutputPath, "Output PNG file")
	fs.StringVar(&args.OutputPath, "o", args.OutputPath, "Output PNG file (shorthand)")
	return fs
}

func parseArgs(argv []string, output io.Writer) (InputFlags, error) {
	var args InputFlags

	global := newFlagSet("tiff2png", &args, output)
	if err := global.Parse(argv); err != nil {
		return args, err
	}
	rest := global.Args()
	if len(rest) == 0 {
		return args, fmt.Errorf("missing subcommand")
	}

	kind, err := contracts.ParseKind(rest[0])
	if err != nil {
		return args, err
	}
	args.Kind = kind

	sub := newFlagSet(kind.String(), &args, output)
	if err := sub.Parse(rest[1:]); err != nil {
		return args, err
	}
	if sub.NArg() > 0 {
		return args, fmt.Errorf("unexpected arguments: %v", sub.Args())
	}
	if args.InputPath == "" || args.OutputPath == "" {
		return args, fmt.Errorf("both -i and -o are required")
	}
	return args, nil
}

func run(args InputFlags, stdout io.Writer) error {
	if err := files_manager.CheckProvidedFiles(args.InputPath, args.OutputPath); err != nil {
		return err
	}

	startTime := time.Now()
	defer func() {
		fmt.Fprintf(stdout, "Total time taken: %s\n", time.Since(startTime))
	}()

	conv := converter.New(
		tiff_reader.NewReader(),
		png_writer.NewPNGWriter(png.DefaultCompression),
		converter.WithLogger(stdout),
	)
	if _, err := conv.ConvertFile(args.Kind, args.InputPath, args.OutputPath); err != nil {
		return fmt.Errorf("%s conversion of %s: %w", args.Kind, args.InputPath, err)
	}
	return nil
}
