package files_manager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tiff2png/contracts"
)

func IsTIFFPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tiff" || ext == ".tif"
}

func CheckProvidedFiles(inputPath string, outputPath string) error {
	if inputPath == "" || outputPath == "" {
		return fmt.Errorf("input and output files required")
	}

	stat, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", contracts.ErrOpenFile, inputPath, err)
	}
	if !stat.Mode().IsRegular() {
		return fmt.Errorf("input %q is not a regular file", inputPath)
	}
	if !IsTIFFPath(inputPath) {
		return fmt.Errorf("input %q must have a .tif or .tiff extension", inputPath)
	}

	absIn, err := filepath.Abs(inputPath)
	if err != nil {
		return err
	}
	absOut, err := filepath.Abs(outputPath)
	if err != nil {
		return err
	}
	if absIn == absOut {
		return fmt.Errorf("input and output files must be different")
	}

	outDir := filepath.Dir(absOut)
	if stat, err := os.Stat(outDir); err != nil || !stat.IsDir() {
		return fmt.Errorf("output directory %q does not exist or is not a directory", outDir)
	}
	if stat, err := os.Stat(absOut); err == nil && stat.IsDir() {
		return fmt.Errorf("output %q is a directory", outputPath)
	}
	return nil
}

// TempPath is where output is staged before Commit renames it into place.
func TempPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	fileName := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "."+fileName+".tmp")
}

func Commit(tmpPath string, outputPath string) error {
	info, err := os.Stat(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: failed to get file info: %v", contracts.ErrWriteFile, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: file is empty: %s", contracts.ErrWriteFile, tmpPath)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("%w: failed to rename file: %v", contracts.ErrWriteFile, err)
	}
	return nil
}

func Discard(tmpPath string) {
	_ = os.Remove(tmpPath)
}
