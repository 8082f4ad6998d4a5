package contracts

import "errors"

var (
	// ErrDecodeMismatch indicates the decoded sample type is not what the pipeline requires.
	ErrDecodeMismatch = errors.New("decode mismatch")
	// ErrDimensionMismatch indicates a buffer length that does not match width×height.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrRangeViolation indicates an elevation sample outside the quantizable range.
	ErrRangeViolation = errors.New("elevation out of range")
	// ErrInputFormat indicates a color buffer that is not 4-channel.
	ErrInputFormat = errors.New("invalid input format")
	// ErrEncode indicates a frame that does not fit its declared pixel format.
	ErrEncode = errors.New("encode failed")
	// ErrUnsupported indicates a TIFF feature the reader does not handle.
	ErrUnsupported = errors.New("unsupported TIFF")
	// ErrMalformedTIFF indicates a TIFF whose structure cannot be parsed.
	ErrMalformedTIFF = errors.New("malformed TIFF")
	// ErrOpenFile indicates the input file could not be opened or read.
	ErrOpenFile = errors.New("open file failed")
	// ErrCreateFile indicates the output file could not be created.
	ErrCreateFile = errors.New("create file failed")
	// ErrWriteFile indicates the output file could not be written or committed.
	ErrWriteFile = errors.New("write file failed")
)
