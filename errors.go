package wpkgar

import "errors"

// Sentinel errors. Malformed-archive conditions (bad magic, checksum
// mismatch, truncation) are ordinary errors carrying offset context and are
// not matched by any sentinel; callers treat them as fatal for the read.
var (
	// ErrUndefined is returned when an operation requires Create or
	// ReadFile to have been called first.
	ErrUndefined = errors.New("wpkgar: file is undefined")

	// ErrParameter is returned for out-of-range offsets and invalid
	// format requests.
	ErrParameter = errors.New("wpkgar: invalid parameter")

	// ErrCompatibility is returned when an operation is invoked against a
	// format that does not support it, such as DirRewind on a non-archive
	// or Compress on already-compressed data.
	ErrCompatibility = errors.New("wpkgar: operation incompatible with format")

	// ErrInvalidData is returned by the meta codec for malformed text
	// lines: bad mode strings, bad dates, missing columns.
	ErrInvalidData = errors.New("wpkgar: invalid data")

	// ErrUnsupported is returned for recognized but unimplemented
	// sub-features: ar long filenames, lzma/xz decompression.
	ErrUnsupported = errors.New("wpkgar: unsupported feature")
)
