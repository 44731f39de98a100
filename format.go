package wpkgar

import (
	"bytes"
	"fmt"
)

// Format identifies the container or compression encoding of a File's bytes.
type Format int

const (
	// Undefined marks a File on which neither Create nor ReadFile has
	// been called.
	Undefined Format = iota

	// Other is uninterpreted data: a plain file payload.
	Other

	// Directory is a live OS directory tree (never serialized bytes).
	Directory

	// Ar is the Unix ar archive format used by .deb outer containers.
	Ar

	// Tar is the POSIX ustar format with GNU and PAX extensions.
	Tar

	// Zip and SevenZ are recognized for sniffing only.
	Zip
	SevenZ

	// Wpkg is the wpkgar installed-package index format.
	Wpkg

	// Meta is the line-oriented human-readable manifest format.
	Meta

	// Compression formats.
	Gzip
	Bzip2
	Lzma
	Xz
	Zstd

	// Best is a compression request: try every supported codec and keep
	// the smallest result. It is never the format of loaded data.
	Best
)

// String returns the conventional short name of the format.
func (f Format) String() string {
	switch f {
	case Undefined:
		return "undefined"
	case Other:
		return "other"
	case Directory:
		return "directory"
	case Ar:
		return "ar"
	case Tar:
		return "tar"
	case Zip:
		return "zip"
	case SevenZ:
		return "7z"
	case Wpkg:
		return "wpkg"
	case Meta:
		return "meta"
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	case Lzma:
		return "lzma"
	case Xz:
		return "xz"
	case Zstd:
		return "zstd"
	case Best:
		return "best"
	}
	return "unknown"
}

// ParseFormat maps a conventional short name back to its Format. It accepts
// the names String returns plus common aliases ("gz", "bz2", "zst").
func ParseFormat(s string) (Format, error) {
	switch s {
	case "gz":
		return Gzip, nil
	case "bz2":
		return Bzip2, nil
	case "zst":
		return Zstd, nil
	}
	for f := Other; f <= Best; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return Undefined, fmt.Errorf("unknown format %q: %w", s, ErrParameter)
}

// IsCompressed reports whether the format is a compression encoding.
func (f Format) IsCompressed() bool {
	switch f {
	case Gzip, Bzip2, Lzma, Xz, Zstd:
		return true
	}
	return false
}

// magic signatures, longest-prefix first where prefixes overlap.
// The tar signature sits at offset 0x101 (the ustar magic field).
var magics = []struct {
	format Format
	offset int
	sig    []byte
}{
	{Xz, 0, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}},
	{Gzip, 0, []byte{0x1F, 0x8B, 0x08}},
	{Bzip2, 0, []byte("BZh")},
	{Zstd, 0, []byte{0x28, 0xB5, 0x2F, 0xFD}},
	{Ar, 0, []byte("!<arch>\n")},
	{SevenZ, 0, []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}},
	{Zip, 0, []byte{'P', 'K', 0x03, 0x04}},
	{Wpkg, 0, []byte("GKPW")}, // little-endian 'W'<<24|'P'<<16|'K'<<8|'G'
	{Tar, 0x101, []byte("ustar\x00")},
	{Tar, 0x101, []byte("ustar ")},
}

// GuessFormat sniffs the leading bytes of data and returns the matching
// format, or Other when no known signature is present. A heuristic catches
// raw LZMA streams, which carry no magic: a valid properties byte followed
// by the common dictionary-size values.
func GuessFormat(data []byte) Format {
	for _, m := range magics {
		if len(data) >= m.offset+len(m.sig) && bytes.Equal(data[m.offset:m.offset+len(m.sig)], m.sig) {
			return m.format
		}
	}
	if looksLikeLzma(data) {
		return Lzma
	}
	return Other
}

// looksLikeLzma applies the raw-LZMA header heuristic: properties byte
// below 9*5*5 and a plausible power-of-two dictionary size.
func looksLikeLzma(data []byte) bool {
	if len(data) < 13 || data[0] >= 225 {
		return false
	}
	dictSize := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16 | uint32(data[4])<<24
	if dictSize == 0 {
		return false
	}
	return dictSize&(dictSize-1) == 0 && dictSize >= 1<<12 && dictSize <= 1<<27
}
