package fileinfo

import (
	"errors"
	"fmt"
)

// maxFieldValue is the largest value a fixed-width archive field may carry.
const maxFieldValue = 0x7FFFFFFF

// ErrBadField is returned when a fixed-width numeric field cannot be parsed.
var ErrBadField = errors.New("fileinfo: malformed numeric field")

// ParseField parses a fixed-width, right-aligned numeric header field in
// base 8 or 10, the layout used by ar and tar headers: leading spaces are
// skipped, digits follow, and the remainder must be NULs or spaces. Any
// residual character fails, as does a value above 0x7FFFFFFF.
func ParseField(b []byte, base int) (int64, error) {
	if base != 8 && base != 10 {
		return 0, fmt.Errorf("%w: unsupported base %d", ErrBadField, base)
	}
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}
	if i == len(b) || b[i] == 0 {
		return 0, fmt.Errorf("%w: empty field %q", ErrBadField, b)
	}
	var v int64
	seen := false
	for ; i < len(b); i++ {
		c := b[i]
		if c == ' ' || c == 0 {
			break
		}
		if c < '0' || c >= '0'+byte(base) {
			return 0, fmt.Errorf("%w: bad digit %q in %q", ErrBadField, c, b)
		}
		v = v*int64(base) + int64(c-'0')
		if v > maxFieldValue {
			return 0, fmt.Errorf("%w: value overflow in %q", ErrBadField, b)
		}
		seen = true
	}
	if !seen {
		return 0, fmt.Errorf("%w: empty field %q", ErrBadField, b)
	}
	// after the terminator only filler is allowed
	for ; i < len(b); i++ {
		if b[i] != ' ' && b[i] != 0 {
			return 0, fmt.Errorf("%w: trailing junk in %q", ErrBadField, b)
		}
	}
	return v, nil
}

// FormatField renders v right-aligned into dst in base 8 or 10, left-filled
// with pad. It is the inverse of ParseField; callers wanting a trailing NUL
// or space terminator pass a dst that excludes the terminator byte.
func FormatField(dst []byte, v int64, base int, pad byte) error {
	if base != 8 && base != 10 {
		return fmt.Errorf("%w: unsupported base %d", ErrBadField, base)
	}
	if v < 0 || v > maxFieldValue {
		return fmt.Errorf("%w: value %d out of range", ErrBadField, v)
	}
	i := len(dst)
	for {
		i--
		if i < 0 {
			return fmt.Errorf("%w: value %d does not fit in %d bytes", ErrBadField, v, len(dst))
		}
		dst[i] = byte('0' + v%int64(base))
		v /= int64(base)
		if v == 0 {
			break
		}
	}
	for i--; i >= 0; i-- {
		dst[i] = pad
	}
	return nil
}
