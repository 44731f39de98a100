package wpkgar

import (
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/unigw/wpkgar/block"
)

// Compress compresses the File's bytes into dst using the requested codec
// at the given level (1 fastest, 9 smallest). Best tries every codec and
// keeps the smallest output. Compressing already-compressed data fails with
// ErrCompatibility.
//
// dst ends up defined with its format set to the codec actually used.
func (f *File) Compress(dst *File, format Format, level int) error {
	if !f.defined {
		return fmt.Errorf("compress: %w", ErrUndefined)
	}
	if f.format.IsCompressed() {
		return fmt.Errorf("compress %s data: %w", f.format, ErrCompatibility)
	}
	if level < 1 || level > 9 {
		return fmt.Errorf("compress level %d: %w", level, ErrParameter)
	}
	if dst == f {
		// dst is reset before the source is read, so in-place would
		// destroy the input
		return fmt.Errorf("compress into the source file: %w", ErrParameter)
	}

	switch format {
	case Gzip, Bzip2, Zstd:
		return f.compressOne(dst, format, level)
	case Best:
		return f.compressBest(dst, level)
	case Lzma, Xz:
		return fmt.Errorf("compress to %s: %w", format, ErrUnsupported)
	default:
		return fmt.Errorf("compress to %s: %w", format, ErrParameter)
	}
}

// compressOne streams the source through a single codec into dst.
func (f *File) compressOne(dst *File, format Format, level int) error {
	dst.Reset()
	dst.defined = true
	dst.format = format
	dst.name = f.name

	enc, err := newEncoder(dst.mgr, format, level)
	if err != nil {
		return fmt.Errorf("compress to %s: %w", format, err)
	}
	if _, err := io.CopyBuffer(enc, f.mgr.Reader(0), make([]byte, block.Size)); err != nil {
		enc.Close()
		return fmt.Errorf("compress to %s: %w", format, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compress to %s: %w", format, err)
	}
	f.log().Debug("compressed", "format", format.String(), "level", level,
		"in", f.mgr.Size(), "out", dst.mgr.Size())
	return nil
}

// compressBest compresses with every codec and keeps the smallest result.
func (f *File) compressBest(dst *File, level int) error {
	candidates := []Format{Gzip, Bzip2, Zstd}
	var best *File
	for _, format := range candidates {
		out := New(WithPool(f.pool), WithLogger(f.logger))
		if err := f.compressOne(out, format, level); err != nil {
			return err
		}
		if best == nil || out.Size() < best.Size() {
			if best != nil {
				best.Reset()
			}
			best = out
		} else {
			out.Reset()
		}
	}
	if err := dst.CopyFrom(best); err != nil {
		return err
	}
	best.Reset()
	return nil
}

// newEncoder returns a streaming encoder writing compressed bytes to w.
func newEncoder(w io.Writer, format Format, level int) (io.WriteCloser, error) {
	switch format {
	case Gzip:
		return gzip.NewWriterLevel(w, level)
	case Bzip2:
		return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: level})
	case Zstd:
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(1))
	}
	return nil, fmt.Errorf("no encoder for %s", format)
}

// Decompress decompresses the File's bytes into dst. The destination format
// is sniffed from the decompressed bytes. Decompressing data that is not
// compressed fails with ErrCompatibility; lzma and xz are recognized but
// unsupported.
func (f *File) Decompress(dst *File) error {
	if !f.defined {
		return fmt.Errorf("decompress: %w", ErrUndefined)
	}
	if dst == f {
		return fmt.Errorf("decompress into the source file: %w", ErrParameter)
	}

	var dec io.Reader
	var cleanup func()
	switch f.format {
	case Gzip:
		r, err := gzip.NewReader(f.mgr.Reader(0))
		if err != nil {
			return fmt.Errorf("decompress gzip: %w", err)
		}
		dec, cleanup = r, func() { r.Close() }
	case Bzip2:
		r, err := bzip2.NewReader(f.mgr.Reader(0), nil)
		if err != nil {
			return fmt.Errorf("decompress bzip2: %w", err)
		}
		dec, cleanup = r, func() { r.Close() }
	case Zstd:
		r, err := zstd.NewReader(f.mgr.Reader(0), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return fmt.Errorf("decompress zstd: %w", err)
		}
		dec, cleanup = r.IOReadCloser(), r.Close
	case Lzma, Xz:
		return fmt.Errorf("decompress %s: %w", f.format, ErrUnsupported)
	default:
		return fmt.Errorf("decompress %s data: %w", f.format, ErrCompatibility)
	}
	defer cleanup()

	dst.Reset()
	if _, err := dst.mgr.ReadFrom(dec); err != nil {
		return fmt.Errorf("decompress %s: %w", f.format, err)
	}
	dst.defined = true
	dst.loaded = true
	dst.name = f.name
	dst.format = dst.GuessFormat()
	f.log().Debug("decompressed", "from", f.format.String(),
		"in", f.mgr.Size(), "out", dst.mgr.Size(), "sniffed", dst.format.String())
	return nil
}
