package wpkgar

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/unigw/wpkgar/block"
	"github.com/unigw/wpkgar/internal/fetch"
)

// File is the container engine: one pooled block buffer plus a format tag.
//
// A File starts undefined; Create or ReadFile establishes validity. Most
// operations on an undefined File fail with ErrUndefined — only Size and
// Reset are always permitted. A File is either created (being built in
// memory) or loaded (parsed from existing bytes), never both.
//
// Files are not safe for concurrent use. The pool they draw blocks from is.
type File struct {
	mgr     *block.Manager
	pool    *block.Pool
	format  Format
	defined bool
	loaded  bool
	name    string
	pkgPath string
	logger  *slog.Logger
}

// Option configures a File.
type Option func(*File)

// WithPool sets the block pool the File draws buffers from.
// The default is block.DefaultPool.
func WithPool(p *block.Pool) Option {
	return func(f *File) {
		f.pool = p
	}
}

// WithLogger sets the logger used for debug events. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(f *File) {
		f.logger = l
	}
}

// New creates an undefined File.
func New(opts ...Option) *File {
	f := &File{}
	for _, opt := range opts {
		opt(f)
	}
	f.mgr = block.NewManager(f.pool)
	return f
}

// log returns the logger, falling back to a discard logger if nil.
func (f *File) log() *slog.Logger {
	if f.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return f.logger
}

// Create establishes the File as a new, empty container of the given
// format. Undefined and Best are not creatable formats.
func (f *File) Create(format Format) error {
	if format == Undefined || format == Best {
		return fmt.Errorf("create %s: %w", format, ErrParameter)
	}
	if f.defined {
		f.mgr.Reset()
	}
	f.format = format
	f.defined = true
	f.loaded = false
	return nil
}

// Format returns the current format tag.
func (f *File) Format() Format {
	return f.format
}

// Defined reports whether Create or ReadFile has been called.
func (f *File) Defined() bool {
	return f.defined
}

// Loaded reports whether the File was populated by ReadFile (as opposed to
// being created in memory).
func (f *File) Loaded() bool {
	return f.loaded
}

// Filename returns the logical filename or URI associated with the File.
func (f *File) Filename() string {
	return f.name
}

// SetFilename sets the logical filename or URI.
func (f *File) SetFilename(name string) {
	f.name = name
}

// PackagePath returns the base directory used to resolve out-of-band file
// content for wpkgar and meta entries.
func (f *File) PackagePath() string {
	return f.pkgPath
}

// SetPackagePath sets the base directory used to resolve out-of-band file
// content. The wpkgar format stores an index, not inline bytes; reading a
// regular entry's data requires this path.
func (f *File) SetPackagePath(path string) {
	f.pkgPath = path
}

// Size returns the logical size in bytes. Permitted on undefined Files.
func (f *File) Size() int64 {
	return f.mgr.Size()
}

// Reset releases all blocks back to the pool and returns the File to the
// undefined state. Permitted on undefined Files.
func (f *File) Reset() {
	f.mgr.Reset()
	f.format = Undefined
	f.defined = false
	f.loaded = false
	f.name = ""
	f.pkgPath = ""
}

// ReadAt implements io.ReaderAt over the File's bytes.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if !f.defined {
		return 0, fmt.Errorf("read: %w", ErrUndefined)
	}
	return f.mgr.ReadAt(p, off)
}

// WriteAt implements io.WriterAt over the File's bytes, growing and
// zero-filling as needed.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if !f.defined {
		return 0, fmt.Errorf("write: %w", ErrUndefined)
	}
	return f.mgr.WriteAt(p, off)
}

// Compare lexicographically compares the bytes of two Files, tie-broken by
// size. It returns -1, 0, or 1.
func (f *File) Compare(other *File) (int, error) {
	if !f.defined || !other.defined {
		return 0, fmt.Errorf("compare: %w", ErrUndefined)
	}
	return f.mgr.Compare(other.mgr), nil
}

// CopyFrom replaces the File's format and bytes with a copy of src.
func (f *File) CopyFrom(src *File) error {
	if !src.defined {
		return fmt.Errorf("copy: %w", ErrUndefined)
	}
	if err := f.mgr.CopyFrom(src.mgr); err != nil {
		return err
	}
	f.format = src.format
	f.defined = true
	f.loaded = src.loaded
	f.name = src.name
	f.pkgPath = src.pkgPath
	return nil
}

// RawMD5Sum streams the File's bytes through MD5 in block-sized chunks and
// returns the raw 16-byte digest.
func (f *File) RawMD5Sum() ([16]byte, error) {
	var sum [16]byte
	if !f.defined {
		return sum, fmt.Errorf("md5sum: %w", ErrUndefined)
	}
	h := md5.New()
	if _, err := f.mgr.WriteTo(h); err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// MD5Sum returns the hex-encoded MD5 of the File's bytes.
func (f *File) MD5Sum() (string, error) {
	sum, err := f.RawMD5Sum()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum[:]), nil
}

// GuessFormat sniffs the File's leading bytes. The tar signature lives at
// offset 0x101, so up to 0x107 bytes are examined.
func (f *File) GuessFormat() Format {
	head := make([]byte, 0x101+6)
	n, _ := f.mgr.ReadAt(head, 0)
	return GuessFormat(head[:n])
}

// ReadFile loads the File from a path or an http/https URL. The format is
// sniffed from the loaded bytes, except that a local directory loads as the
// Directory format with no bytes.
func (f *File) ReadFile(name string) error {
	f.Reset()

	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		body, _, err := fetch.Get(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		defer body.Close()
		if _, err := f.mgr.ReadFrom(body); err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
	} else {
		st, err := os.Stat(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if st.IsDir() {
			f.name = name
			f.format = Directory
			f.defined = true
			f.loaded = true
			return nil
		}
		fh, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		defer fh.Close()
		if _, err := f.mgr.ReadFrom(fh); err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
	}

	f.name = name
	f.defined = true
	f.loaded = true
	f.format = f.GuessFormat()
	f.log().Debug("file loaded", "name", name, "size", f.mgr.Size(), "format", f.format.String())
	return nil
}

// LoadFrom populates the File from a reader and sniffs the format.
func (f *File) LoadFrom(r io.Reader) error {
	f.Reset()
	if _, err := f.mgr.ReadFrom(r); err != nil {
		return err
	}
	f.defined = true
	f.loaded = true
	f.format = f.GuessFormat()
	return nil
}

// WriteFile writes the File's bytes to disk.
func (f *File) WriteFile(name string) error {
	if !f.defined {
		return fmt.Errorf("write %s: %w", name, ErrUndefined)
	}
	fh, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := f.mgr.WriteTo(fh); err != nil {
		fh.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return fh.Close()
}

// Reader returns an io.Reader over the File's bytes from off to the end.
func (f *File) Reader(off int64) io.Reader {
	return f.mgr.Reader(off)
}

// manager exposes the block manager to the codecs.
func (f *File) manager() *block.Manager {
	return f.mgr
}
