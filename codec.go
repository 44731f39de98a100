package wpkgar

import (
	"fmt"

	"github.com/unigw/wpkgar/fileinfo"
)

// codec is one container format's decode/encode pair. One implementation
// exists per container flavor; the engine selects it from the format tag and
// never branches per call.
type codec interface {
	// newIterator positions a fresh entry cursor at the start of f.
	newIterator(f *File, recursive bool) (iterator, error)

	// append encodes info plus an optional data payload at the end of f.
	append(f *File, info *fileinfo.Info, data *File) error
}

// iterator walks a container's entries. next fills info and returns the
// entry's data as a nested File (nil when the entry carries none), or io.EOF
// after the last entry.
type iterator interface {
	next(info *fileinfo.Info) (*File, error)
}

// codecFor returns the codec for a container format, or nil when the format
// is not a container.
func codecFor(format Format) codec {
	switch format {
	case Directory:
		return dirCodec{}
	case Ar:
		return arCodec{}
	case Tar:
		return tarCodec{}
	case Wpkg:
		return wpkgCodec{}
	case Meta:
		return metaCodec{}
	}
	return nil
}

// newNested creates a loaded File sharing f's pool and logger, holding the
// given payload bytes with its format sniffed.
func (f *File) newNested(load func(*File) error) (*File, error) {
	n := New(WithPool(f.pool), WithLogger(f.logger))
	n.defined = true
	n.loaded = true
	if err := load(n); err != nil {
		n.Reset()
		return nil, err
	}
	n.format = n.GuessFormat()
	return n, nil
}

// requireCodec maps a format to its codec or fails with ErrCompatibility.
func (f *File) requireCodec(op string) (codec, error) {
	if !f.defined {
		return nil, fmt.Errorf("%s: %w", op, ErrUndefined)
	}
	c := codecFor(f.format)
	if c == nil {
		return nil, fmt.Errorf("%s on %s data: %w", op, f.format, ErrCompatibility)
	}
	return c, nil
}
