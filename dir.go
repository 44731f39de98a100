package wpkgar

import (
	"fmt"

	"github.com/unigw/wpkgar/fileinfo"
)

// DirReader is a stateful cursor over a container's entries. The archive
// bytes themselves are never mutated by iteration; all position state lives
// here.
type DirReader struct {
	f  *File
	it iterator
}

// DirOption configures directory iteration.
type DirOption func(*dirConfig)

type dirConfig struct {
	recursive bool
}

// WithRecursive controls whether OS-directory iteration descends into
// subdirectories. The default is true. Archive formats are flat and ignore
// this option.
func WithRecursive(recursive bool) DirOption {
	return func(cfg *dirConfig) {
		cfg.recursive = recursive
	}
}

// DirRewind returns a cursor positioned before the first entry. It fails
// with ErrCompatibility when the File's format is not a container.
func (f *File) DirRewind(opts ...DirOption) (*DirReader, error) {
	c, err := f.requireCodec("dir")
	if err != nil {
		return nil, err
	}
	cfg := dirConfig{recursive: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	it, err := c.newIterator(f, cfg.recursive)
	if err != nil {
		return nil, err
	}
	return &DirReader{f: f, it: it}, nil
}

// Next returns the next entry's metadata and, when the entry carries one, a
// nested File holding its data with the format sniffed. It returns io.EOF
// after the last entry.
func (d *DirReader) Next() (*fileinfo.Info, *File, error) {
	info := fileinfo.New()
	data, err := d.it.next(info)
	if err != nil {
		return nil, nil, err
	}
	return info, data, nil
}

// AppendFile encodes info and an optional data payload at the end of the
// File using its format's codec. data may be nil for entries without
// content (directories, symlinks, meta lines).
func (f *File) AppendFile(info *fileinfo.Info, data *File) error {
	c, err := f.requireCodec("append")
	if err != nil {
		return err
	}
	if data != nil && !data.defined {
		return fmt.Errorf("append: data %w", ErrUndefined)
	}
	return c.append(f, info, data)
}
