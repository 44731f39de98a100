package wpkgar

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/karrick/godirwalk"

	"github.com/unigw/wpkgar/block"
	"github.com/unigw/wpkgar/fileinfo"
)

// dirCodec treats an OS directory as a container. The File carries no bytes;
// its filename is the root path. Iteration lists the tree (depth-first,
// entries sorted per directory) and append materializes entries on disk
// under the root.
type dirCodec struct{}

type dirIterator struct {
	f         *File
	root      string
	recursive bool
	pending   []string // relative slash paths, front is next
	scratch   []byte
}

func (dirCodec) newIterator(f *File, recursive bool) (iterator, error) {
	if f.name == "" {
		return nil, fmt.Errorf("dir: no directory path: %w", ErrParameter)
	}
	it := &dirIterator{
		f:         f,
		root:      f.name,
		recursive: recursive,
		scratch:   make([]byte, block.Size),
	}
	if err := it.push(""); err != nil {
		return nil, fmt.Errorf("dir %s: %w", f.name, err)
	}
	return it, nil
}

// push lists rel's children and prepends them to the pending queue in sorted
// order, giving a preorder walk.
func (d *dirIterator) push(rel string) error {
	dirents, err := godirwalk.ReadDirents(filepath.Join(d.root, filepath.FromSlash(rel)), d.scratch)
	if err != nil {
		return err
	}
	sort.Sort(dirents)
	children := make([]string, 0, len(dirents))
	for _, de := range dirents {
		if de.Name() == "." || de.Name() == ".." {
			continue
		}
		children = append(children, path.Join(rel, de.Name()))
	}
	d.pending = append(children, d.pending...)
	return nil
}

func (d *dirIterator) next(info *fileinfo.Info) (*File, error) {
	if len(d.pending) == 0 {
		return nil, io.EOF
	}
	rel := d.pending[0]
	d.pending = d.pending[1:]

	full := filepath.Join(d.root, filepath.FromSlash(rel))
	st, err := os.Lstat(full)
	if err != nil {
		return nil, fmt.Errorf("dir: %w", err)
	}

	info.SetFilename(rel)
	info.FromFS(st)
	if uid, gid, ok := statOwner(st); ok {
		info.SetUID(uid)
		info.SetGID(gid)
	}

	switch info.TypeOr(fileinfo.Regular) {
	case fileinfo.Directory:
		if d.recursive {
			if err := d.push(rel); err != nil {
				return nil, fmt.Errorf("dir %s: %w", rel, err)
			}
		}
		return nil, nil
	case fileinfo.Symlink:
		target, err := os.Readlink(full)
		if err != nil {
			return nil, fmt.Errorf("dir: %w", err)
		}
		info.SetLinkTo(target)
		return nil, nil
	case fileinfo.Regular:
		data, err := d.f.newNested(func(nf *File) error {
			fh, err := os.Open(full)
			if err != nil {
				return err
			}
			defer fh.Close()
			_, err = nf.mgr.ReadFrom(fh)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("dir: entry data %s: %w", rel, err)
		}
		return data, nil
	}
	return nil, nil // devices and fifos carry no data
}

// append materializes one entry on disk under the File's root path. Regular
// files require data; directories and symlinks carry none.
func (dirCodec) append(f *File, info *fileinfo.Info, data *File) error {
	if f.name == "" {
		return fmt.Errorf("dir append: no directory path: %w", ErrParameter)
	}
	name, ok := info.Filename()
	if !ok || name == "" {
		return fmt.Errorf("dir append: filename not set: %w", ErrParameter)
	}
	full := filepath.Join(f.name, filepath.FromSlash(name))

	switch info.TypeOr(fileinfo.Regular) {
	case fileinfo.Directory:
		return os.MkdirAll(full, info.ModeOr(0o755))
	case fileinfo.Symlink:
		target, ok := info.LinkTo()
		if !ok || target == "" {
			return fmt.Errorf("dir append %s: link target not set: %w", name, ErrParameter)
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		return os.Symlink(target, full)
	case fileinfo.Regular:
		if data == nil {
			return fmt.Errorf("dir append %s: no data: %w", name, ErrParameter)
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		fh, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.ModeOr(0o644))
		if err != nil {
			return err
		}
		if _, err := data.mgr.WriteTo(fh); err != nil {
			fh.Close()
			return err
		}
		return fh.Close()
	}
	return fmt.Errorf("dir append %s: type %s: %w", name, info.TypeOr(fileinfo.Regular), ErrUnsupported)
}
