package wpkgar

import (
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/unigw/wpkgar/fileinfo"
)

// ar wire constants: the 8-byte global magic, then per entry a 60-byte
// header of fixed-width text fields terminated by "`\n". Entry content is
// padded to an even length.
const (
	arGlobalMagic = "!<arch>\n"
	arHeaderSize  = 60

	arName  = 0 // 16 bytes
	arMTime = 16
	arUID   = 28
	arGID   = 34
	arMode  = 40
	arSize  = 48
	arMagic = 58
)

// arCodec reads and writes Unix ar archives. The System V long-filename
// extension ("//" name table) is recognized and rejected as unsupported.
type arCodec struct{}

type arIterator struct {
	f   *File
	off int64
}

func (arCodec) newIterator(f *File, _ bool) (iterator, error) {
	magic := make([]byte, len(arGlobalMagic))
	if _, err := f.mgr.ReadAt(magic, 0); err != nil || string(magic) != arGlobalMagic {
		return nil, fmt.Errorf("ar: bad global magic")
	}
	return &arIterator{f: f, off: int64(len(arGlobalMagic))}, nil
}

func (a *arIterator) next(info *fileinfo.Info) (*File, error) {
	hdr := make([]byte, arHeaderSize)
	n, err := a.f.mgr.ReadAt(hdr, a.off)
	if err == io.EOF && n == 0 {
		return nil, io.EOF
	}
	if n < arHeaderSize {
		return nil, fmt.Errorf("ar: truncated header at offset %d", a.off)
	}
	if hdr[arMagic] != '`' || hdr[arMagic+1] != '\n' {
		return nil, fmt.Errorf("ar: bad entry magic at offset %d", a.off)
	}

	name := strings.TrimRight(string(hdr[arName:arName+16]), " ")
	if strings.HasPrefix(name, "//") || strings.HasPrefix(name, "/") && name != "/" {
		return nil, fmt.Errorf("ar: long filenames: %w", ErrUnsupported)
	}
	// GNU ar terminates names with a slash
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		return nil, fmt.Errorf("ar: empty entry name at offset %d", a.off)
	}
	info.SetFilename(name)
	info.SetType(fileinfo.Regular)

	mtime, err := fileinfo.ParseField(hdr[arMTime:arMTime+12], 10)
	if err != nil {
		return nil, fmt.Errorf("ar: mtime field: %w", err)
	}
	info.SetMTime(time.Unix(mtime, 0).UTC())

	uid, err := fileinfo.ParseField(hdr[arUID:arUID+6], 10)
	if err != nil {
		return nil, fmt.Errorf("ar: uid field: %w", err)
	}
	info.SetUID(int(uid))

	gid, err := fileinfo.ParseField(hdr[arGID:arGID+6], 10)
	if err != nil {
		return nil, fmt.Errorf("ar: gid field: %w", err)
	}
	info.SetGID(int(gid))

	mode, err := fileinfo.ParseField(hdr[arMode:arMode+8], 8)
	if err != nil {
		return nil, fmt.Errorf("ar: mode field: %w", err)
	}
	info.SetMode(fs.FileMode(mode & 0o7777))

	size, err := fileinfo.ParseField(hdr[arSize:arSize+10], 10)
	if err != nil {
		return nil, fmt.Errorf("ar: size field: %w", err)
	}
	info.SetSize(size)

	dataOff := a.off + arHeaderSize
	a.off = dataOff + size
	if size%2 != 0 {
		a.off++ // entries are padded to even boundaries
	}

	data, err := a.f.newNested(func(nf *File) error {
		_, err := nf.mgr.ReadFrom(io.NewSectionReader(a.f.mgr, dataOff, size))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ar: entry data: %w", err)
	}
	return data, nil
}

// append encodes one entry. The global magic is written lazily before the
// first entry. Names longer than the 16-byte field are unsupported.
func (arCodec) append(f *File, info *fileinfo.Info, data *File) error {
	name, ok := info.Filename()
	if !ok || name == "" {
		return fmt.Errorf("ar append: filename not set: %w", ErrParameter)
	}
	if len(name) > 16 {
		return fmt.Errorf("ar append: name %q too long: %w", name, ErrUnsupported)
	}

	if f.mgr.Size() == 0 {
		if _, err := f.mgr.Append([]byte(arGlobalMagic)); err != nil {
			return err
		}
	}

	var size int64
	if data != nil {
		size = data.Size()
	}

	hdr := make([]byte, arHeaderSize)
	for i := range hdr {
		hdr[i] = ' '
	}
	copy(hdr[arName:], name)

	type decField struct {
		off, n, base int
		v            int64
	}
	fields := []decField{
		{arMTime, 12, 10, info.MTimeOr(time.Unix(0, 0)).Unix()},
		{arUID, 6, 10, int64(info.UIDOr(0))},
		{arGID, 6, 10, int64(info.GIDOr(0))},
		{arMode, 8, 8, int64(info.ModeOr(0o400) & 0o7777)},
		{arSize, 10, 10, size},
	}
	for _, fld := range fields {
		// left-aligned in ar: format right-aligned then shift left
		buf := make([]byte, fld.n)
		if err := fileinfo.FormatField(buf, fld.v, fld.base, ' '); err != nil {
			return fmt.Errorf("ar append: %w", err)
		}
		trimmed := strings.TrimLeft(string(buf), " ")
		copy(hdr[fld.off:fld.off+fld.n], trimmed)
	}
	hdr[arMagic] = '`'
	hdr[arMagic+1] = '\n'

	if _, err := f.mgr.Append(hdr); err != nil {
		return err
	}
	if size > 0 {
		if _, err := f.mgr.ReadFrom(data.mgr.Reader(0)); err != nil {
			return err
		}
	}
	if size%2 != 0 {
		if _, err := f.mgr.Append([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}
