package wpkgar

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/unigw/wpkgar/fileinfo"
)

// wpkgar wire layout: a 1024-byte little-endian block per entry. The format
// is an index: regular entries carry a raw MD5 and a size, but their bytes
// live on disk under the engine's package path, not inline.
//
//	0    magic      uint32   "GKPW" on disk ('W'<<24|'P'<<16|'K'<<8|'G')
//	4    version    uint8[4] "1.0\0" or "1.1\0"
//	8    type       uint8
//	9    compression uint8
//	10   usage      uint8
//	11   status     uint8
//	12   uid        uint32
//	16   gid        uint32
//	20   mode       uint32
//	24   size       uint32
//	28   mtime      uint32
//	32   dev_major  uint32
//	36   dev_minor  uint32
//	40   name       uint8[300]
//	340  link       uint8[300]
//	640  user       uint8[32]
//	672  group      uint8[32]
//	704  md5sum     uint8[16]
//	720  name_size  uint16   (v1.1; nonzero = out-of-band name block follows)
//	722  link_size  uint16   (v1.1; ditto for the link target)
//	724  reserved   uint8[296]
//	1020 checksum   uint32   additive sum of bytes 0..1019
const (
	wpkgBlockSize = 1024
	wpkgMagic     = 'W'<<24 | 'P'<<16 | 'K'<<8 | 'G'

	wpkgOffVersion  = 4
	wpkgOffType     = 8
	wpkgOffComp     = 9
	wpkgOffUID      = 12
	wpkgOffGID      = 16
	wpkgOffMode     = 20
	wpkgOffSize     = 24
	wpkgOffMTime    = 28
	wpkgOffDevMajor = 32
	wpkgOffDevMinor = 36
	wpkgOffName     = 40
	wpkgOffLink     = 340
	wpkgOffUser     = 640
	wpkgOffGroup    = 672
	wpkgOffMD5      = 704
	wpkgOffNameSize = 720
	wpkgOffLinkSize = 722
	wpkgOffChecksum = 1020

	wpkgNameLen  = 300
	wpkgLinkLen  = 300
	wpkgOwnerLen = 32
)

// compression byte values stored in the block.
const (
	wpkgCompNone  = 0
	wpkgCompGzip  = 1
	wpkgCompBzip2 = 2
	wpkgCompZstd  = 3
)

// wpkgCodec reads and writes the wpkgar installed-package index format.
type wpkgCodec struct{}

type wpkgIterator struct {
	f   *File
	off int64
}

func (wpkgCodec) newIterator(f *File, _ bool) (iterator, error) {
	return &wpkgIterator{f: f}, nil
}

func (w *wpkgIterator) next(info *fileinfo.Info) (*File, error) {
	hdr := make([]byte, wpkgBlockSize)
	n, err := w.f.mgr.ReadAt(hdr, w.off)
	if err == io.EOF && n == 0 {
		return nil, io.EOF
	}
	if n < wpkgBlockSize {
		return nil, fmt.Errorf("wpkg: truncated block at offset %d", w.off)
	}

	// the original dumped the header struct on x86, so all integers,
	// the magic included, are little-endian: "GKPW" on disk
	if binary.LittleEndian.Uint32(hdr[0:4]) != wpkgMagic {
		return nil, fmt.Errorf("wpkg: bad magic at offset %d", w.off)
	}
	version := string(hdr[wpkgOffVersion : wpkgOffVersion+4])
	if version != "1.0\x00" && version != "1.1\x00" {
		return nil, fmt.Errorf("wpkg: unsupported version %q at offset %d", version[:3], w.off)
	}
	if stored := binary.LittleEndian.Uint32(hdr[wpkgOffChecksum:]); stored != wpkgChecksum(hdr) {
		return nil, fmt.Errorf("wpkg: checksum mismatch at offset %d", w.off)
	}

	w.off += wpkgBlockSize

	name := cString(hdr[wpkgOffName : wpkgOffName+wpkgNameLen])
	link := cString(hdr[wpkgOffLink : wpkgOffLink+wpkgLinkLen])
	if version == "1.1\x00" {
		nameSize := binary.LittleEndian.Uint16(hdr[wpkgOffNameSize:])
		linkSize := binary.LittleEndian.Uint16(hdr[wpkgOffLinkSize:])
		if nameSize > 0 {
			name, err = w.readExtended(int64(nameSize))
			if err != nil {
				return nil, fmt.Errorf("wpkg: extended name: %w", err)
			}
		}
		if linkSize > 0 {
			// padded from the link size; early writers used the name
			// size here and produced unreadable blocks
			link, err = w.readExtended(int64(linkSize))
			if err != nil {
				return nil, fmt.Errorf("wpkg: extended link: %w", err)
			}
		}
	}
	if name == "" {
		return nil, fmt.Errorf("wpkg: empty entry name at offset %d", w.off-wpkgBlockSize)
	}

	typ := fileinfo.Type(hdr[wpkgOffType])
	if typ < fileinfo.Regular || typ > fileinfo.Continuous {
		return nil, fmt.Errorf("wpkg: unknown entry type %d", hdr[wpkgOffType])
	}
	info.SetType(typ)
	info.SetFilename(name)
	if link != "" {
		info.SetLinkTo(link)
	}
	info.SetUID(int(binary.LittleEndian.Uint32(hdr[wpkgOffUID:])))
	info.SetGID(int(binary.LittleEndian.Uint32(hdr[wpkgOffGID:])))
	info.SetMode(fs.FileMode(binary.LittleEndian.Uint32(hdr[wpkgOffMode:])))
	info.SetSize(int64(binary.LittleEndian.Uint32(hdr[wpkgOffSize:])))
	info.SetMTime(time.Unix(int64(binary.LittleEndian.Uint32(hdr[wpkgOffMTime:])), 0).UTC())
	info.SetDevMajor(int(binary.LittleEndian.Uint32(hdr[wpkgOffDevMajor:])))
	info.SetDevMinor(int(binary.LittleEndian.Uint32(hdr[wpkgOffDevMinor:])))
	info.SetUser(cString(hdr[wpkgOffUser : wpkgOffUser+wpkgOwnerLen]))
	info.SetGroup(cString(hdr[wpkgOffGroup : wpkgOffGroup+wpkgOwnerLen]))

	if typ == fileinfo.Regular {
		var md5sum [16]byte
		copy(md5sum[:], hdr[wpkgOffMD5:wpkgOffMD5+16])
		info.SetMD5(md5sum)
	}
	if comp := wpkgCompToTag(hdr[wpkgOffComp]); comp != "" {
		info.SetOriginalCompression(comp)
	}

	// the index stores no inline bytes; regular entry data is resolved
	// through the package path when one is set
	if typ != fileinfo.Regular || w.f.pkgPath == "" {
		return nil, nil
	}
	path := filepath.Join(w.f.pkgPath, filepath.FromSlash(name))
	data, err := w.f.newNested(func(nf *File) error {
		fh, err := os.Open(path)
		if err != nil {
			return err
		}
		defer fh.Close()
		_, err = nf.mgr.ReadFrom(fh)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("wpkg: entry data %s: %w", path, err)
	}
	return data, nil
}

// readExtended consumes an out-of-band string block padded to the 1024-byte
// block size.
func (w *wpkgIterator) readExtended(size int64) (string, error) {
	padded := (size + wpkgBlockSize - 1) / wpkgBlockSize * wpkgBlockSize
	buf := make([]byte, size)
	n, err := w.f.mgr.ReadAt(buf, w.off)
	if err != nil && err != io.EOF {
		return "", err
	}
	if int64(n) < size {
		return "", fmt.Errorf("truncated at offset %d", w.off)
	}
	w.off += padded
	return string(buf), nil
}

// append encodes one index block, plus v1.1 extension blocks for oversized
// names and link targets. When a package path is set, a regular entry's
// bytes are written to disk under it rather than inline.
func (wpkgCodec) append(f *File, info *fileinfo.Info, data *File) error {
	name, ok := info.Filename()
	if !ok || name == "" {
		return fmt.Errorf("wpkg append: filename not set: %w", ErrParameter)
	}
	typ := info.TypeOr(fileinfo.Regular)
	if typ < fileinfo.Regular || typ > fileinfo.Continuous {
		return fmt.Errorf("wpkg append: type %s: %w", typ, ErrParameter)
	}
	link, _ := info.LinkTo()

	if len(name) > 0xFFFF || len(link) > 0xFFFF {
		return fmt.Errorf("wpkg append: name or link too long: %w", ErrParameter)
	}

	hdr := make([]byte, wpkgBlockSize)
	binary.LittleEndian.PutUint32(hdr[0:4], wpkgMagic)

	version := "1.0\x00"
	if len(name) > wpkgNameLen || len(link) > wpkgLinkLen {
		version = "1.1\x00"
	}
	copy(hdr[wpkgOffVersion:], version)

	hdr[wpkgOffType] = byte(typ)
	if comp, ok := info.OriginalCompression(); ok {
		hdr[wpkgOffComp] = wpkgTagToComp(comp)
	}

	size := info.SizeOr(0)
	if data != nil {
		size = data.Size()
	}

	binary.LittleEndian.PutUint32(hdr[wpkgOffUID:], uint32(info.UIDOr(0)))
	binary.LittleEndian.PutUint32(hdr[wpkgOffGID:], uint32(info.GIDOr(0)))
	binary.LittleEndian.PutUint32(hdr[wpkgOffMode:], uint32(info.ModeOr(0o400)))
	binary.LittleEndian.PutUint32(hdr[wpkgOffSize:], uint32(size))
	binary.LittleEndian.PutUint32(hdr[wpkgOffMTime:], uint32(info.MTimeOr(time.Unix(0, 0)).Unix()))
	major, _ := info.DevMajor()
	minor, _ := info.DevMinor()
	binary.LittleEndian.PutUint32(hdr[wpkgOffDevMajor:], uint32(major))
	binary.LittleEndian.PutUint32(hdr[wpkgOffDevMinor:], uint32(minor))

	copy(hdr[wpkgOffName:wpkgOffName+wpkgNameLen], name)
	copy(hdr[wpkgOffLink:wpkgOffLink+wpkgLinkLen], link)
	copy(hdr[wpkgOffUser:wpkgOffUser+wpkgOwnerLen], info.UserOr("root"))
	copy(hdr[wpkgOffGroup:wpkgOffGroup+wpkgOwnerLen], info.GroupOr("root"))

	if typ == fileinfo.Regular {
		md5sum, ok := info.MD5()
		if !ok && data != nil {
			var err error
			md5sum, err = data.RawMD5Sum()
			if err != nil {
				return err
			}
		}
		copy(hdr[wpkgOffMD5:], md5sum[:])
	}

	if version == "1.1\x00" {
		if len(name) > wpkgNameLen {
			binary.LittleEndian.PutUint16(hdr[wpkgOffNameSize:], uint16(len(name)))
		}
		if len(link) > wpkgLinkLen {
			binary.LittleEndian.PutUint16(hdr[wpkgOffLinkSize:], uint16(len(link)))
		}
	}

	binary.LittleEndian.PutUint32(hdr[wpkgOffChecksum:], wpkgChecksum(hdr))
	if _, err := f.mgr.Append(hdr); err != nil {
		return err
	}

	if version == "1.1\x00" {
		if len(name) > wpkgNameLen {
			if err := appendWpkgExtended(f, name); err != nil {
				return err
			}
		}
		if len(link) > wpkgLinkLen {
			if err := appendWpkgExtended(f, link); err != nil {
				return err
			}
		}
	}

	if typ == fileinfo.Regular && data != nil && f.pkgPath != "" {
		path := filepath.Join(f.pkgPath, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := data.WriteFile(path); err != nil {
			return err
		}
	}
	return nil
}

// appendWpkgExtended writes an out-of-band string block padded to the
// 1024-byte block size.
func appendWpkgExtended(f *File, s string) error {
	padded := (int64(len(s)) + wpkgBlockSize - 1) / wpkgBlockSize * wpkgBlockSize
	buf := make([]byte, padded)
	copy(buf, s)
	_, err := f.mgr.Append(buf)
	return err
}

// wpkgChecksum sums every byte of the block except the checksum field.
func wpkgChecksum(hdr []byte) uint32 {
	var sum uint32
	for _, b := range hdr[:wpkgOffChecksum] {
		sum += uint32(b)
	}
	return sum
}

func wpkgCompToTag(c byte) string {
	switch c {
	case wpkgCompGzip:
		return ".gz"
	case wpkgCompBzip2:
		return ".bz2"
	case wpkgCompZstd:
		return ".zst"
	}
	return ""
}

func wpkgTagToComp(tag string) byte {
	switch tag {
	case ".gz":
		return wpkgCompGzip
	case ".bz2":
		return wpkgCompBzip2
	case ".zst":
		return wpkgCompZstd
	}
	return wpkgCompNone
}
