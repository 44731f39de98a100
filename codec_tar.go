package wpkgar

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/unigw/wpkgar/fileinfo"
)

// tar wire constants. Field offsets are the ustar layout; see the POSIX
// header: name[100] mode[8] uid[8] gid[8] size[12] mtime[12] chksum[8]
// typeflag[1] linkname[100] magic[6] version[2] uname[32] gname[32]
// devmajor[8] devminor[8] prefix[155].
const (
	tarBlockSize = 512

	tarName     = 0
	tarMode     = 100
	tarUID      = 108
	tarGID      = 116
	tarSize     = 124
	tarMTime    = 136
	tarChksum   = 148
	tarTypeflag = 156
	tarLinkname = 157
	tarMagic    = 257
	tarUname    = 265
	tarGname    = 297
	tarDevMajor = 329
	tarDevMinor = 337
	tarPrefix   = 345

	tarNameLen     = 100
	tarLinknameLen = 100
	tarPrefixLen   = 155
	tarOwnerLen    = 32

	// gnuLongNameHolder is the placeholder name GNU tar stores in the
	// pseudo-entry preceding a long-named entry.
	gnuLongNameHolder = "././@LongLink"
)

// tarCodec reads and writes ustar archives with GNU long-name/long-link
// pseudo-entries and PAX extended headers.
type tarCodec struct{}

type tarIterator struct {
	f   *File
	off int64
}

func (tarCodec) newIterator(f *File, _ bool) (iterator, error) {
	return &tarIterator{f: f}, nil
}

// next reads headers at the cursor, consuming GNU and PAX extension entries
// until a real entry (or end of archive) is reached.
func (t *tarIterator) next(info *fileinfo.Info) (*File, error) {
	var longName, longLink string
	pax := map[string]string{}

	for {
		hdr := make([]byte, tarBlockSize)
		n, err := t.f.mgr.ReadAt(hdr, t.off)
		if err == io.EOF && n == 0 {
			return nil, io.EOF
		}
		if n < tarBlockSize {
			return nil, fmt.Errorf("tar: truncated header at offset %d", t.off)
		}

		// end of archive: a run of all-zero blocks
		if isZeroBlock(hdr) {
			for {
				t.off += tarBlockSize
				n, err := t.f.mgr.ReadAt(hdr, t.off)
				if err == io.EOF && n == 0 {
					return nil, io.EOF
				}
				if n < tarBlockSize || !isZeroBlock(hdr[:n]) {
					return nil, fmt.Errorf("tar: garbage after zero blocks at offset %d", t.off)
				}
			}
		}

		if magic := hdr[tarMagic : tarMagic+6]; !bytes.Equal(magic, []byte("ustar\x00")) && !bytes.Equal(magic, []byte("ustar ")) {
			return nil, fmt.Errorf("tar: bad magic at offset %d", t.off)
		}
		if err := verifyTarChecksum(hdr); err != nil {
			return nil, fmt.Errorf("tar: offset %d: %w", t.off, err)
		}

		size, err := fileinfo.ParseField(hdr[tarSize:tarSize+12], 8)
		if err != nil {
			return nil, fmt.Errorf("tar: size field at offset %d: %w", t.off, err)
		}
		dataOff := t.off + tarBlockSize
		t.off = dataOff + (size+tarBlockSize-1)/tarBlockSize*tarBlockSize

		switch hdr[tarTypeflag] {
		case 'L': // GNU long filename: content is the real name
			longName, err = t.readString(dataOff, size)
			if err != nil {
				return nil, err
			}
			continue
		case 'K': // GNU long symlink target
			longLink, err = t.readString(dataOff, size)
			if err != nil {
				return nil, err
			}
			continue
		case 'x': // PAX extended header for the following entry
			raw, err := t.readString(dataOff, size)
			if err != nil {
				return nil, err
			}
			if err := parsePaxRecords(raw, pax); err != nil {
				return nil, err
			}
			continue
		}

		return t.decodeEntry(info, hdr, dataOff, size, longName, longLink, pax)
	}
}

// readString loads an extension entry's content.
func (t *tarIterator) readString(off, size int64) (string, error) {
	buf := make([]byte, size)
	if _, err := t.f.mgr.ReadAt(buf, off); err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

// decodeEntry turns a validated real header into an Info plus data File.
func (t *tarIterator) decodeEntry(info *fileinfo.Info, hdr []byte, dataOff, size int64, longName, longLink string, pax map[string]string) (*File, error) {
	name := cString(hdr[tarName : tarName+tarNameLen])
	if prefix := cString(hdr[tarPrefix : tarPrefix+tarPrefixLen]); prefix != "" {
		name = prefix + "/" + name
	}
	if longName != "" {
		name = longName
	}
	if p, ok := pax["path"]; ok {
		name = p
	}

	link := cString(hdr[tarLinkname : tarLinkname+tarLinknameLen])
	if longLink != "" {
		link = longLink
	}
	if p, ok := pax["linkpath"]; ok {
		link = p
	}

	typ, isDir := tarTypeToInfo(hdr[tarTypeflag])
	// pre-ustar archives mark directories with a trailing slash
	if strings.HasSuffix(name, "/") {
		name = strings.TrimRight(name, "/")
		isDir = true
	}
	if isDir {
		typ = fileinfo.Directory
	}
	info.SetType(typ)
	info.SetFilename(name)
	if link != "" {
		info.SetLinkTo(link)
	}

	mode, err := fileinfo.ParseField(hdr[tarMode:tarMode+8], 8)
	if err != nil {
		return nil, fmt.Errorf("tar: mode field: %w", err)
	}
	info.SetMode(tarModeToFS(mode))

	for _, f := range []struct {
		off int
		set func(int)
	}{
		{tarUID, info.SetUID},
		{tarGID, info.SetGID},
	} {
		v, err := fileinfo.ParseField(hdr[f.off:f.off+8], 8)
		if err != nil {
			return nil, fmt.Errorf("tar: numeric field: %w", err)
		}
		f.set(int(v))
	}

	mtime, err := fileinfo.ParseField(hdr[tarMTime:tarMTime+12], 8)
	if err != nil {
		return nil, fmt.Errorf("tar: mtime field: %w", err)
	}
	info.SetMTime(time.Unix(mtime, 0).UTC())

	info.SetUser(cString(hdr[tarUname : tarUname+tarOwnerLen]))
	info.SetGroup(cString(hdr[tarGname : tarGname+tarOwnerLen]))

	if typ == fileinfo.CharSpecial || typ == fileinfo.BlockSpecial {
		major, err := fileinfo.ParseField(hdr[tarDevMajor:tarDevMajor+8], 8)
		if err != nil {
			return nil, fmt.Errorf("tar: devmajor field: %w", err)
		}
		minor, err := fileinfo.ParseField(hdr[tarDevMinor:tarDevMinor+8], 8)
		if err != nil {
			return nil, fmt.Errorf("tar: devminor field: %w", err)
		}
		info.SetDevMajor(int(major))
		info.SetDevMinor(int(minor))
	}

	applyPaxOverrides(info, pax)
	info.SetSize(size)

	if typ != fileinfo.Regular && typ != fileinfo.Continuous {
		return nil, nil
	}
	data, err := t.f.newNested(func(n *File) error {
		_, err := n.mgr.ReadFrom(io.NewSectionReader(t.f.mgr, dataOff, size))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("tar: entry data: %w", err)
	}
	return data, nil
}

// applyPaxOverrides applies the recognized PAX keys to info.
func applyPaxOverrides(info *fileinfo.Info, pax map[string]string) {
	if v, ok := pax["uid"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			info.SetUID(n)
		}
	}
	if v, ok := pax["gid"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			info.SetGID(n)
		}
	}
	for key, set := range map[string]func(time.Time){
		"mtime": info.SetMTime,
		"ctime": info.SetCTime,
		"atime": info.SetATime,
	} {
		if v, ok := pax[key]; ok {
			if t, err := parsePaxTime(v); err == nil {
				set(t)
			}
		}
	}
}

// parsePaxRecords parses "<len> <key>=<value>\n" records into dst.
func parsePaxRecords(raw string, dst map[string]string) error {
	for len(raw) > 0 {
		sp := strings.IndexByte(raw, ' ')
		if sp <= 0 {
			return fmt.Errorf("tar: malformed pax record")
		}
		recLen, err := strconv.Atoi(raw[:sp])
		if err != nil || recLen <= sp || recLen > len(raw) {
			return fmt.Errorf("tar: malformed pax record length")
		}
		rec := raw[sp+1 : recLen]
		raw = raw[recLen:]
		rec = strings.TrimSuffix(rec, "\n")
		eq := strings.IndexByte(rec, '=')
		if eq < 0 {
			return fmt.Errorf("tar: pax record missing '='")
		}
		dst[rec[:eq]] = rec[eq+1:]
	}
	return nil
}

// parsePaxTime parses a PAX decimal timestamp with optional fraction.
func parsePaxTime(s string) (time.Time, error) {
	sec := s
	var nsec int64
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		sec = s[:dot]
		frac := s[dot+1:]
		if len(frac) > 9 {
			frac = frac[:9]
		}
		for len(frac) < 9 {
			frac += "0"
		}
		var err error
		nsec, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
	}
	n, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(n, nsec).UTC(), nil
}

// append encodes one entry: extension entries as needed, then the real
// header and the 512-padded data.
func (tarCodec) append(f *File, info *fileinfo.Info, data *File) error {
	name, ok := info.Filename()
	if !ok || name == "" {
		return fmt.Errorf("tar append: filename not set: %w", ErrParameter)
	}
	typ := info.TypeOr(fileinfo.Regular)
	if typ == fileinfo.Directory && !strings.HasSuffix(name, "/") {
		name += "/"
	}

	var size int64
	if typ == fileinfo.Regular || typ == fileinfo.Continuous {
		if data != nil {
			size = data.Size()
		} else if n := info.SizeOr(0); n > 0 {
			// index-format records declare a size without carrying bytes;
			// tar stores the data inline, so there is nothing to write
			return fmt.Errorf("tar append %s: %d bytes declared but no data supplied: %w", name, n, ErrParameter)
		}
	}

	// oversized name: try the ustar prefix split, else a GNU 'L' entry
	headerName := name
	prefix := ""
	if len(name) > tarNameLen {
		var ok bool
		prefix, headerName, ok = splitUstarName(name)
		if !ok {
			if err := appendGNUExtension(f, info, 'L', name); err != nil {
				return err
			}
			headerName = name[:tarNameLen]
			prefix = ""
		}
	}

	link, _ := info.LinkTo()
	headerLink := link
	if len(link) > tarLinknameLen {
		if err := appendGNUExtension(f, info, 'K', link); err != nil {
			return err
		}
		headerLink = link[:tarLinknameLen]
	}

	hdr, err := encodeTarHeader(info, headerName, prefix, headerLink, typ, size)
	if err != nil {
		return err
	}
	if _, err := f.mgr.Append(hdr); err != nil {
		return err
	}
	if size > 0 {
		if _, err := f.mgr.ReadFrom(data.mgr.Reader(0)); err != nil {
			return err
		}
		if rem := size % tarBlockSize; rem != 0 {
			if _, err := f.mgr.Append(make([]byte, tarBlockSize-rem)); err != nil {
				return err
			}
		}
	}
	return nil
}

// CloseArchive appends the tar end-of-archive marker: at least two zero
// blocks, with the archive padded out to a 10KiB (20-block) multiple. It is
// a no-op for the other container formats, which carry no trailer, and
// fails with ErrCompatibility on non-containers.
func (f *File) CloseArchive() error {
	if !f.defined {
		return fmt.Errorf("close archive: %w", ErrUndefined)
	}
	if codecFor(f.format) == nil {
		return fmt.Errorf("close archive on %s data: %w", f.format, ErrCompatibility)
	}
	if f.format != Tar {
		return nil
	}
	const recordSize = 20 * tarBlockSize
	pad := recordSize - f.mgr.Size()%recordSize
	if pad < 2*tarBlockSize {
		pad += recordSize
	}
	_, err := f.mgr.Append(make([]byte, pad))
	return err
}

// appendGNUExtension writes a GNU 'L' or 'K' pseudo-entry carrying value.
func appendGNUExtension(f *File, info *fileinfo.Info, typeflag byte, value string) error {
	f.log().Debug("tar long-name extension", "typeflag", string(typeflag), "len", len(value))
	ext := fileinfo.New()
	ext.SetUID(info.UIDOr(0))
	ext.SetGID(info.GIDOr(0))
	ext.SetMTime(info.MTimeOr(time.Unix(0, 0)))
	payload := []byte(value + "\x00")
	hdr, err := encodeTarHeader(ext, gnuLongNameHolder, "", "", fileinfo.Regular, int64(len(payload)))
	if err != nil {
		return err
	}
	hdr[tarTypeflag] = typeflag
	setTarChecksum(hdr)
	if _, err := f.mgr.Append(hdr); err != nil {
		return err
	}
	if _, err := f.mgr.Append(payload); err != nil {
		return err
	}
	if rem := int64(len(payload)) % tarBlockSize; rem != 0 {
		if _, err := f.mgr.Append(make([]byte, tarBlockSize-rem)); err != nil {
			return err
		}
	}
	return nil
}

// encodeTarHeader builds a checksummed 512-byte ustar header.
func encodeTarHeader(info *fileinfo.Info, name, prefix, link string, typ fileinfo.Type, size int64) ([]byte, error) {
	hdr := make([]byte, tarBlockSize)
	copy(hdr[tarName:], name)
	copy(hdr[tarPrefix:], prefix)
	copy(hdr[tarLinkname:], link)
	copy(hdr[tarMagic:], "ustar\x00")
	copy(hdr[tarMagic+6:], "00") // version
	copy(hdr[tarUname:tarUname+tarOwnerLen], info.UserOr("root"))
	copy(hdr[tarGname:tarGname+tarOwnerLen], info.GroupOr("root"))

	mode := info.ModeOr(0o400)
	type octalField struct {
		off, n int
		v      int64
	}
	fields := []octalField{
		{tarMode, 7, fsModeToTar(mode)},
		{tarUID, 7, int64(info.UIDOr(0))},
		{tarGID, 7, int64(info.GIDOr(0))},
		{tarSize, 11, size},
		{tarMTime, 11, info.MTimeOr(time.Unix(0, 0)).Unix()},
	}
	if typ == fileinfo.CharSpecial || typ == fileinfo.BlockSpecial {
		major, _ := info.DevMajor()
		minor, _ := info.DevMinor()
		fields = append(fields,
			octalField{tarDevMajor, 7, int64(major)},
			octalField{tarDevMinor, 7, int64(minor)},
		)
	}
	for _, fld := range fields {
		if err := fileinfo.FormatField(hdr[fld.off:fld.off+fld.n], fld.v, 8, '0'); err != nil {
			return nil, fmt.Errorf("tar append: %w", err)
		}
	}

	hdr[tarTypeflag] = infoTypeToTar(typ)
	setTarChecksum(hdr)
	return hdr, nil
}

// splitUstarName splits an overlong path into prefix[155] + name[100] at a
// slash boundary. ok is false when no boundary fits.
func splitUstarName(name string) (prefix, base string, ok bool) {
	i := len(name)
	if i > tarPrefixLen+1+tarNameLen {
		i = tarPrefixLen + 1 + tarNameLen
	}
	cut := strings.LastIndexByte(name[:i], '/')
	if cut <= 0 || cut > tarPrefixLen || len(name)-cut-1 > tarNameLen {
		return "", "", false
	}
	return name[:cut], name[cut+1:], true
}

// verifyTarChecksum recomputes the header checksum with the checksum field
// blanked as spaces and compares against the stored octal value.
func verifyTarChecksum(hdr []byte) error {
	stored, err := fileinfo.ParseField(hdr[tarChksum:tarChksum+8], 8)
	if err != nil {
		return fmt.Errorf("checksum field: %w", err)
	}
	if computeTarChecksum(hdr) != stored {
		return fmt.Errorf("checksum mismatch (stored %#o, computed %#o)", stored, computeTarChecksum(hdr))
	}
	return nil
}

func computeTarChecksum(hdr []byte) int64 {
	var sum int64
	for i, b := range hdr {
		if i >= tarChksum && i < tarChksum+8 {
			sum += ' '
		} else {
			sum += int64(b)
		}
	}
	return sum
}

// setTarChecksum writes the checksum field in its conventional
// "6 octal digits, NUL, space" form.
func setTarChecksum(hdr []byte) {
	sum := computeTarChecksum(hdr)
	_ = fileinfo.FormatField(hdr[tarChksum:tarChksum+6], sum, 8, '0')
	hdr[tarChksum+6] = 0
	hdr[tarChksum+7] = ' '
}

// tarTypeToInfo maps a typeflag to an entry type.
func tarTypeToInfo(flag byte) (typ fileinfo.Type, isDir bool) {
	switch flag {
	case '0', 0:
		return fileinfo.Regular, false
	case '1':
		return fileinfo.HardLink, false
	case '2':
		return fileinfo.Symlink, false
	case '3':
		return fileinfo.CharSpecial, false
	case '4':
		return fileinfo.BlockSpecial, false
	case '5':
		return fileinfo.Directory, true
	case '6':
		return fileinfo.FIFO, false
	case '7':
		return fileinfo.Continuous, false
	}
	return fileinfo.Regular, false
}

func infoTypeToTar(typ fileinfo.Type) byte {
	switch typ {
	case fileinfo.HardLink:
		return '1'
	case fileinfo.Symlink:
		return '2'
	case fileinfo.CharSpecial:
		return '3'
	case fileinfo.BlockSpecial:
		return '4'
	case fileinfo.Directory:
		return '5'
	case fileinfo.FIFO:
		return '6'
	case fileinfo.Continuous:
		return '7'
	}
	return '0'
}

// tarModeToFS expands the octal mode bits, including setuid/setgid/sticky,
// into an fs.FileMode.
func tarModeToFS(mode int64) fs.FileMode {
	m := fs.FileMode(mode & 0o777)
	if mode&0o4000 != 0 {
		m |= fs.ModeSetuid
	}
	if mode&0o2000 != 0 {
		m |= fs.ModeSetgid
	}
	if mode&0o1000 != 0 {
		m |= fs.ModeSticky
	}
	return m
}

func fsModeToTar(m fs.FileMode) int64 {
	mode := int64(m & 0o777)
	if m&fs.ModeSetuid != 0 {
		mode |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		mode |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		mode |= 0o1000
	}
	return mode
}

// cString returns the bytes before the first NUL, trimmed of the padding
// some tar writers use.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// isZeroBlock reports whether every byte of b is zero, checked byte by byte.
func isZeroBlock(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
