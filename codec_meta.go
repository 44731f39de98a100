package wpkgar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/unigw/wpkgar/fileinfo"
)

// metaCodec reads and writes the human-readable manifest format: one entry
// per line, six whitespace-separated columns
//
//	<mode> <uid/user> <gid/group> <date> <major,minor> <filename>
//
// where any column (or column half) may be "-" for unknown. The mode is the
// 10-character ls notation, dates are YYYYMMDD or YYYYMMDDTHHMMSS (UTC), and
// symlinks carry an " -> target" suffix. Blank lines and lines starting with
// "#" are skipped. A filename starting with "+" is a pattern-root marker: the
// "+" is kept and the slash that follows it is stripped.
type metaCodec struct{}

type metaIterator struct {
	f    *File
	sc   *bufio.Scanner
	line int
}

func (metaCodec) newIterator(f *File, _ bool) (iterator, error) {
	return &metaIterator{f: f, sc: bufio.NewScanner(f.mgr.Reader(0))}, nil
}

func (m *metaIterator) next(info *fileinfo.Info) (*File, error) {
	for m.sc.Scan() {
		m.line++
		line := strings.TrimSpace(m.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := parseMetaLine(line, info); err != nil {
			return nil, fmt.Errorf("meta: line %d: %w", m.line, err)
		}
		return m.loadData(info)
	}
	if err := m.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// loadData resolves a regular entry's bytes through the package path, the
// same way the wpkgar index does. Without a package path the entry is
// metadata only.
func (m *metaIterator) loadData(info *fileinfo.Info) (*File, error) {
	if info.TypeOr(fileinfo.Regular) != fileinfo.Regular || m.f.pkgPath == "" {
		return nil, nil
	}
	name, _ := info.Filename()
	if strings.HasPrefix(name, "+") {
		return nil, nil // pattern roots name no on-disk file
	}
	path := filepath.Join(m.f.pkgPath, filepath.FromSlash(name))
	data, err := m.f.newNested(func(nf *File) error {
		fh, err := os.Open(path)
		if err != nil {
			return err
		}
		defer fh.Close()
		_, err = nf.mgr.ReadFrom(fh)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("meta: entry data %s: %w", path, err)
	}
	info.SetSize(data.Size())
	return data, nil
}

// parseMetaLine fills info from one manifest line.
func parseMetaLine(line string, info *fileinfo.Info) error {
	cols := strings.Fields(line)
	if len(cols) < 6 {
		return fmt.Errorf("want 6 columns, got %d: %w", len(cols), ErrInvalidData)
	}

	if cols[0] != "-" {
		typ, mode, err := fileinfo.ParseModeString(cols[0])
		if err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidData)
		}
		info.SetType(typ)
		info.SetMode(mode)
	}

	if err := parseMetaOwner(cols[1], info.SetUID, info.SetUser); err != nil {
		return fmt.Errorf("uid/user %q: %w", cols[1], err)
	}
	if err := parseMetaOwner(cols[2], info.SetGID, info.SetGroup); err != nil {
		return fmt.Errorf("gid/group %q: %w", cols[2], err)
	}

	if cols[3] != "-" {
		mtime, err := parseMetaDate(cols[3])
		if err != nil {
			return fmt.Errorf("date %q: %w", cols[3], ErrInvalidData)
		}
		info.SetMTime(mtime)
	}

	if cols[4] != "-,-" {
		major, minor, ok := strings.Cut(cols[4], ",")
		if !ok {
			return fmt.Errorf("device %q: %w", cols[4], ErrInvalidData)
		}
		if major != "-" {
			n, err := strconv.Atoi(major)
			if err != nil {
				return fmt.Errorf("device major %q: %w", major, ErrInvalidData)
			}
			info.SetDevMajor(n)
		}
		if minor != "-" {
			n, err := strconv.Atoi(minor)
			if err != nil {
				return fmt.Errorf("device minor %q: %w", minor, ErrInvalidData)
			}
			info.SetDevMinor(n)
		}
	}

	name := strings.Join(cols[5:], " ")
	if target, ok := cutArrow(&name); ok {
		info.SetLinkTo(target)
		if cols[0] == "-" {
			info.SetType(fileinfo.Symlink)
		}
	}
	if name == "" {
		return fmt.Errorf("empty filename: %w", ErrInvalidData)
	}
	if strings.HasPrefix(name, "+/") {
		name = "+" + name[2:]
	}
	info.SetFilename(name)
	return nil
}

// cutArrow splits an " -> target" suffix off the filename column.
func cutArrow(name *string) (string, bool) {
	i := strings.Index(*name, " -> ")
	if i < 0 {
		return "", false
	}
	target := (*name)[i+len(" -> "):]
	*name = (*name)[:i]
	return target, true
}

// parseMetaOwner parses one "<id>/<name>" column where either half (or the
// whole column) may be "-".
func parseMetaOwner(col string, setID func(int), setName func(string)) error {
	if col == "-" || col == "-/-" {
		return nil
	}
	id, name, ok := strings.Cut(col, "/")
	if !ok {
		return fmt.Errorf("want id/name: %w", ErrInvalidData)
	}
	if id != "-" {
		n, err := strconv.Atoi(id)
		if err != nil {
			return fmt.Errorf("bad id: %w", ErrInvalidData)
		}
		setID(n)
	}
	if name != "-" {
		setName(name)
	}
	return nil
}

// parseMetaDate accepts YYYYMMDD or YYYYMMDDTHHMMSS, both UTC.
func parseMetaDate(s string) (time.Time, error) {
	switch len(s) {
	case 8:
		return time.ParseInLocation("20060102", s, time.UTC)
	case 15:
		return time.ParseInLocation("20060102T150405", s, time.UTC)
	}
	return time.Time{}, fmt.Errorf("bad date length %d", len(s))
}

// append encodes one manifest line. data is ignored: the manifest is an
// index; when a package path is set a regular entry's bytes are written out
// under it, matching the wpkgar behavior.
func (metaCodec) append(f *File, info *fileinfo.Info, data *File) error {
	name, ok := info.Filename()
	if !ok || name == "" {
		return fmt.Errorf("meta append: filename not set: %w", ErrParameter)
	}

	var b strings.Builder
	if _, ok := info.Mode(); ok {
		b.WriteString(info.ModeString())
	} else {
		b.WriteString("-")
	}
	b.WriteByte(' ')
	b.WriteString(formatMetaOwner(info.UID, info.User))
	b.WriteByte(' ')
	b.WriteString(formatMetaOwner(info.GID, info.Group))
	b.WriteByte(' ')
	if mtime, ok := info.MTime(); ok {
		b.WriteString(mtime.UTC().Format("20060102T150405"))
	} else {
		b.WriteString("-")
	}
	b.WriteByte(' ')
	major, okMajor := info.DevMajor()
	minor, okMinor := info.DevMinor()
	if okMajor || okMinor {
		b.WriteString(fmt.Sprintf("%d,%d", major, minor))
	} else {
		b.WriteString("-,-")
	}
	b.WriteByte(' ')
	b.WriteString(name)
	if target, ok := info.LinkTo(); ok && target != "" {
		b.WriteString(" -> ")
		b.WriteString(target)
	}
	b.WriteByte('\n')

	if _, err := f.mgr.Append([]byte(b.String())); err != nil {
		return err
	}

	if info.TypeOr(fileinfo.Regular) == fileinfo.Regular && data != nil && f.pkgPath != "" {
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

// formatMetaOwner renders an "<id>/<name>" column with "-" for unset halves.
func formatMetaOwner(id func() (int, bool), name func() (string, bool)) string {
	idCol, nameCol := "-", "-"
	if v, ok := id(); ok {
		idCol = strconv.Itoa(v)
	}
	if v, ok := name(); ok && v != "" {
		nameCol = v
	}
	return idCol + "/" + nameCol
}
