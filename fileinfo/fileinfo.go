// Package fileinfo defines the per-entry metadata record shared by every
// container codec: type, ownership, permissions, timestamps, size, raw MD5,
// device numbers and link target, each tracked with independent presence so a
// record sourced from (say) an HTTP download can leave uid/gid unknown without
// conflating "unknown" with "zero".
package fileinfo

import (
	"io/fs"
	"time"
)

// Type identifies the kind of entry a record describes. The first eight
// values map one-to-one onto archive entry types; the last three are
// transient tar pseudo-entries consumed during decoding and never surfaced
// to callers.
type Type int

const (
	Regular Type = iota
	HardLink
	Symlink
	CharSpecial
	BlockSpecial
	Directory
	FIFO
	Continuous

	// Transient GNU-tar pseudo-types.
	LongName
	LongSymlink
	PaxHeader
)

// String returns a short lowercase name for the type.
func (t Type) String() string {
	switch t {
	case Regular:
		return "regular"
	case HardLink:
		return "hard-link"
	case Symlink:
		return "symlink"
	case CharSpecial:
		return "char-special"
	case BlockSpecial:
		return "block-special"
	case Directory:
		return "directory"
	case FIFO:
		return "fifo"
	case Continuous:
		return "continuous"
	case LongName:
		return "long-name"
	case LongSymlink:
		return "long-symlink"
	case PaxHeader:
		return "pax-header"
	}
	return "unknown"
}

// field holds a value together with its presence flag.
type field[T any] struct {
	val T
	set bool
}

func (f *field[T]) define(v T) {
	f.val = v
	f.set = true
}

func (f field[T]) get() (T, bool) {
	return f.val, f.set
}

func (f field[T]) or(def T) T {
	if f.set {
		return f.val
	}
	return def
}

// Info is one entry's metadata. Every field is optional; getters return the
// value and whether it was explicitly set. The zero value has nothing set —
// use New or Reset for the conventional defaults.
type Info struct {
	uri      field[string]
	filename field[string]
	typ      field[Type]
	linkTo   field[string]
	user     field[string]
	group    field[string]
	uid      field[int]
	gid      field[int]
	mode     field[fs.FileMode]
	size     field[int64]
	mtime    field[time.Time]
	ctime    field[time.Time]
	atime    field[time.Time]
	devMajor field[int]
	devMinor field[int]
	md5      field[[16]byte]
	origComp field[string]
}

// New returns a record initialized to the conventional defaults:
// regular file, root/root ownership, mode 0400, mtime now.
func New() *Info {
	i := &Info{}
	i.Reset()
	return i
}

// Reset clears every field, then re-applies the defaults: type regular,
// user and group "root", mode 0400, mtime now. All other fields are unset.
func (i *Info) Reset() {
	*i = Info{}
	i.typ.define(Regular)
	i.user.define("root")
	i.group.define("root")
	i.mode.define(0o400)
	i.mtime.define(time.Now())
}

func (i *Info) SetURI(v string)       { i.uri.define(v) }
func (i *Info) SetFilename(v string)  { i.filename.define(v) }
func (i *Info) SetType(v Type)        { i.typ.define(v) }
func (i *Info) SetLinkTo(v string)    { i.linkTo.define(v) }
func (i *Info) SetUser(v string)      { i.user.define(v) }
func (i *Info) SetGroup(v string)     { i.group.define(v) }
func (i *Info) SetUID(v int)          { i.uid.define(v) }
func (i *Info) SetGID(v int)          { i.gid.define(v) }
func (i *Info) SetMode(v fs.FileMode) { i.mode.define(v) }
func (i *Info) SetSize(v int64)       { i.size.define(v) }
func (i *Info) SetMTime(v time.Time) { i.mtime.define(v) }
func (i *Info) SetCTime(v time.Time) { i.ctime.define(v) }
func (i *Info) SetATime(v time.Time) { i.atime.define(v) }
func (i *Info) SetDevMajor(v int)    { i.devMajor.define(v) }
func (i *Info) SetDevMinor(v int)    { i.devMinor.define(v) }
func (i *Info) SetMD5(v [16]byte)    { i.md5.define(v) }

// SetOriginalCompression records the compression the entry's data carried
// before it was loaded (e.g. ".gz").
func (i *Info) SetOriginalCompression(v string) { i.origComp.define(v) }

func (i *Info) URI() (string, bool)        { return i.uri.get() }
func (i *Info) Filename() (string, bool)   { return i.filename.get() }
func (i *Info) Type() (Type, bool)         { return i.typ.get() }
func (i *Info) LinkTo() (string, bool)     { return i.linkTo.get() }
func (i *Info) User() (string, bool)       { return i.user.get() }
func (i *Info) Group() (string, bool)      { return i.group.get() }
func (i *Info) UID() (int, bool)           { return i.uid.get() }
func (i *Info) GID() (int, bool)           { return i.gid.get() }
func (i *Info) Mode() (fs.FileMode, bool)  { return i.mode.get() }
func (i *Info) Size() (int64, bool)        { return i.size.get() }
func (i *Info) MTime() (time.Time, bool)   { return i.mtime.get() }
func (i *Info) CTime() (time.Time, bool)   { return i.ctime.get() }
func (i *Info) ATime() (time.Time, bool)   { return i.atime.get() }
func (i *Info) DevMajor() (int, bool)      { return i.devMajor.get() }
func (i *Info) DevMinor() (int, bool)      { return i.devMinor.get() }
func (i *Info) MD5() ([16]byte, bool)      { return i.md5.get() }

// OriginalCompression returns the recorded pre-load compression tag.
func (i *Info) OriginalCompression() (string, bool) { return i.origComp.get() }

// TypeOr returns the entry type, defaulting to Regular when unset.
func (i *Info) TypeOr(def Type) Type { return i.typ.or(def) }

// SizeOr returns the size, defaulting to def when unset.
func (i *Info) SizeOr(def int64) int64 { return i.size.or(def) }

// ModeOr returns the mode, defaulting to def when unset.
func (i *Info) ModeOr(def fs.FileMode) fs.FileMode { return i.mode.or(def) }

// FilenameOr returns the filename, defaulting to def when unset.
func (i *Info) FilenameOr(def string) string { return i.filename.or(def) }

// UserOr returns the user name, defaulting to def when unset.
func (i *Info) UserOr(def string) string { return i.user.or(def) }

// GroupOr returns the group name, defaulting to def when unset.
func (i *Info) GroupOr(def string) string { return i.group.or(def) }

// UIDOr returns the uid, defaulting to def when unset.
func (i *Info) UIDOr(def int) int { return i.uid.or(def) }

// GIDOr returns the gid, defaulting to def when unset.
func (i *Info) GIDOr(def int) int { return i.gid.or(def) }

// MTimeOr returns the mtime, defaulting to def when unset.
func (i *Info) MTimeOr(def time.Time) time.Time { return i.mtime.or(def) }

// FromFS fills type, mode, size and mtime from a standard fs.FileInfo.
// Ownership is left to the caller; not every platform exposes it.
func (i *Info) FromFS(fi fs.FileInfo) {
	mode := fi.Mode()
	switch {
	case mode.IsDir():
		i.SetType(Directory)
	case mode&fs.ModeSymlink != 0:
		i.SetType(Symlink)
	case mode&fs.ModeNamedPipe != 0:
		i.SetType(FIFO)
	case mode&fs.ModeDevice != 0:
		if mode&fs.ModeCharDevice != 0 {
			i.SetType(CharSpecial)
		} else {
			i.SetType(BlockSpecial)
		}
	default:
		i.SetType(Regular)
	}
	i.SetMode(mode.Perm() | (mode & (fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)))
	if mode.IsRegular() {
		i.SetSize(fi.Size())
	} else {
		i.SetSize(0)
	}
	i.SetMTime(fi.ModTime())
}
