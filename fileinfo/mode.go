package fileinfo

import (
	"fmt"
	"io/fs"
)

// ModeString renders the record's type and mode as the 10-character string
// ls prints, including setuid/setgid/sticky notation.
func (i *Info) ModeString() string {
	mode, _ := i.Mode()
	out := make([]byte, 10)

	switch i.TypeOr(Regular) {
	case Regular, Continuous:
		out[0] = '-'
	case HardLink:
		out[0] = 'h'
	case Symlink:
		out[0] = 'l'
	case CharSpecial:
		out[0] = 'c'
	case BlockSpecial:
		out[0] = 'b'
	case Directory:
		out[0] = 'd'
	case FIFO:
		out[0] = 'p'
	default:
		out[0] = '?'
	}

	rwx := func(shift uint, r, w, x byte) (byte, byte, byte) {
		bits := mode >> shift
		rr, ww, xx := byte('-'), byte('-'), byte('-')
		if bits&4 != 0 {
			rr = r
		}
		if bits&2 != 0 {
			ww = w
		}
		if bits&1 != 0 {
			xx = x
		}
		return rr, ww, xx
	}

	out[1], out[2], out[3] = rwx(6, 'r', 'w', 'x')
	out[4], out[5], out[6] = rwx(3, 'r', 'w', 'x')
	out[7], out[8], out[9] = rwx(0, 'r', 'w', 'x')

	if mode&fs.ModeSetuid != 0 {
		if out[3] == 'x' {
			out[3] = 's'
		} else {
			out[3] = 'S'
		}
	}
	if mode&fs.ModeSetgid != 0 {
		if out[6] == 'x' {
			out[6] = 's'
		} else {
			out[6] = 'S'
		}
	}
	if mode&fs.ModeSticky != 0 {
		if out[9] == 'x' {
			out[9] = 't'
		} else {
			out[9] = 'T'
		}
	}

	return string(out)
}

// ParseModeString parses a 10-character ls-style mode string into an entry
// type and a mode. It is the inverse of ModeString.
func ParseModeString(s string) (Type, fs.FileMode, error) {
	if len(s) != 10 {
		return Regular, 0, fmt.Errorf("mode %q: want 10 characters", s)
	}

	var typ Type
	switch s[0] {
	case '-':
		typ = Regular
	case 'h':
		typ = HardLink
	case 'l':
		typ = Symlink
	case 'c':
		typ = CharSpecial
	case 'b':
		typ = BlockSpecial
	case 'd':
		typ = Directory
	case 'p':
		typ = FIFO
	default:
		return Regular, 0, fmt.Errorf("mode %q: unknown type %q", s, s[0])
	}

	var mode fs.FileMode
	for pos, c := range []byte(s[1:]) {
		bit := fs.FileMode(1) << uint(8-pos)
		exec := pos%3 == 2
		switch {
		case c == '-':
		case !exec && pos%3 == 0 && c == 'r':
			mode |= bit
		case !exec && pos%3 == 1 && c == 'w':
			mode |= bit
		case exec && c == 'x':
			mode |= bit
		case exec && (c == 's' || c == 'S' || c == 't' || c == 'T'):
			if c == 's' || c == 't' {
				mode |= bit
			}
			switch pos / 3 {
			case 0:
				if c != 's' && c != 'S' {
					return Regular, 0, fmt.Errorf("mode %q: bad character %q", s, c)
				}
				mode |= fs.ModeSetuid
			case 1:
				if c != 's' && c != 'S' {
					return Regular, 0, fmt.Errorf("mode %q: bad character %q", s, c)
				}
				mode |= fs.ModeSetgid
			case 2:
				if c != 't' && c != 'T' {
					return Regular, 0, fmt.Errorf("mode %q: bad character %q", s, c)
				}
				mode |= fs.ModeSticky
			}
		default:
			return Regular, 0, fmt.Errorf("mode %q: bad character %q", s, c)
		}
	}

	return typ, mode, nil
}
