package fileinfo

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeString(t *testing.T) {
	cases := []struct {
		typ  Type
		mode fs.FileMode
		want string
	}{
		{Regular, 0o644, "-rw-r--r--"},
		{Regular, 0o755, "-rwxr-xr-x"},
		{Directory, 0o755, "drwxr-xr-x"},
		{Symlink, 0o777, "lrwxrwxrwx"},
		{FIFO, 0o600, "prw-------"},
		{CharSpecial, 0o620, "crw--w----"},
		{BlockSpecial, 0o660, "brw-rw----"},
		{HardLink, 0o644, "hrw-r--r--"},
		{Regular, fs.ModeSetuid | 0o755, "-rwsr-xr-x"},
		{Regular, fs.ModeSetuid | 0o655, "-rwSr-xr-x"},
		{Regular, fs.ModeSetgid | 0o755, "-rwxr-sr-x"},
		{Regular, fs.ModeSetgid | 0o745, "-rwxr-Sr-x"},
		{Directory, fs.ModeSticky | 0o777, "drwxrwxrwt"},
		{Directory, fs.ModeSticky | 0o776, "drwxrwxrwT"},
	}
	for _, tc := range cases {
		i := New()
		i.SetType(tc.typ)
		i.SetMode(tc.mode)
		assert.Equal(t, tc.want, i.ModeString(), "type %s mode %o", tc.typ, tc.mode)
	}
}

func TestParseModeString(t *testing.T) {
	cases := []struct {
		in       string
		wantType Type
		wantMode fs.FileMode
	}{
		{"-rw-r--r--", Regular, 0o644},
		{"drwxr-xr-x", Directory, 0o755},
		{"lrwxrwxrwx", Symlink, 0o777},
		{"prw-------", FIFO, 0o600},
		{"-rwsr-xr-x", Regular, fs.ModeSetuid | 0o755},
		{"-rwSr-xr-x", Regular, fs.ModeSetuid | 0o655},
		{"-rwxr-sr-x", Regular, fs.ModeSetgid | 0o755},
		{"drwxrwxrwt", Directory, fs.ModeSticky | 0o777},
		{"drwxrwxrwT", Directory, fs.ModeSticky | 0o776},
	}
	for _, tc := range cases {
		typ, mode, err := ParseModeString(tc.in)
		require.NoError(t, err, "ParseModeString(%q)", tc.in)
		assert.Equal(t, tc.wantType, typ, "type of %q", tc.in)
		assert.Equal(t, tc.wantMode, mode, "mode of %q", tc.in)
	}
}

func TestParseModeStringErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"-rw-r--r-",   // too short
		"-rw-r--r---", // too long
		"?rw-r--r--",  // unknown type
		"-rq-r--r--",  // bad permission char
		"-rw-r--r-s",  // setuid notation in the sticky slot
		"-rwtr--r--",  // sticky notation in the setuid slot
	} {
		_, _, err := ParseModeString(in)
		assert.Error(t, err, "ParseModeString(%q)", in)
	}
}

func TestModeStringRoundTrip(t *testing.T) {
	inputs := []string{
		"-rw-r--r--",
		"drwxr-xr-x",
		"lrwxrwxrwx",
		"-rwsr-sr-x",
		"drwxrwxrwt",
		"-rwSr-Sr-T",
	}
	for _, in := range inputs {
		typ, mode, err := ParseModeString(in)
		require.NoError(t, err)
		i := New()
		i.SetType(typ)
		i.SetMode(mode)
		assert.Equal(t, in, i.ModeString())
	}
}
