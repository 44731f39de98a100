package fileinfo

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	i := New()

	typ, ok := i.Type()
	require.True(t, ok)
	assert.Equal(t, Regular, typ)

	user, ok := i.User()
	require.True(t, ok)
	assert.Equal(t, "root", user)

	group, ok := i.Group()
	require.True(t, ok)
	assert.Equal(t, "root", group)

	mode, ok := i.Mode()
	require.True(t, ok)
	assert.Equal(t, fs.FileMode(0o400), mode)

	_, ok = i.MTime()
	assert.True(t, ok)

	// everything else starts unset
	_, ok = i.Filename()
	assert.False(t, ok)
	_, ok = i.Size()
	assert.False(t, ok)
	_, ok = i.UID()
	assert.False(t, ok)
	_, ok = i.LinkTo()
	assert.False(t, ok)
	_, ok = i.MD5()
	assert.False(t, ok)
}

func TestFieldPresence(t *testing.T) {
	var i Info

	_, ok := i.Size()
	assert.False(t, ok)
	assert.Equal(t, int64(42), i.SizeOr(42))

	// zero is a real value, distinct from unset
	i.SetSize(0)
	size, ok := i.Size()
	require.True(t, ok)
	assert.Equal(t, int64(0), size)
	assert.Equal(t, int64(0), i.SizeOr(42))

	i.SetUID(0)
	uid, ok := i.UID()
	require.True(t, ok)
	assert.Equal(t, 0, uid)
}

func TestResetClearsEverything(t *testing.T) {
	i := New()
	i.SetFilename("usr/bin/tool")
	i.SetSize(123)
	i.SetLinkTo("target")
	i.Reset()

	_, ok := i.Filename()
	assert.False(t, ok)
	_, ok = i.Size()
	assert.False(t, ok)
	_, ok = i.LinkTo()
	assert.False(t, ok)
	assert.Equal(t, Regular, i.TypeOr(Directory))
}

func TestFromFS(t *testing.T) {
	i := New()
	i.FromFS(fakeFileInfo{
		name: "tool",
		size: 512,
		mode: 0o755,
		mod:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, Regular, i.TypeOr(Directory))
	assert.Equal(t, int64(512), i.SizeOr(-1))
	assert.Equal(t, fs.FileMode(0o755), i.ModeOr(0))
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), i.MTimeOr(time.Time{}))
}

func TestFromFSDirectory(t *testing.T) {
	i := New()
	i.FromFS(fakeFileInfo{name: "lib", size: 4096, mode: fs.ModeDir | 0o755})

	assert.Equal(t, Directory, i.TypeOr(Regular))
	// directory sizes are filesystem noise, not content
	assert.Equal(t, int64(0), i.SizeOr(-1))
}

type fakeFileInfo struct {
	name string
	size int64
	mode fs.FileMode
	mod  time.Time
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return f.size }
func (f fakeFileInfo) Mode() fs.FileMode  { return f.mode }
func (f fakeFileInfo) ModTime() time.Time { return f.mod }
func (f fakeFileInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeFileInfo) Sys() any           { return nil }
