package wpkgar

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArRoundTrip(t *testing.T) {
	f := New()
	require.NoError(t, f.Create(Ar))

	require.NoError(t, f.AppendFile(newTestInfo("debian-binary"), newDataFile(t, "2.0\n")))
	require.NoError(t, f.AppendFile(newTestInfo("control.tar"), newDataFile(t, "odd")))
	require.NoError(t, f.AppendFile(newTestInfo("data.tar"), newDataFile(t, "even")))

	// global magic plus even-padded entries
	head := make([]byte, 8)
	_, err := f.ReadAt(head, 0)
	require.NoError(t, err)
	assert.Equal(t, "!<arch>\n", string(head))
	assert.Equal(t, int64(0), f.Size()%2, "archive length must stay even")

	entries := collectEntries(t, f)
	require.Len(t, entries, 3)

	assert.Equal(t, "debian-binary", entries[0].info.FilenameOr(""))
	assert.Equal(t, fs.FileMode(0o644), entries[0].info.ModeOr(0))
	assert.Equal(t, 1000, entries[0].info.UIDOr(-1))
	assert.Equal(t, time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC), entries[0].info.MTimeOr(time.Time{}))
	assert.Equal(t, "2.0\n", string(readAll(t, entries[0].data)))

	// the odd-sized entry must not bleed its padding into the next one
	assert.Equal(t, "odd", string(readAll(t, entries[1].data)))
	assert.Equal(t, "even", string(readAll(t, entries[2].data)))
}

func TestArLongNameRejected(t *testing.T) {
	f := New()
	require.NoError(t, f.Create(Ar))
	info := newTestInfo("name-way-longer-than-sixteen-bytes")
	err := f.AppendFile(info, newDataFile(t, "x"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestArLongNameTableRejectedOnRead(t *testing.T) {
	f := New()
	require.NoError(t, f.Create(Ar))
	require.NoError(t, f.AppendFile(newTestInfo("ok"), newDataFile(t, "x")))

	// overwrite the entry name with a System V long-name reference
	name := make([]byte, 16)
	for i := range name {
		name[i] = ' '
	}
	copy(name, "/12")
	_, err := f.WriteAt(name, 8)
	require.NoError(t, err)

	dir, err := f.DirRewind()
	require.NoError(t, err)
	_, _, err = dir.Next()
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestArBadGlobalMagic(t *testing.T) {
	f := New()
	require.NoError(t, f.Create(Other))
	_, err := f.WriteAt([]byte("!<arch>X junk"), 0)
	require.NoError(t, err)
	f.format = Ar // force the codec onto bad bytes

	_, err = f.DirRewind()
	assert.Error(t, err)
}

func TestArEmptyArchive(t *testing.T) {
	f := New()
	require.NoError(t, f.Create(Ar))
	require.NoError(t, f.AppendFile(newTestInfo("a"), newDataFile(t, "1")))

	entries := collectEntries(t, f)
	require.Len(t, entries, 1)

	// truncating back to just the global magic leaves zero entries
	require.NoError(t, f.manager().Truncate(8))
	entries = collectEntries(t, f)
	assert.Empty(t, entries)
}
