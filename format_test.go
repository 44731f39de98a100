package wpkgar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuessFormat(t *testing.T) {
	tarHead := make([]byte, 0x101+6)
	copy(tarHead[0x101:], "ustar\x00")
	tarHeadGNU := make([]byte, 0x101+6)
	copy(tarHeadGNU[0x101:], "ustar ")

	cases := []struct {
		name string
		data []byte
		want Format
	}{
		{"empty", nil, Other},
		{"plain text", []byte("hello world, nothing special"), Other},
		{"gzip", []byte{0x1F, 0x8B, 0x08, 0x00}, Gzip},
		{"bzip2", []byte("BZh91AY&SY"), Bzip2},
		{"xz", []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, Xz},
		{"zstd", []byte{0x28, 0xB5, 0x2F, 0xFD, 0x00}, Zstd},
		{"ar", []byte("!<arch>\nfoo"), Ar},
		{"7z", []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}, SevenZ},
		{"zip", []byte{'P', 'K', 0x03, 0x04}, Zip},
		{"wpkg", []byte("GKPW\x00\x00\x00\x00"), Wpkg},
		{"tar posix", tarHead, Tar},
		{"tar gnu", tarHeadGNU, Tar},
		{"truncated gzip", []byte{0x1F, 0x8B}, Other},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GuessFormat(tc.data))
		})
	}
}

func TestGuessFormatLzmaHeuristic(t *testing.T) {
	// props byte 0x5D (the common 3,0,2 encoding) plus a 64MB dictionary
	head := make([]byte, 16)
	head[0] = 0x5D
	head[1], head[2], head[3], head[4] = 0x00, 0x00, 0x00, 0x04 // 1<<26
	assert.Equal(t, Lzma, GuessFormat(head))

	// invalid props byte
	head[0] = 0xFF
	assert.Equal(t, Other, GuessFormat(head))

	// non-power-of-two dictionary
	head[0] = 0x5D
	head[4] = 0x05
	assert.Equal(t, Other, GuessFormat(head))
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "tar", Tar.String())
	assert.Equal(t, "wpkg", Wpkg.String())
	assert.Equal(t, "bzip2", Bzip2.String())
	assert.Equal(t, "undefined", Undefined.String())
	assert.Equal(t, "unknown", Format(99).String())
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{Other, Directory, Ar, Tar, Wpkg, Meta, Gzip, Bzip2, Zstd, Best} {
		got, err := ParseFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	got, err := ParseFormat("gz")
	require.NoError(t, err)
	assert.Equal(t, Gzip, got)

	_, err = ParseFormat("rar")
	assert.ErrorIs(t, err, ErrParameter)
}

func TestIsCompressed(t *testing.T) {
	assert.True(t, Gzip.IsCompressed())
	assert.True(t, Bzip2.IsCompressed())
	assert.True(t, Zstd.IsCompressed())
	assert.True(t, Lzma.IsCompressed())
	assert.False(t, Tar.IsCompressed())
	assert.False(t, Best.IsCompressed())
}
