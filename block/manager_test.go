package block

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestManagerReadWriteRoundTrip(t *testing.T) {
	m := NewManager(NewPool())
	data := []byte("hello, world")
	if n, err := m.WriteAt(data, 0); err != nil || n != len(data) {
		t.Fatalf("WriteAt = %d, %v", n, err)
	}
	if m.Size() != int64(len(data)) {
		t.Fatalf("Size = %d, want %d", m.Size(), len(data))
	}
	got := make([]byte, len(data))
	if n, err := m.ReadAt(got, 0); err != nil || n != len(data) {
		t.Fatalf("ReadAt = %d, %v", n, err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("ReadAt = %q, want %q", got, data)
	}
}

func TestManagerWriteAtZeroFillsGap(t *testing.T) {
	m := NewManager(NewPool())
	off := int64(Size + 100) // middle of the second block
	if _, err := m.WriteAt([]byte{0xFF}, off); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if m.Size() != off+1 {
		t.Fatalf("Size = %d, want %d", m.Size(), off+1)
	}
	got := make([]byte, off+1)
	if _, err := m.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i := int64(0); i < off; i++ {
		if got[i] != 0 {
			t.Fatalf("gap byte %d = %#x, want 0", i, got[i])
		}
	}
	if got[off] != 0xFF {
		t.Fatalf("payload byte = %#x, want 0xFF", got[off])
	}
}

func TestManagerWriteSpansBlocks(t *testing.T) {
	m := NewManager(NewPool())
	data := bytes.Repeat([]byte{0xAB}, 3*Size+17)
	if _, err := m.WriteAt(data, 5); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	got := make([]byte, len(data))
	if _, err := m.ReadAt(got, 5); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("cross-block contents differ")
	}
}

func TestManagerNegativeOffset(t *testing.T) {
	m := NewManager(NewPool())
	if _, err := m.ReadAt(make([]byte, 1), -1); !errors.Is(err, ErrNegativeOffset) {
		t.Fatalf("ReadAt(-1) = %v, want ErrNegativeOffset", err)
	}
	if _, err := m.WriteAt([]byte{1}, -1); !errors.Is(err, ErrNegativeOffset) {
		t.Fatalf("WriteAt(-1) = %v, want ErrNegativeOffset", err)
	}
}

func TestManagerReadPastEnd(t *testing.T) {
	m := NewManager(NewPool())
	if _, err := m.Append([]byte("abc")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := m.ReadAt(make([]byte, 1), 3); err != io.EOF {
		t.Fatalf("ReadAt at end = %v, want io.EOF", err)
	}
	// short read: clamped to the logical size with io.EOF
	p := make([]byte, 10)
	n, err := m.ReadAt(p, 1)
	if n != 2 || err != io.EOF {
		t.Fatalf("short ReadAt = %d, %v, want 2, io.EOF", n, err)
	}
	if string(p[:n]) != "bc" {
		t.Fatalf("short ReadAt = %q, want %q", p[:n], "bc")
	}
}

func TestManagerSizeLimitNoMutation(t *testing.T) {
	m := NewManager(NewPool())
	if _, err := m.Append([]byte("abc")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	_, err := m.WriteAt([]byte{1}, MaxManagerSize)
	if !errors.Is(err, ErrSizeLimit) {
		t.Fatalf("WriteAt past ceiling = %v, want ErrSizeLimit", err)
	}
	if m.Size() != 3 {
		t.Fatalf("Size after rejected write = %d, want 3", m.Size())
	}
}

func TestManagerTruncate(t *testing.T) {
	m := NewManager(NewPool())
	data := bytes.Repeat([]byte{0xCD}, 2*Size)
	if _, err := m.Append(data); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := m.Truncate(10); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if m.Size() != 10 {
		t.Fatalf("Size = %d, want 10", m.Size())
	}
	if err := m.Truncate(11); err == nil {
		t.Fatal("Truncate past size succeeded")
	}
	// the tail of the kept block must be zero again after regrowth
	if _, err := m.WriteAt([]byte{1}, 20); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	got := make([]byte, 10)
	if _, err := m.ReadAt(got, 10); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, make([]byte, 10)) {
		t.Fatalf("truncated tail not zeroed: %v", got)
	}
}

func TestManagerCompare(t *testing.T) {
	pool := NewPool()
	mk := func(s string) *Manager {
		m := NewManager(pool)
		if _, err := m.Append([]byte(s)); err != nil {
			t.Fatalf("Append: %v", err)
		}
		return m
	}
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "abd", -1},
		{"abd", "abc", 1},
		{"ab", "abc", -1},
		{"abc", "ab", 1},
	}
	for _, tc := range cases {
		if got := mk(tc.a).Compare(mk(tc.b)); got != tc.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestManagerCompareSpansBlocks(t *testing.T) {
	pool := NewPool()
	a, b := NewManager(pool), NewManager(pool)
	base := bytes.Repeat([]byte{0x11}, Size+100)
	if _, err := a.Append(base); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Append(base); err != nil {
		t.Fatal(err)
	}
	if got := a.Compare(b); got != 0 {
		t.Fatalf("Compare equal = %d", got)
	}
	if _, err := b.WriteAt([]byte{0x12}, Size+50); err != nil {
		t.Fatal(err)
	}
	if got := a.Compare(b); got != -1 {
		t.Fatalf("Compare = %d, want -1", got)
	}
}

func TestManagerCopyFrom(t *testing.T) {
	pool := NewPool()
	src := NewManager(pool)
	data := bytes.Repeat([]byte("wxyz"), Size/2)
	if _, err := src.Append(data); err != nil {
		t.Fatal(err)
	}
	dst := NewManager(pool)
	if _, err := dst.Append([]byte("old contents")); err != nil {
		t.Fatal(err)
	}
	if err := dst.CopyFrom(src); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if dst.Compare(src) != 0 {
		t.Fatal("copy differs from source")
	}
}

func TestManagerReadFromWriteTo(t *testing.T) {
	m := NewManager(NewPool())
	data := strings.Repeat("0123456789", Size/4)
	n, err := m.ReadFrom(strings.NewReader(data))
	if err != nil || n != int64(len(data)) {
		t.Fatalf("ReadFrom = %d, %v", n, err)
	}
	var out bytes.Buffer
	wn, err := m.WriteTo(&out)
	if err != nil || wn != int64(len(data)) {
		t.Fatalf("WriteTo = %d, %v", wn, err)
	}
	if out.String() != data {
		t.Fatal("WriteTo output differs")
	}
}

func TestManagerReader(t *testing.T) {
	m := NewManager(NewPool())
	if _, err := m.Append([]byte("abcdefgh")); err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(m.Reader(3))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "defgh" {
		t.Fatalf("Reader(3) = %q", got)
	}
}
