package block

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Sentinel errors returned by Manager operations.
var (
	// ErrNegativeOffset is returned when a read or write offset is negative.
	ErrNegativeOffset = errors.New("block: negative offset")

	// ErrSizeLimit is returned when a write would grow the manager past
	// MaxManagerSize. The manager is left untouched.
	ErrSizeLimit = errors.New("block: size limit exceeded")
)

// Manager is a random-access byte buffer built from fixed-size pooled blocks.
//
// The logical size is the number of addressable bytes; capacity grows in
// whole-block increments. Reads never fabricate data past the logical size,
// and writes past it zero-fill the gap. Managers are not safe for concurrent
// use; the pool they share is.
type Manager struct {
	pool   *Pool
	blocks [][]byte
	size   int64
}

// NewManager creates an empty manager drawing blocks from pool.
// A nil pool selects DefaultPool.
func NewManager(pool *Pool) *Manager {
	if pool == nil {
		pool = DefaultPool
	}
	return &Manager{pool: pool}
}

// Size returns the logical size in bytes.
func (m *Manager) Size() int64 {
	return m.size
}

// ReadAt implements io.ReaderAt. Reads are clamped to the logical size;
// a read starting at or past the end returns 0, io.EOF. Negative offsets
// return ErrNegativeOffset.
func (m *Manager) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("read at %d: %w", off, ErrNegativeOffset)
	}
	if off >= m.size {
		return 0, io.EOF
	}
	want := int64(len(p))
	if want > m.size-off {
		want = m.size - off
	}
	var n int64
	for n < want {
		blk := m.blocks[(off+n)/Size]
		bo := (off + n) % Size
		c := copy(p[n:want], blk[bo:])
		n += int64(c)
	}
	if n < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

// WriteAt implements io.WriterAt. The manager grows as needed, zero-filling
// any gap between the current logical size and off. A write that would push
// the logical size past MaxManagerSize fails with ErrSizeLimit and performs
// no mutation.
func (m *Manager) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("write at %d: %w", off, ErrNegativeOffset)
	}
	end := off + int64(len(p))
	if end > MaxManagerSize {
		return 0, fmt.Errorf("write at %d (%d bytes): %w", off, len(p), ErrSizeLimit)
	}
	if len(p) == 0 {
		return 0, nil
	}
	m.grow(end)
	var n int64
	for n < int64(len(p)) {
		blk := m.blocks[(off+n)/Size]
		bo := (off + n) % Size
		c := copy(blk[bo:], p[n:])
		n += int64(c)
	}
	if end > m.size {
		m.size = end
	}
	return int(n), nil
}

// grow ensures capacity covers end bytes. New blocks come zeroed from the
// pool, which keeps gap bytes zero-filled without an explicit memset.
func (m *Manager) grow(end int64) {
	need := int((end + Size - 1) / Size)
	for len(m.blocks) < need {
		m.blocks = append(m.blocks, m.pool.get())
	}
}

// Append writes p at the current logical end.
func (m *Manager) Append(p []byte) (int, error) {
	return m.WriteAt(p, m.size)
}

// Write implements io.Writer by appending at the logical end, so a Manager
// can sit directly under streaming encoders.
func (m *Manager) Write(p []byte) (int, error) {
	return m.Append(p)
}

// Truncate sets the logical size to n, which must not exceed the current
// size. Blocks past the new size are returned to the pool.
func (m *Manager) Truncate(n int64) error {
	if n < 0 || n > m.size {
		return fmt.Errorf("truncate to %d: out of range (size %d)", n, m.size)
	}
	keep := int((n + Size - 1) / Size)
	for i := keep; i < len(m.blocks); i++ {
		m.pool.put(m.blocks[i])
		m.blocks[i] = nil
	}
	m.blocks = m.blocks[:keep]
	// zero the tail of the last kept block so later growth stays zero-filled
	if keep > 0 {
		tail := n % Size
		if tail != 0 {
			clear(m.blocks[keep-1][tail:])
		}
	}
	m.size = n
	return nil
}

// Reset returns all blocks to the pool and sets the logical size to zero.
func (m *Manager) Reset() {
	for i, b := range m.blocks {
		m.pool.put(b)
		m.blocks[i] = nil
	}
	m.blocks = m.blocks[:0]
	m.size = 0
}

// Compare lexicographically compares the contents of two managers up to the
// smaller logical size, breaking ties by size. It returns -1, 0, or 1.
func (m *Manager) Compare(other *Manager) int {
	n := min(m.size, other.size)
	for off := int64(0); off < n; {
		a := m.blocks[off/Size]
		b := other.blocks[off/Size]
		bo := off % Size
		chunk := min(Size-bo, n-off)
		if c := bytes.Compare(a[bo:bo+chunk], b[bo:bo+chunk]); c != 0 {
			return c
		}
		off += chunk
	}
	switch {
	case m.size < other.size:
		return -1
	case m.size > other.size:
		return 1
	}
	return 0
}

// CopyFrom replaces the manager's contents with a copy of src.
func (m *Manager) CopyFrom(src *Manager) error {
	m.Reset()
	buf := make([]byte, Size)
	for off := int64(0); off < src.size; {
		n, err := src.ReadAt(buf, off)
		if n > 0 {
			if _, werr := m.WriteAt(buf[:n], off); werr != nil {
				return werr
			}
			off += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SectionReader returns an io.Reader over [off, off+n).
func (m *Manager) SectionReader(off, n int64) *io.SectionReader {
	return io.NewSectionReader(m, off, n)
}

// Reader returns an io.Reader over the bytes from off to the logical end.
func (m *Manager) Reader(off int64) io.Reader {
	return io.NewSectionReader(m, off, m.size-off)
}

// ReadFrom appends the full contents of r, streaming through a block-sized
// buffer. It implements io.ReaderFrom.
func (m *Manager) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, Size)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := m.Append(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// WriteTo streams the full contents to w in block-sized chunks.
// It implements io.WriterTo.
func (m *Manager) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for off := int64(0); off < m.size; {
		blk := m.blocks[off/Size]
		bo := off % Size
		chunk := min(Size-bo, m.size-off)
		n, err := w.Write(blk[bo : bo+chunk])
		total += int64(n)
		if err != nil {
			return total, err
		}
		off += int64(n)
	}
	return total, nil
}
