// Package block implements the pooled fixed-size buffer underlying the
// container engine. A Manager presents an arbitrarily large logical byte
// sequence backed by 64KB blocks drawn from a shared free-list Pool, so that
// processing thousands of package payloads in one run reuses the same handful
// of buffers instead of churning the allocator.
package block

import "sync"

// Size is the fixed size of every block managed by a Pool.
const Size = 64 << 10

// MaxManagerSize is the hard ceiling on a Manager's logical size (1 GiB).
const MaxManagerSize = 1 << 30

// Pool is a free list of fixed-size blocks. Managers draw blocks from their
// pool on growth and return them on Reset/Release, so a pool's allocation
// high-water mark stays flat across create/destroy cycles.
//
// The zero value is not usable; call NewPool, or pass a nil pool to
// NewManager to share DefaultPool.
type Pool struct {
	mu           sync.Mutex
	free         [][]byte
	allocated    int64 // bytes currently handed out or on the free list
	maxAllocated int64
}

// DefaultPool is the pool used by Managers created without an explicit pool.
var DefaultPool = NewPool()

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// get returns a zeroed block, reusing a free one when available.
func (p *Pool) get() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		b := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		clear(b)
		return b
	}
	p.allocated += Size
	if p.allocated > p.maxAllocated {
		p.maxAllocated = p.allocated
	}
	return make([]byte, Size)
}

// put returns a block to the free list.
func (p *Pool) put(b []byte) {
	if len(b) != Size {
		return
	}
	p.mu.Lock()
	p.free = append(p.free, b)
	p.mu.Unlock()
}

// MaxAllocated returns the maximum number of bytes the pool has ever had
// allocated. Diagnostic only: a flat value across engine lifecycles proves
// blocks are being reused rather than reallocated.
func (p *Pool) MaxAllocated() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxAllocated
}

// FreeBlocks returns the number of blocks currently on the free list.
func (p *Pool) FreeBlocks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
