package memory

import (
	"fmt"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/diag"
)

var noLoc = csim.Location{}

// wordAlign is the alignment of heap, data and bss allocations.
const wordAlign = 8

func alignUp(n uint64) uint64 {
	return (n + wordAlign - 1) &^ (wordAlign - 1)
}

// --- Stack -----------------------------------------------------------------

// StackPointer returns the lowest allocated stack address, or the stack top if
// nothing is allocated.
func (m *Memory) StackPointer() uint64 {
	return m.sp
}

// StackAlloc moves the stack pointer down by size bytes, maps size zeroed
// cells and returns the new stack pointer as the base of the allocation.
func (m *Memory) StackAlloc(size int) (uint64, error) {
	if size < 0 {
		return 0, fmt.Errorf("negative stack allocation of %d bytes", size)
	}
	lo, _ := m.layout.Range(Stack)
	if m.sp-lo < uint64(size) {
		return 0, diag.Runtimef(diag.StackOverflow, noLoc, "stack exhausted allocating %d bytes", size).
			Because(ErrOutOfMemory)
	}
	m.sp -= uint64(size)
	m.mapCells(m.sp, size, Stack)
	tracer().Debugf("stack alloc %d bytes at %#x", size, m.sp)
	return m.sp, nil
}

// StackMark returns the current stack pointer, to be handed to StackRelease
// later.
func (m *Memory) StackMark() uint64 {
	return m.sp
}

// StackRelease unmaps every stack cell below mark and resets the stack
// pointer to mark. Reference counts of released cells are dropped, as are
// references held by pointers stored in them.
func (m *Memory) StackRelease(mark uint64) {
	if mark <= m.sp {
		return
	}
	tracer().Debugf("stack release %#x..%#x", m.sp, mark)
	m.unmapCells(m.sp, int(mark-m.sp))
	m.sp = mark
}

// --- Static data -----------------------------------------------------------

// DataAlloc allocates size zeroed bytes in the data region.
func (m *Memory) DataAlloc(size int) (uint64, error) {
	return m.staticAlloc(Data, &m.dataNext, size)
}

// BSSAlloc allocates size zeroed bytes in the bss region.
func (m *Memory) BSSAlloc(size int) (uint64, error) {
	return m.staticAlloc(BSS, &m.bssNext, size)
}

func (m *Memory) staticAlloc(r Region, next *uint64, size int) (uint64, error) {
	if size < 0 {
		return 0, fmt.Errorf("negative %s allocation of %d bytes", r, size)
	}
	_, hi := m.layout.Range(r)
	base := alignUp(*next)
	if base+uint64(size) > hi {
		return 0, diag.Runtimef(diag.OutOfMemory, noLoc, "%s region exhausted allocating %d bytes", r, size).
			Because(ErrOutOfMemory)
	}
	m.mapCells(base, size, r)
	*next = base + uint64(size)
	tracer().Debugf("%s alloc %d bytes at %#x", r, size, base)
	return base, nil
}

// --- Heap ------------------------------------------------------------------

// Block is a heap allocation. Freed blocks are kept so that dangling
// pointers into them can be identified.
type Block struct {
	Addr  uint64
	Size  int
	Freed bool
	At    csim.Location // where the block has been allocated
}

// Contains is a predicate: does addr fall inside the block?
func (b *Block) Contains(addr uint64) bool {
	return addr >= b.Addr && addr < b.Addr+uint64(b.Size)
}

func (b *Block) String() string {
	state := "live"
	if b.Freed {
		state = "freed"
	}
	return fmt.Sprintf("<block %#x[%d] %s>", b.Addr, b.Size, state)
}

// HeapAlloc allocates size zeroed bytes on the heap. Addresses are never
// reused. If the heap is exhausted, or size is 0, the null address is
// returned without an error, as with C's malloc.
func (m *Memory) HeapAlloc(size int, at csim.Location) (uint64, error) {
	if size < 0 {
		return 0, fmt.Errorf("negative heap allocation of %d bytes", size)
	}
	if size == 0 {
		return 0, nil
	}
	_, hi := m.layout.Range(Heap)
	base := alignUp(m.heapNext)
	if base+uint64(size) > hi {
		m.diags.Warn(diag.OutOfMemory, at, "heap exhausted allocating %d bytes", size)
		return 0, nil
	}
	m.mapCells(base, size, Heap)
	m.heapNext = base + uint64(size)
	m.blocks.Put(int(base), &Block{Addr: base, Size: size, At: at})
	tracer().Debugf("heap alloc %d bytes at %#x", size, base)
	return base, nil
}

// HeapFree releases the live heap block starting at addr. References held by
// pointers stored in the block are dropped; references aimed into the block
// are kept, as heap addresses are never reused. Freeing the null
// address does nothing. Freeing an address which is not the start of a live
// block is an error.
func (m *Memory) HeapFree(addr uint64) error {
	if addr == 0 {
		return nil
	}
	v, found := m.blocks.Get(int(addr))
	if !found {
		return diag.Runtimef(diag.InvalidFree, noLoc, "free of %#x, which is not the start of a heap block", addr).
			Because(ErrInvalidFree)
	}
	b := v.(*Block)
	if b.Freed {
		return diag.Runtimef(diag.InvalidFree, noLoc, "double free of heap block at %#x", addr).
			Because(ErrInvalidFree)
	}
	m.releaseSlots(addr, b.Size)
	for i := 0; i < b.Size; i++ {
		delete(m.cells, addr+uint64(i))
	}
	b.Freed = true
	tracer().Debugf("heap free %v", b)
	return nil
}

// Block returns the heap block containing addr, live or freed.
func (m *Memory) Block(addr uint64) (*Block, bool) {
	_, v := m.blocks.Floor(int(addr))
	if v == nil {
		return nil, false
	}
	b := v.(*Block)
	if !b.Contains(addr) {
		return nil, false
	}
	return b, true
}

// Blocks returns all heap blocks ordered by address.
func (m *Memory) Blocks() []*Block {
	blocks := make([]*Block, 0, m.blocks.Size())
	for _, v := range m.blocks.Values() {
		blocks = append(blocks, v.(*Block))
	}
	return blocks
}

// Leaks returns the heap blocks which have not been freed.
func (m *Memory) Leaks() []*Block {
	var leaks []*Block
	for _, b := range m.Blocks() {
		if !b.Freed {
			leaks = append(leaks, b)
		}
	}
	return leaks
}

// Dangling returns the freed heap blocks which are still referenced by a
// pointer.
func (m *Memory) Dangling() []*Block {
	var dangling []*Block
	for _, b := range m.Blocks() {
		if !b.Freed {
			continue
		}
		for i := 0; i < b.Size; i++ {
			if m.refs[b.Addr+uint64(i)] > 0 {
				dangling = append(dangling, b)
				break
			}
		}
	}
	return dangling
}
