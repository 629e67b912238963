/*
Package memory simulates the byte-addressable memory of a C program.

Memory is divided into four fixed regions: the stack grows downward from its
top address, heap, data and bss grow upward from their base addresses. Every
allocated byte is a cell tagged with its region. Cells which have never been
allocated, or have been released, are unmapped; reading them is an error and
never yields zero.

Scalars are stored two's-complement little-endian. Writing an integer which
does not fit into its width truncates it and records an overflow warning.

Reference counts are kept per address. They count live pointers aimed at an
address and are diagnostic only: they never free anything. Every pointer slot
remembers the target it has been counted for, so only counted references are
ever taken back.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package memory

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'csim.memory'.
func tracer() tracing.Trace {
	return tracing.Select("csim.memory")
}

// Structural errors. Runtime errors returned from this package wrap one of them.
var (
	ErrUnmapped    = errors.New("unmapped memory")
	ErrOutOfMemory = errors.New("region exhausted")
	ErrInvalidFree = errors.New("invalid free")
	ErrLayout      = errors.New("invalid memory layout")
)

// Region is one of the memory regions.
type Region int8

// Regions. Unmapped is the region of addresses outside of every region.
const (
	Unmapped Region = iota
	Stack
	Heap
	Data
	BSS
)

func (r Region) String() string {
	switch r {
	case Stack:
		return "stack"
	case Heap:
		return "heap"
	case Data:
		return "data"
	case BSS:
		return "bss"
	}
	return "unmapped"
}

// Layout places the regions in the address space.
type Layout struct {
	StackTop  uint64 `yaml:"stack-top"`
	StackSize uint64 `yaml:"stack-size"`
	HeapBase  uint64 `yaml:"heap-base"`
	HeapSize  uint64 `yaml:"heap-size"`
	DataBase  uint64 `yaml:"data-base"`
	DataSize  uint64 `yaml:"data-size"`
	BSSBase   uint64 `yaml:"bss-base"`
	BSSSize   uint64 `yaml:"bss-size"`
}

// DefaultLayout returns the standard placement of regions.
func DefaultLayout() Layout {
	return Layout{
		StackTop:  0x80000,
		StackSize: 0x10000,
		HeapBase:  0x10000,
		HeapSize:  0x10000,
		DataBase:  0x1000,
		DataSize:  0x1000,
		BSSBase:   0x2000,
		BSSSize:   0x1000,
	}
}

// Range returns the half-open address range [lo,hi) of region r.
func (l Layout) Range(r Region) (lo, hi uint64) {
	switch r {
	case Stack:
		return l.StackTop - l.StackSize, l.StackTop
	case Heap:
		return l.HeapBase, l.HeapBase + l.HeapSize
	case Data:
		return l.DataBase, l.DataBase + l.DataSize
	case BSS:
		return l.BSSBase, l.BSSBase + l.BSSSize
	}
	return 0, 0
}

// Validate checks that every region is non-empty, does not contain address 0
// and does not overlap any other region.
func (l Layout) Validate() error {
	regions := []Region{Stack, Heap, Data, BSS}
	if l.StackSize > l.StackTop {
		return fmt.Errorf("%w: stack of size %#x does not fit below %#x", ErrLayout, l.StackSize, l.StackTop)
	}
	for i, r := range regions {
		lo, hi := l.Range(r)
		if hi <= lo {
			return fmt.Errorf("%w: %s region is empty", ErrLayout, r)
		}
		if lo == 0 {
			return fmt.Errorf("%w: %s region contains the null address", ErrLayout, r)
		}
		for _, other := range regions[i+1:] {
			olo, ohi := l.Range(other)
			if lo < ohi && olo < hi {
				return fmt.Errorf("%w: %s region overlaps %s region", ErrLayout, r, other)
			}
		}
	}
	return nil
}

// RegionOf returns the region an address belongs to, whether it is mapped
// or not.
func (l Layout) RegionOf(addr uint64) Region {
	for _, r := range []Region{Stack, Heap, Data, BSS} {
		if lo, hi := l.Range(r); addr >= lo && addr < hi {
			return r
		}
	}
	return Unmapped
}

// cell is a single allocated byte.
type cell struct {
	b      byte
	region Region
}

// Memory is the simulated address space of one interpreter. It is not safe for
// concurrent use.
type Memory struct {
	layout   Layout
	cells    map[uint64]cell
	refs     map[uint64]int
	held     map[uint64]uint64 // pointer slot -> target it is counted for
	sp       uint64 // lowest allocated stack address
	heapNext uint64
	dataNext uint64
	bssNext  uint64
	blocks   *treemap.Map // heap blocks by address
	diags    *diag.Bag
}

// New creates an empty address space with the given layout. Overflow warnings
// go to diags, which may be nil.
func New(layout Layout, diags *diag.Bag) (*Memory, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if diags == nil {
		diags = diag.NewBag()
	}
	return &Memory{
		layout:   layout,
		cells:    make(map[uint64]cell),
		refs:     make(map[uint64]int),
		held:     make(map[uint64]uint64),
		sp:       layout.StackTop,
		heapNext: layout.HeapBase,
		dataNext: layout.DataBase,
		bssNext:  layout.BSSBase,
		blocks:   treemap.NewWithIntComparator(),
		diags:    diags,
	}, nil
}

// Layout returns the region layout of m.
func (m *Memory) Layout() Layout {
	return m.layout
}

// RegionOf returns the region an address belongs to.
func (m *Memory) RegionOf(addr uint64) Region {
	return m.layout.RegionOf(addr)
}

// IsMapped is a predicate: is the cell at addr allocated?
func (m *Memory) IsMapped(addr uint64) bool {
	_, ok := m.cells[addr]
	return ok
}

// Mapped returns the number of allocated cells.
func (m *Memory) Mapped() int {
	return len(m.cells)
}

// Used returns the number of bytes allocated so far in a region, including
// freed heap blocks.
func (m *Memory) Used(r Region) uint64 {
	switch r {
	case Stack:
		return m.layout.StackTop - m.sp
	case Heap:
		return m.heapNext - m.layout.HeapBase
	case Data:
		return m.dataNext - m.layout.DataBase
	case BSS:
		return m.bssNext - m.layout.BSSBase
	}
	return 0
}

func (m *Memory) mapCells(base uint64, size int, r Region) {
	for i := 0; i < size; i++ {
		m.cells[base+uint64(i)] = cell{region: r}
	}
}

// unmapCells releases cells which may be allocated again later. Pointers
// stored in them, and pointers aimed at them, stop being counted.
func (m *Memory) unmapCells(base uint64, size int) {
	m.releaseSlots(base, size)
	m.forgetTargets(base, size)
	for i := 0; i < size; i++ {
		delete(m.cells, base+uint64(i))
	}
}

func unmapped(addr uint64) *diag.RuntimeError {
	if addr == 0 {
		return diag.Runtimef(diag.InvalidDeref, noLoc, "access through null pointer").Because(ErrUnmapped)
	}
	return diag.Runtimef(diag.Unmapped, noLoc, "access to unmapped address %#x", addr).Because(ErrUnmapped)
}
