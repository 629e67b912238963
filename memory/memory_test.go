package memory

import (
	"errors"
	"math"
	"testing"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func newMemory(t *testing.T) (*Memory, *diag.Bag) {
	bag := diag.NewBag()
	m, err := New(DefaultLayout(), bag)
	if err != nil {
		t.Fatal(err)
	}
	return m, bag
}

func TestLayoutValidation(t *testing.T) {
	if err := DefaultLayout().Validate(); err != nil {
		t.Errorf("default layout should be valid, got %v", err)
	}
	l := DefaultLayout()
	l.BSSBase = 0x1800
	if err := l.Validate(); !errors.Is(err, ErrLayout) {
		t.Errorf("expected overlapping data and bss to be rejected, got %v", err)
	}
	l = DefaultLayout()
	l.StackSize = 0x90000
	if _, err := New(l, nil); err == nil {
		t.Errorf("expected stack larger than its top address to be rejected")
	}
}

func TestScalarRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.memory")
	defer teardown()
	//
	m, bag := newMemory(t)
	addr, err := m.StackAlloc(4)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int64{0, 1, -1, 42, -42, 65536, math.MaxInt32, math.MinInt32} {
		if _, err := m.SetScalar(addr, v, 4, true, csim.At(1, 1)); err != nil {
			t.Fatal(err)
		}
		got, err := m.GetScalar(addr, 4, true)
		if err != nil {
			t.Fatal(err)
		}
		if got != v {
			t.Errorf("expected %d to round-trip, got %d", v, got)
		}
	}
	if bag.Len() != 0 {
		t.Errorf("expected no diagnostics for in-range values, got %v", bag.All())
	}
}

func TestLittleEndian(t *testing.T) {
	m, _ := newMemory(t)
	addr, _ := m.StackAlloc(4)
	_, _ = m.SetScalar(addr, 0x01020304, 4, true, csim.Location{})
	b, err := m.ReadBytes(addr, 4)
	if err != nil {
		t.Fatal(err)
	}
	if b[0] != 0x04 || b[3] != 0x01 {
		t.Errorf("expected little-endian byte order, got % x", b)
	}
}

func TestOverflowTruncates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.memory")
	defer teardown()
	//
	cases := []struct {
		value  int64
		width  int
		signed bool
		stored int64
	}{
		{int64(math.MaxInt32) + 1, 4, true, math.MinInt32},
		{0x1_0000_0005, 4, true, 5},
		{256, 1, false, 0},
		{200, 1, true, -56},
		{-1, 2, false, 0xffff},
	}
	for _, c := range cases {
		m, bag := newMemory(t)
		addr, _ := m.StackAlloc(c.width)
		at := csim.At(7, 3)
		stored, err := m.SetScalar(addr, c.value, c.width, c.signed, at)
		if err != nil {
			t.Fatal(err)
		}
		got, _ := m.GetScalar(addr, c.width, c.signed)
		if stored != c.stored || got != c.stored {
			t.Errorf("%d in %d bytes: expected %d, stored %d, read %d", c.value, c.width, c.stored, stored, got)
		}
		w := bag.Warnings()
		if len(w) != 1 || w[0].Code != diag.Overflow || w[0].Loc.Line != 7 {
			t.Errorf("%d in %d bytes: expected exactly one overflow warning at line 7, got %v", c.value, c.width, w)
		}
	}
}

func TestStackGrowsDown(t *testing.T) {
	m, _ := newMemory(t)
	a, _ := m.StackAlloc(12)
	b, _ := m.StackAlloc(20)
	if a-b != 20 || b >= a {
		t.Errorf("expected second allocation 20 bytes below the first, got %#x and %#x", a, b)
	}
	if a != DefaultLayout().StackTop-12 {
		t.Errorf("expected first allocation right below the stack top, got %#x", a)
	}
	if m.RegionOf(b) != Stack {
		t.Errorf("expected stack region, got %s", m.RegionOf(b))
	}
	v, err := m.GetScalar(b, 8, true)
	if err != nil || v != 0 {
		t.Errorf("expected zero-filled stack cells, got %d (%v)", v, err)
	}
}

func TestStackRelease(t *testing.T) {
	m, _ := newMemory(t)
	a, _ := m.StackAlloc(4)
	mark := m.StackMark()
	b, _ := m.StackAlloc(8)
	if err := m.AddReference(b); err != nil {
		t.Fatal(err)
	}
	m.StackRelease(mark)
	if m.IsMapped(b) || m.References(b) != 0 {
		t.Errorf("expected released cells to be unmapped and unreferenced")
	}
	if !m.IsMapped(a) {
		t.Errorf("cells above the mark must survive a release")
	}
	c, _ := m.StackAlloc(8)
	if c != b {
		t.Errorf("expected stack addresses to be reused after release, got %#x", c)
	}
}

func TestStackOverflow(t *testing.T) {
	m, _ := newMemory(t)
	_, err := m.StackAlloc(int(DefaultLayout().StackSize) + 1)
	var rterr *diag.RuntimeError
	if !errors.As(err, &rterr) || rterr.Code != diag.StackOverflow {
		t.Errorf("expected stack overflow, got %v", err)
	}
}

func TestUnmappedRead(t *testing.T) {
	m, _ := newMemory(t)
	addr, _ := m.DataAlloc(2)
	_, err := m.GetScalar(addr, 4, true)
	if !errors.Is(err, ErrUnmapped) {
		t.Errorf("expected partially unmapped read to fail, got %v", err)
	}
	var rterr *diag.RuntimeError
	if !errors.As(err, &rterr) || rterr.Code != diag.Unmapped {
		t.Errorf("expected runtime error with code unmapped, got %v", err)
	}
	if _, err = m.GetScalar(0, 4, true); !errors.As(err, &rterr) || rterr.Code != diag.InvalidDeref {
		t.Errorf("expected null access to be an invalid dereference, got %v", err)
	}
	if _, err = m.SetScalar(0x3000, 1, 4, true, csim.Location{}); !errors.Is(err, ErrUnmapped) {
		t.Errorf("expected write to unmapped address to fail, got %v", err)
	}
}

func TestStaticRegions(t *testing.T) {
	m, _ := newMemory(t)
	d1, _ := m.DataAlloc(3)
	d2, _ := m.DataAlloc(4)
	if d1 != DefaultLayout().DataBase || d2 != d1+8 {
		t.Errorf("expected word aligned upward data allocations, got %#x, %#x", d1, d2)
	}
	b, _ := m.BSSAlloc(4)
	if m.RegionOf(b) != BSS || m.RegionOf(d1) != Data {
		t.Errorf("expected bss and data regions")
	}
	if _, err := m.BSSAlloc(0x2000); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("expected exhausted bss, got %v", err)
	}
}

func TestFloats(t *testing.T) {
	m, _ := newMemory(t)
	addr, _ := m.HeapAlloc(12, csim.Location{})
	if err := m.SetFloat(addr, 3.25, 8); err != nil {
		t.Fatal(err)
	}
	if err := m.SetFloat(addr+8, 1.5, 4); err != nil {
		t.Fatal(err)
	}
	d, _ := m.GetFloat(addr, 8)
	f, _ := m.GetFloat(addr+8, 4)
	if d != 3.25 || f != 1.5 {
		t.Errorf("expected 3.25 and 1.5, got %g and %g", d, f)
	}
}

func TestCString(t *testing.T) {
	m, _ := newMemory(t)
	addr, _ := m.DataAlloc(6)
	_ = m.WriteBytes(addr, []byte("hello\x00"))
	s, err := m.CString(addr)
	if err != nil || s != "hello" {
		t.Errorf("expected 'hello', got %q (%v)", s, err)
	}
	dst, _ := m.StackAlloc(6)
	if err := m.Copy(dst, addr, 6); err != nil {
		t.Fatal(err)
	}
	if s, _ = m.CString(dst + 1); s != "ello" {
		t.Errorf("expected copied string, got %q", s)
	}
	_ = m.WriteBytes(addr, []byte("abcdef"))
	if _, err = m.CString(addr); !errors.Is(err, ErrUnmapped) {
		t.Errorf("expected unterminated string to run into unmapped memory")
	}
}

func TestReferences(t *testing.T) {
	m, _ := newMemory(t)
	if err := m.AddReference(0x70000); err == nil {
		t.Errorf("expected reference to unallocated address to fail")
	}
	addr, _ := m.StackAlloc(4)
	before := m.References(addr)
	if err := m.AddReference(addr); err != nil {
		t.Fatal(err)
	}
	if m.References(addr) != before+1 {
		t.Errorf("expected count to increment")
	}
	m.RemoveReference(addr)
	if m.References(addr) != before {
		t.Errorf("expected count to be restored, got %d", m.References(addr))
	}
	m.RemoveReference(addr)
	if m.References(addr) != 0 {
		t.Errorf("expected count to be floored at zero")
	}
	other, _ := m.StackAlloc(4)
	slot, _ := m.StackAlloc(8)
	m.MoveReference(slot, addr)
	m.MoveReference(slot, other)
	if m.References(addr) != 0 || m.References(other) != 1 {
		t.Errorf("expected reference to move from %#x to %#x", addr, other)
	}
	m.MoveReference(slot, other)
	if m.References(other) != 1 {
		t.Errorf("expected re-storing the same target to keep the count, got %d", m.References(other))
	}
	m.MoveReference(slot, 0)
	if m.References(other) != 0 {
		t.Errorf("expected null store to drop the reference, got %d", m.References(other))
	}
}

func TestDanglingSlotKeepsOthersCount(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.memory")
	defer teardown()
	//
	m, _ := newMemory(t)
	p, _ := m.StackAlloc(8)
	mark := m.StackMark()
	local, _ := m.StackAlloc(4)
	m.MoveReference(p, local)
	m.StackRelease(mark)
	if _, ok := m.Target(p); ok {
		t.Errorf("expected pointer to released cell to be uncounted")
	}
	y, _ := m.StackAlloc(4)
	if y != local {
		t.Fatalf("expected stack address %#x to be reused, got %#x", local, y)
	}
	q, _ := m.StackAlloc(8)
	m.MoveReference(q, y)
	m.MoveReference(p, 0)
	if n := m.References(y); n != 1 {
		t.Errorf("expected dangling pointer to leave count of %#x at 1, got %d", y, n)
	}
}

func TestReleasedSlotsDropReferences(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.memory")
	defer teardown()
	//
	m, _ := newMemory(t)
	x, _ := m.DataAlloc(4)
	mark := m.StackMark()
	p, _ := m.StackAlloc(8)
	m.MoveReference(p, x)
	m.StackRelease(mark)
	if n := m.References(x); n != 0 {
		t.Errorf("expected popped pointer to drop its reference, got %d", n)
	}
	blk, _ := m.HeapAlloc(8, csim.Location{})
	m.MoveReference(blk, x)
	if err := m.HeapFree(blk); err != nil {
		t.Fatal(err)
	}
	if n := m.References(x); n != 0 {
		t.Errorf("expected freed block to drop references it held, got %d", n)
	}
}

func TestHeapBlocks(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.memory")
	defer teardown()
	//
	m, _ := newMemory(t)
	a, _ := m.HeapAlloc(10, csim.At(3, 1))
	b, _ := m.HeapAlloc(4, csim.At(4, 1))
	if a != DefaultLayout().HeapBase || b != a+16 {
		t.Errorf("expected bump allocation, got %#x, %#x", a, b)
	}
	if blk, ok := m.Block(a + 9); !ok || blk.Addr != a {
		t.Errorf("expected interior address to find its block")
	}
	if _, ok := m.Block(a + 12); ok {
		t.Errorf("expected padding between blocks to belong to no block")
	}
	_ = m.AddReference(a)
	if err := m.HeapFree(a + 1); !errors.Is(err, ErrInvalidFree) {
		t.Errorf("expected free of interior pointer to fail, got %v", err)
	}
	if err := m.HeapFree(a); err != nil {
		t.Fatal(err)
	}
	if err := m.HeapFree(a); !errors.Is(err, ErrInvalidFree) {
		t.Errorf("expected double free to fail, got %v", err)
	}
	if err := m.HeapFree(0); err != nil {
		t.Errorf("expected free of null to be a no-op, got %v", err)
	}
	if m.IsMapped(a) {
		t.Errorf("expected freed cells to be unmapped")
	}
	if leaks := m.Leaks(); len(leaks) != 1 || leaks[0].Addr != b {
		t.Errorf("expected second block to leak, got %v", leaks)
	}
	if d := m.Dangling(); len(d) != 1 || d[0].Addr != a {
		t.Errorf("expected first block to dangle, got %v", d)
	}
	c, _ := m.HeapAlloc(4, csim.Location{})
	if c <= b {
		t.Errorf("expected freed heap addresses never to be reused")
	}
}

func TestHeapExhausted(t *testing.T) {
	m, bag := newMemory(t)
	addr, err := m.HeapAlloc(int(DefaultLayout().HeapSize)+1, csim.At(1, 1))
	if err != nil || addr != 0 {
		t.Errorf("expected null address for exhausted heap, got %#x (%v)", addr, err)
	}
	if len(bag.WithCode(diag.OutOfMemory)) != 1 {
		t.Errorf("expected an out-of-memory warning")
	}
}
