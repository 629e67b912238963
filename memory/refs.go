package memory

import (
	"github.com/npillmayer/csim/diag"
)

// AddReference counts one more pointer aimed at addr. addr has to be
// allocated.
func (m *Memory) AddReference(addr uint64) error {
	if !m.IsMapped(addr) {
		return diag.Runtimef(diag.InvalidRef, noLoc, "reference to unallocated address %#x", addr).
			Because(ErrUnmapped)
	}
	m.refs[addr]++
	return nil
}

// RemoveReference counts one pointer less aimed at addr. Counts never drop
// below zero.
func (m *Memory) RemoveReference(addr uint64) {
	if n := m.refs[addr]; n > 1 {
		m.refs[addr] = n - 1
	} else {
		delete(m.refs, addr)
	}
}

// References returns the number of pointers aimed at addr.
func (m *Memory) References(addr uint64) int {
	return m.refs[addr]
}

// MoveReference re-aims the pointer stored at slot to target to. The
// reference the slot has been counted for, if any, is removed. Targets which
// are null or unallocated are not counted, so a dangling pointer never takes
// a reference away from a later object at the same address.
func (m *Memory) MoveReference(slot, to uint64) {
	if from, ok := m.held[slot]; ok && from == to {
		return
	}
	m.ReleaseSlot(slot)
	if to != 0 && m.IsMapped(to) {
		m.refs[to]++
		m.held[slot] = to
	}
}

// ReleaseSlot drops the reference held by the pointer stored at slot.
func (m *Memory) ReleaseSlot(slot uint64) {
	if from, ok := m.held[slot]; ok {
		m.RemoveReference(from)
		delete(m.held, slot)
	}
}

// Target returns the address the pointer at slot is counted for.
func (m *Memory) Target(slot uint64) (uint64, bool) {
	to, ok := m.held[slot]
	return to, ok
}

// releaseSlots drops the references held by pointers stored in
// [base, base+size).
func (m *Memory) releaseSlots(base uint64, size int) {
	for i := 0; i < size; i++ {
		m.ReleaseSlot(base + uint64(i))
	}
}

// forgetTargets discards the reference counts of [base, base+size) and
// un-counts every pointer aimed there. Such pointers are dangling from now on.
func (m *Memory) forgetTargets(base uint64, size int) {
	end := base + uint64(size)
	for slot, to := range m.held {
		if to >= base && to < end {
			delete(m.held, slot)
		}
	}
	for i := 0; i < size; i++ {
		delete(m.refs, base+uint64(i))
	}
}
