package memory

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/diag"
)

func checkWidth(width int) error {
	switch width {
	case 1, 2, 4, 8:
		return nil
	}
	return fmt.Errorf("invalid scalar width %d", width)
}

func (m *Memory) checkMapped(addr uint64, n int) error {
	for i := 0; i < n; i++ {
		if _, ok := m.cells[addr+uint64(i)]; !ok {
			return unmapped(addr + uint64(i))
		}
	}
	return nil
}

// SetScalar stores an integer of width bytes at addr. If value is not
// representable with width and signedness, the truncated value is stored and
// an overflow warning carrying at is recorded. SetScalar returns the value
// actually stored.
func (m *Memory) SetScalar(addr uint64, value int64, width int, signed bool, at csim.Location) (int64, error) {
	if err := checkWidth(width); err != nil {
		return 0, err
	}
	if err := m.checkMapped(addr, width); err != nil {
		return 0, err
	}
	stored, overflow := ctype.Truncate(value, width, signed)
	if overflow {
		m.diags.Warn(diag.Overflow, at, "value %d does not fit into %d-byte %s integer, stored as %d",
			value, width, signedness(signed), stored)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(stored))
	m.put(addr, buf[:width])
	return stored, nil
}

// GetScalar loads an integer of width bytes from addr. Signed values are sign
// extended. Reading a cell which is not allocated is an error.
func (m *Memory) GetScalar(addr uint64, width int, signed bool) (int64, error) {
	if err := checkWidth(width); err != nil {
		return 0, err
	}
	if err := m.checkMapped(addr, width); err != nil {
		return 0, err
	}
	var buf [8]byte
	m.get(addr, buf[:width])
	u := binary.LittleEndian.Uint64(buf[:])
	if signed && width < 8 {
		shift := uint(64 - width*8)
		return int64(u<<shift) >> shift, nil
	}
	return int64(u), nil
}

// SetFloat stores an IEEE-754 float (width 4) or double (width 8).
func (m *Memory) SetFloat(addr uint64, f float64, width int) error {
	if width != 4 && width != 8 {
		return fmt.Errorf("invalid float width %d", width)
	}
	if err := m.checkMapped(addr, width); err != nil {
		return err
	}
	var buf [8]byte
	if width == 4 {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(f)))
	} else {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
	}
	m.put(addr, buf[:width])
	return nil
}

// GetFloat loads an IEEE-754 float (width 4) or double (width 8).
func (m *Memory) GetFloat(addr uint64, width int) (float64, error) {
	if width != 4 && width != 8 {
		return 0, fmt.Errorf("invalid float width %d", width)
	}
	if err := m.checkMapped(addr, width); err != nil {
		return 0, err
	}
	var buf [8]byte
	m.get(addr, buf[:width])
	if width == 4 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[:]))), nil
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

// ReadBytes returns n bytes starting at addr.
func (m *Memory) ReadBytes(addr uint64, n int) ([]byte, error) {
	if err := m.checkMapped(addr, n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	m.get(addr, b)
	return b, nil
}

// WriteBytes stores b starting at addr.
func (m *Memory) WriteBytes(addr uint64, b []byte) error {
	if err := m.checkMapped(addr, len(b)); err != nil {
		return err
	}
	m.put(addr, b)
	return nil
}

// Copy copies n bytes from src to dst. The ranges may overlap.
func (m *Memory) Copy(dst, src uint64, n int) error {
	b, err := m.ReadBytes(src, n)
	if err != nil {
		return err
	}
	return m.WriteBytes(dst, b)
}

// CString reads a NUL-terminated string starting at addr.
func (m *Memory) CString(addr uint64) (string, error) {
	var s []byte
	for a := addr; ; a++ {
		c, ok := m.cells[a]
		if !ok {
			return "", unmapped(a)
		}
		if c.b == 0 {
			return string(s), nil
		}
		s = append(s, c.b)
	}
}

func (m *Memory) put(addr uint64, b []byte) {
	for i, x := range b {
		a := addr + uint64(i)
		c := m.cells[a]
		c.b = x
		m.cells[a] = c
	}
}

func (m *Memory) get(addr uint64, b []byte) {
	for i := range b {
		b[i] = m.cells[addr+uint64(i)].b
	}
}

func signedness(signed bool) string {
	if signed {
		return "signed"
	}
	return "unsigned"
}
