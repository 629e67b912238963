package interp

import (
	"fmt"
	"math"
	"strings"

	"github.com/cnf/structhash"
	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/memory"
	"github.com/npillmayer/csim/runtime"
	"github.com/npillmayer/schuko/tracing"
	"gopkg.in/yaml.v3"
)

// maxElements limits the number of array elements decoded for a record.
const maxElements = 16

// Snapshot is a read-only view of the state of a program, taken between
// steps.
type Snapshot struct {
	Step        uint64        `yaml:"step" hash:"-"`
	State       string        `yaml:"state" hash:"-"`
	Location    csim.Location `yaml:"-" hash:"-"`
	At          string        `yaml:"at" hash:"-"`
	Frames      []FrameView   `yaml:"frames"`
	Heap        []Record      `yaml:"heap,omitempty"`
	Data        []Record      `yaml:"data,omitempty"`
	Fingerprint string        `yaml:"fingerprint" hash:"-"`
}

// FrameView shows a frame of the call stack.
type FrameView struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"`
	Function string   `yaml:"function,omitempty"`
	Records  []Record `yaml:"records,omitempty"`
}

// Record shows a single object in memory.
type Record struct {
	Name        string `yaml:"name"`
	Address     uint64 `yaml:"address"`
	Size        int    `yaml:"size"`
	Region      string `yaml:"region"`
	Type        string `yaml:"type"`
	Value       string `yaml:"value"`
	Indirection int    `yaml:"indirection,omitempty"`
	Dims        []int  `yaml:"dims,flow,omitempty"`
	Refs        int    `yaml:"refs"`
	Freed       bool   `yaml:"freed,omitempty"`
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s @%#x = %s", r.Type, r.Name, r.Address, r.Value)
}

// Snapshot takes a view of frames, heap objects and static data. Before the
// first Parse it returns an empty snapshot.
func (it *Interpreter) Snapshot() *Snapshot {
	s := &Snapshot{
		Step:     it.steps,
		State:    it.state.String(),
		Location: it.loc,
		At:       it.loc.String(),
	}
	if it.rt == nil {
		return s
	}
	for _, f := range it.rt.Stack.Frames() {
		s.Frames = append(s.Frames, FrameView{
			Name:     f.Name,
			Kind:     f.Kind.String(),
			Function: f.Function,
			Records:  it.records(f),
		})
	}
	s.Heap = it.heapRecords()
	s.Data = it.records(it.rt.Stack.Data())
	hash, err := structhash.Hash(s, 1)
	if err != nil {
		tracer().Errorf("cannot fingerprint snapshot: %v", err)
	}
	s.Fingerprint = hash
	return s
}

// Find returns the record of the innermost visible object with a given name.
func (s *Snapshot) Find(name string) (Record, bool) {
	for i := len(s.Frames) - 1; i >= 0; i-- {
		for _, r := range s.Frames[i].Records {
			if r.Name == name {
				return r, true
			}
		}
	}
	return Record{}, false
}

// YAML marshals the snapshot.
func (s *Snapshot) YAML() (string, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("cannot marshal snapshot: %w", err)
	}
	return string(b), nil
}

// Dump traces the snapshot on debug level.
func (s *Snapshot) Dump() {
	tracing.With(tracer()).Dump("snapshot", s)
}

func (it *Interpreter) records(f *runtime.Frame) []Record {
	var recs []Record
	f.Symbols().Each(func(sym *runtime.Symbol) {
		if !sym.IsObject() || sym.Type == nil {
			return
		}
		recs = append(recs, it.record(sym.Name, sym.Address, sym.Type))
	})
	return recs
}

func (it *Interpreter) heapRecords() []Record {
	var recs []Record
	heap := it.rt.Stack.Heap().Symbols()
	for _, b := range it.mem.Blocks() {
		t := &ctype.Type{Kind: ctype.Char, Unsigned: true, Dims: []int{b.Size}}
		if sym := heap.Lookup(heapName(b.Addr), runtime.Ordinary); sym != nil && sym.Type != nil {
			t = sym.Type
		}
		r := it.record(heapName(b.Addr), b.Addr, t)
		r.Freed = b.Freed
		recs = append(recs, r)
	}
	return recs
}

func (it *Interpreter) record(name string, addr uint64, t *ctype.Type) Record {
	return Record{
		Name:        name,
		Address:     addr,
		Size:        t.Size(),
		Region:      it.mem.RegionOf(addr).String(),
		Type:        t.String(),
		Value:       it.decode(addr, t),
		Indirection: t.Pointer,
		Dims:        t.Dims,
		Refs:        it.mem.References(addr),
	}
}

// decode renders the object of type t at addr. Unmapped cells show as "?".
func (it *Interpreter) decode(addr uint64, t *ctype.Type) string {
	switch {
	case t.IsArray():
		n := t.Dims[0]
		if n < 0 {
			return "[]"
		}
		elem := t.Elem()
		if elem.Kind == ctype.Char && !elem.Unsigned && elem.Pointer == 0 && len(t.Dims) == 1 {
			if s, ok := it.chars(addr, n); ok {
				return s
			}
		}
		var parts []string
		for i := 0; i < n && i < maxElements; i++ {
			parts = append(parts, it.decode(addr+uint64(i*elem.Size()), elem))
		}
		if n > maxElements {
			parts = append(parts, "…")
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case t.IsRecord():
		var parts []string
		for _, f := range t.Record.Fields {
			parts = append(parts, f.Name+": "+it.decode(addr+uint64(f.Offset), f.Type))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if !it.mapped(addr, t.Size()) {
		return "?"
	}
	v, err := it.load(addr, t)
	if err != nil {
		return "?"
	}
	switch {
	case t.IsPointer():
		if v.addr() == 0 {
			return "NULL"
		}
		return fmt.Sprintf("%#x", v.addr())
	case t.IsFloat():
		if math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return fmt.Sprintf("%v", v.f)
		}
		return fmt.Sprintf("%g", v.f)
	case t.Kind == ctype.Char && !t.Unsigned && v.i >= 32 && v.i < 127:
		return fmt.Sprintf("%d '%c'", v.i, rune(v.i))
	}
	return fmt.Sprintf("%d", v.i)
}

// chars renders a char array holding a terminated string as a quoted string.
func (it *Interpreter) chars(addr uint64, n int) (string, bool) {
	b, err := it.mem.ReadBytes(addr, n)
	if err != nil {
		return "", false
	}
	for i, c := range b {
		if c == 0 {
			return fmt.Sprintf("%q", string(b[:i])), true
		}
	}
	return "", false
}

func (it *Interpreter) mapped(addr uint64, n int) bool {
	for i := 0; i < n; i++ {
		if !it.mem.IsMapped(addr + uint64(i)) {
			return false
		}
	}
	return true
}

// Memory gives read access to the simulated memory, or nil before Parse.
func (it *Interpreter) Memory() *memory.Memory {
	return it.mem
}

// Runtime gives read access to the call stack and scopes, or nil before Parse.
func (it *Interpreter) Runtime() *runtime.Runtime {
	return it.rt
}
