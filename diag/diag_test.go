package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestBagQueries(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.diag")
	defer teardown()
	//
	bag := NewBag()
	bag.Warn(Overflow, csim.At(1, 1), "value %d truncated", 256)
	bag.AddError(Semanticf(Undeclared, csim.At(2, 5), "undeclared identifier %q", "y"))
	bag.Warn(Uninitialized, csim.At(3, 1), "read of uninitialized x")
	bag.AddError(Runtimef(DivisionByZero, csim.At(4, 9), "division by zero"))
	if bag.Len() != 4 {
		t.Fatalf("expected 4 diagnostics, got %d", bag.Len())
	}
	if len(bag.Warnings()) != 2 || len(bag.Errors()) != 2 {
		t.Errorf("expected 2 warnings and 2 errors")
	}
	if f := bag.Fatal(); f == nil || f.Code != DivisionByZero {
		t.Errorf("expected fatal division by zero, got %v", f)
	}
	if len(bag.WithCode(Overflow)) != 1 {
		t.Errorf("expected one overflow warning")
	}
	drained := bag.Drain()
	if len(drained) != 4 || bag.Len() != 0 {
		t.Errorf("drain should return all and empty the bag")
	}
}

func TestErrorsAs(t *testing.T) {
	err := fmt.Errorf("running main: %w", Runtimef(Unmapped, csim.At(7, 3), "read of unmapped address 0x%x", 0x42))
	var rterr *RuntimeError
	if !errors.As(err, &rterr) {
		t.Fatalf("expected runtime error to be found in chain")
	}
	if rterr.Loc.Line != 7 || rterr.Code != Unmapped {
		t.Errorf("unexpected runtime error %v", rterr)
	}
	var semerr *SemanticError
	if errors.As(err, &semerr) {
		t.Errorf("runtime error must not match semantic error")
	}
	if rterr.Error() != "7:3: runtime error: read of unmapped address 0x42 [unmapped]" {
		t.Errorf("unexpected message %q", rterr.Error())
	}
}
