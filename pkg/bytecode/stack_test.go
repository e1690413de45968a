package bytecode

import (
	"testing"

	"github.com/arborlang/tvmcore/pkg/ir"
)

func TestSimulateStackHeightIdentity(t *testing.T) {
	fn := &Function{ParamCount: 1, Code: []Instruction{Push(0), Ret()}}
	height, err := SimulateStackHeight(fn)
	if err != nil {
		t.Fatalf("SimulateStackHeight: %v", err)
	}
	if height != 2 {
		t.Fatalf("height = %d, want 2 (1 param + 1 pushed value)", height)
	}
}

func TestSimulateStackHeightSingleCall(t *testing.T) {
	fn := &Function{
		ParamCount: 2,
		Code:       []Instruction{Push(0), Push(1), AllocTensor([]int64{4}, ir.Float32), InvokePacked(0, 3), Ret()},
	}
	height, err := SimulateStackHeight(fn)
	if err != nil {
		t.Fatalf("SimulateStackHeight: %v", err)
	}
	// 2 params + 2 pushes + 1 alloc = 5, then invoke_packed(arity 3) nets -2 -> 3.
	if height != 3 {
		t.Fatalf("height = %d, want 3", height)
	}
}

func TestSimulateStackHeightNeverNegative(t *testing.T) {
	fn := &Function{ParamCount: 0, Code: []Instruction{InvokePacked(0, 2), Ret()}}
	if _, err := SimulateStackHeight(fn); err == nil {
		t.Fatal("expected an error for a stack height that goes negative")
	}
}
