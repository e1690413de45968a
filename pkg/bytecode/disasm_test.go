package bytecode

import (
	"reflect"
	"testing"

	"github.com/arborlang/tvmcore/pkg/ir"
)

func TestTextualFormRoundTrips(t *testing.T) {
	cases := []Instruction{
		Push(3),
		Ret(),
		AllocTensor([]int64{2, 2}, ir.Float32),
		AllocTensor(nil, ir.Bool32),
		InvokePacked(1, 3),
		If(1, 4),
		Invoke(2),
	}

	for _, want := range cases {
		text := Disassemble(want)
		got, err := ParseInstruction(text)
		if err != nil {
			t.Fatalf("ParseInstruction(%q): %v", text, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip mismatch for %q: got %+v, want %+v", text, got, want)
		}
	}
}

func TestDisassembleAllocTensorScalar(t *testing.T) {
	instr := AllocTensor(nil, ir.Bool32)
	if got, want := Disassemble(instr), "alloc_tensor() bool32"; got != want {
		t.Fatalf("Disassemble = %q, want %q", got, want)
	}
}
