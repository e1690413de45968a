package vm

import (
	"path/filepath"
	"testing"

	"github.com/arborlang/tvmcore/pkg/bytecode"
	"github.com/arborlang/tvmcore/pkg/fixture"
	"github.com/arborlang/tvmcore/pkg/kernel"
	"github.com/arborlang/tvmcore/pkg/tensor"
)

// TestInvokeSingleCallFixture compiles and runs the "single_call" scenario
// from the shared txtar fixture archive, complementing the hand-built IR
// literal in TestPipelineThroughCompiler.
func TestInvokeSingleCallFixture(t *testing.T) {
	archive, err := fixture.LoadArchive(filepath.Join("testdata", "scenarios.txtar"))
	if err != nil {
		t.Fatalf("LoadArchive: %v", err)
	}

	compiler := &bytecode.Compiler{Oracle: literalOracle{}, Target: kernel.Target{Triple: "test"}}
	compiled, kernels, err := compiler.Compile(archive["single_call"])
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(kernels) != 1 {
		t.Fatalf("want 1 kernel, got %d", len(kernels))
	}

	machine := New([]*bytecode.Function{compiled}, []kernel.PackedFunc{addKernel})
	out, err := machine.Invoke("add", 0, []tensor.Value{f32Scalar(10), f32Scalar(32)})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := readF32Scalar(out); got != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}
