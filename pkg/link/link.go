// Package link implements the module linker: the step between per-function
// compilation and interpretation that concatenates every function's kernel
// list into a single module-wide kernel table, hands that table to the
// backend build collaborator once, and remaps each function's InvokePacked
// operands to index into the shared table.
package link

import (
	"github.com/arborlang/tvmcore/pkg/bytecode"
	"github.com/arborlang/tvmcore/pkg/kernel"
	"github.com/arborlang/tvmcore/pkg/vmerr"
)

// CompiledFunction pairs a compiled function with the kernel list its own
// InvokePacked instructions index into, as produced by bytecode.Compiler.
type CompiledFunction struct {
	Function *bytecode.Function
	Kernels  []kernel.Kernel
}

// Linker owns the backend build collaborator and target used to materialize
// a module's kernel table into packed callables. It is called exactly once
// per module, before any interpreter Invoke.
type Linker struct {
	Oracle kernel.Oracle
	Target kernel.Target
}

// Link concatenates compiled's per-function kernel lists into a module
// kernel table, remaps each function's InvokePacked indices to point into
// that table, and asks the backend build collaborator for the resulting
// packed callables in table order. The returned functions are independent
// copies; compiled's Function values are not mutated.
func (l *Linker) Link(compiled []CompiledFunction) ([]*bytecode.Function, []kernel.PackedFunc, error) {
	var table []kernel.Kernel
	functions := make([]*bytecode.Function, len(compiled))

	for i, cf := range compiled {
		offset := len(table)
		table = append(table, cf.Kernels...)
		functions[i] = &bytecode.Function{
			ParamCount: cf.Function.ParamCount,
			Code:       remap(cf.Function.Code, offset),
		}
	}

	native, err := l.Oracle.Build(table, l.Target)
	if err != nil {
		return nil, nil, vmerr.Wrap(vmerr.BackendFailure, err, "building native module for target %s", l.Target)
	}

	packed := make([]kernel.PackedFunc, len(table))
	for i, k := range table {
		fn, ok := native.Get(k.Name)
		if !ok {
			return nil, nil, vmerr.New(vmerr.BackendFailure, "native module has no callable named %q", k.Name)
		}
		packed[i] = fn
	}

	return functions, packed, nil
}

// remap returns a copy of code with every InvokePacked's PackedIndex shifted
// by offset, the function's position within the module kernel table.
func remap(code []bytecode.Instruction, offset int) []bytecode.Instruction {
	out := make([]bytecode.Instruction, len(code))
	for i, instr := range code {
		out[i] = instr.Clone()
		if out[i].Op == bytecode.OpInvokePacked {
			out[i].PackedIndex += offset
		}
	}
	return out
}
