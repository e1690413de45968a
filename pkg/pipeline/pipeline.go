// Package pipeline wires the inliner, compiler, module linker, and
// interpreter into the single sequence described by the system overview:
// inline, compile each surviving top-level function, link their kernel
// tables, and hand the result to a fresh VM. cmd/tvmrun and integration
// tests share this instead of each re-deriving the wiring order.
package pipeline

import (
	"github.com/arborlang/tvmcore/pkg/bytecode"
	"github.com/arborlang/tvmcore/pkg/inline"
	"github.com/arborlang/tvmcore/pkg/ir"
	"github.com/arborlang/tvmcore/pkg/kernel"
	"github.com/arborlang/tvmcore/pkg/link"
	"github.com/arborlang/tvmcore/pkg/vm"
	"github.com/arborlang/tvmcore/pkg/vmerr"
)

// Result is a fully linked module ready for repeated vm.VM.Invoke calls,
// plus the global-name-to-function-index mapping the caller needs to invoke
// a specific entry point.
type Result struct {
	VM      *vm.VM
	Indices map[string]int
}

// Build runs a module through the full pipeline for target, using oracle
// for kernel lowering and backend build. stackSize and frameStackSize set
// the resulting VM's initial stack capacities (pkg/config's StackSize and
// FrameStackSize); pass 0 for either to use vm.New's defaults.
func Build(m *ir.Module, oracle kernel.Oracle, target kernel.Target, stackSize, frameStackSize int) (*Result, error) {
	inlined := inline.Module(m)

	compiler := &bytecode.Compiler{Oracle: oracle, Target: target}
	indices := make(map[string]int)
	var compiled []link.CompiledFunction

	for _, name := range inlined.Names() {
		fn, _ := inlined.Get(name)
		if fn.Primitive {
			// Primitive functions never survive as call targets after
			// inlining; they exist only to be pushed into call sites.
			continue
		}
		cfn, kernels, err := compiler.Compile(fn)
		if err != nil {
			return nil, vmerr.Wrap(vmerr.InvariantViolation, err, "compiling %q", name)
		}
		indices[name] = len(compiled)
		compiled = append(compiled, link.CompiledFunction{Function: cfn, Kernels: kernels})
	}

	linker := &link.Linker{Oracle: oracle, Target: target}
	functions, packed, err := linker.Link(compiled)
	if err != nil {
		return nil, err
	}

	return &Result{VM: vm.NewWithConfig(functions, packed, stackSize, frameStackSize), Indices: indices}, nil
}
