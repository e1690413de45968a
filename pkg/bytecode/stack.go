package bytecode

import "github.com/arborlang/tvmcore/pkg/vmerr"

// SimulateStackHeight statically replays fn's stack-height changes using
// the fixed per-opcode rules (Push/AllocTensor +1, InvokePacked net
// -(arity-1), If -1, Ret unchanged) without executing any kernel. It never
// goes negative for a well-formed function.
//
// Because a conditional's continuation is compiled once per branch (see
// compileIf), a Ret may appear more than once in a function's code, one per
// control-flow path reaching it; this simulation walks the flat
// instruction array as written and does not attempt to isolate individual
// paths, so it reports the height reached after the array's last
// instruction, counting from ParamCount. For straight-line code that is
// ParamCount+1 (the arguments plus the one result); for code containing a
// conditional the flat walk also counts every other branch's instructions,
// so the reported height is larger than on any single path.
func SimulateStackHeight(fn *Function) (int, error) {
	height := fn.ParamCount
	for pc, instr := range fn.Code {
		switch instr.Op {
		case OpPush, OpAllocTensor:
			height++
		case OpInvokePacked:
			height -= instr.Arity - 1
		case OpIf:
			height--
		case OpRet, OpInvoke:
			// no static stack effect
		}
		if height < 0 {
			return 0, vmerr.New(vmerr.RuntimeCheck, "stack height went negative at pc %d", pc)
		}
	}
	return height, nil
}
