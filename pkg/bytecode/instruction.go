package bytecode

import "github.com/arborlang/tvmcore/pkg/ir"

// Instruction is a tagged variant over the six opcodes. Exactly the fields
// relevant to Op are meaningful; the rest are zero. This core does not
// serialize bytecode, so Instruction carries its operands as ordinary typed
// fields rather than a packed byte encoding.
type Instruction struct {
	Op Opcode

	// Push
	Slot int

	// AllocTensor. Shape is owned exclusively by this instruction: Clone
	// deep-copies it so two instructions never alias the same backing
	// array.
	Shape []int64
	DType ir.DType

	// InvokePacked
	PackedIndex int
	Arity       int

	// If
	TrueOffset  int
	FalseOffset int

	// Invoke
	FuncIndex int
}

// Push builds a Push instruction reading the given bp-relative stack slot.
func Push(slot int) Instruction {
	return Instruction{Op: OpPush, Slot: slot}
}

// Ret builds a Ret instruction.
func Ret() Instruction {
	return Instruction{Op: OpRet}
}

// AllocTensor builds an AllocTensor instruction for the given shape and
// dtype. shape is copied so the caller's slice may be reused.
func AllocTensor(shape []int64, dtype ir.DType) Instruction {
	return Instruction{Op: OpAllocTensor, Shape: append([]int64(nil), shape...), DType: dtype}
}

// InvokePacked builds an InvokePacked instruction dispatching kernel table
// entry i with the given arity (inputs plus output).
func InvokePacked(i, arity int) Instruction {
	return Instruction{Op: OpInvokePacked, PackedIndex: i, Arity: arity}
}

// If builds a conditional branch instruction with the given offsets.
func If(trueOffset, falseOffset int) Instruction {
	return Instruction{Op: OpIf, TrueOffset: trueOffset, FalseOffset: falseOffset}
}

// Invoke builds an Invoke instruction. Reserved: executing it is always a
// runtime-check failure in this core (see design notes on cross-function
// calls).
func Invoke(funcIndex int) Instruction {
	return Instruction{Op: OpInvoke, FuncIndex: funcIndex}
}

// Clone returns a deep copy of instr, duplicating AllocTensor's shape
// buffer so the clone owns independent storage.
func (instr Instruction) Clone() Instruction {
	out := instr
	if instr.Shape != nil {
		out.Shape = append([]int64(nil), instr.Shape...)
	}
	return out
}
