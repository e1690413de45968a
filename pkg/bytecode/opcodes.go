package bytecode

import "fmt"

// Opcode is one of the six instructions the compiler emits and the
// interpreter dispatches. Unlike a byte-encoded instruction set, each
// opcode's operands live as typed fields on Instruction rather than as a
// fixed-width operand stream, so OperandLen has no analogue here.
type Opcode byte

const (
	OpPush Opcode = iota
	OpRet
	OpAllocTensor
	OpInvokePacked
	OpIf
	OpInvoke
)

// opcodeNames backs Opcode.String and the disassembler's mnemonic table.
var opcodeNames = map[Opcode]string{
	OpPush:         "push",
	OpRet:          "ret",
	OpAllocTensor:  "alloc_tensor",
	OpInvokePacked: "invoke_packed",
	OpIf:           "if",
	OpInvoke:       "invoke",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", byte(op))
}

// StackEffect returns the net stack-height change a static simulation
// should apply for op: the same per-opcode rules SimulateStackHeight applies.
// InvokePacked's effect depends on its arity operand and is not representable
// as a constant; callers compute it from the instruction directly.
func (op Opcode) StackEffect() (delta int, opcodeDependent bool) {
	switch op {
	case OpPush, OpAllocTensor:
		return 1, false
	case OpIf:
		return -1, false
	case OpRet, OpInvoke:
		return 0, false
	case OpInvokePacked:
		return 0, true
	default:
		return 0, false
	}
}
