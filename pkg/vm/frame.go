package vm

import "github.com/arborlang/tvmcore/pkg/bytecode"

// Frame is the caller-context record saved across a call so Ret can restore
// execution: a return program counter, a saved base pointer, the calling
// function's index, the argument count of the call that produced this
// frame, and the calling function's code pointer.
type Frame struct {
	ReturnPC       int
	SavedBP        int
	SavedFuncIndex int
	ArgCount       int
	SavedCode      []bytecode.Instruction
}
