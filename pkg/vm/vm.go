package vm

import (
	"github.com/google/uuid"

	"github.com/arborlang/tvmcore/pkg/bytecode"
	"github.com/arborlang/tvmcore/pkg/kernel"
	"github.com/arborlang/tvmcore/pkg/tensor"
	"github.com/arborlang/tvmcore/pkg/vmerr"
)

// VM owns the function table, kernel table, value stack, frame stack, and
// the current program counter/base pointer/function index/code pointer. It
// is single-threaded and non-reentrant: Invoke runs the dispatch loop to
// completion on the calling goroutine before returning.
type VM struct {
	Functions []*bytecode.Function
	Kernels   []kernel.PackedFunc

	// Trace, if non-nil, receives one event per dispatched instruction.
	Trace kernel.TraceSink

	stack     []Object
	frames    []Frame
	pc        int
	bp        int
	funcIndex int
	code      []bytecode.Instruction
}

// defaultStackSize and defaultFrameStackSize are the value-stack and
// frame-stack capacities New preallocates when NewWithConfig isn't used to
// supply a tuned size. Both stacks still grow past this via append; it is
// only the initial capacity, matching the teacher's own fixed-size initial
// stack that grows on overflow rather than being preallocated per call.
const (
	defaultStackSize      = 1024
	defaultFrameStackSize = 256
)

// New builds a VM over an already-linked function table and kernel table,
// with a default initial stack capacity. See pkg/link for producing the
// function and kernel tables from an inlined, compiled module.
func New(functions []*bytecode.Function, kernels []kernel.PackedFunc) *VM {
	return NewWithConfig(functions, kernels, defaultStackSize, defaultFrameStackSize)
}

// NewWithConfig builds a VM like New, but preallocates the value stack and
// frame stack to stackSize and frameStackSize respectively (each falling
// back to its default when zero or negative), per pkg/config's StackSize
// and FrameStackSize tunables.
func NewWithConfig(functions []*bytecode.Function, kernels []kernel.PackedFunc, stackSize, frameStackSize int) *VM {
	if stackSize <= 0 {
		stackSize = defaultStackSize
	}
	if frameStackSize <= 0 {
		frameStackSize = defaultFrameStackSize
	}
	return &VM{
		Functions: functions,
		Kernels:   kernels,
		stack:     make([]Object, 0, stackSize),
		frames:    make([]Frame, 0, frameStackSize),
	}
}

// Invoke runs the function at funcIndex against args, returning its single
// tensor result. invocation names this call for trace events; pass "" to
// have one generated, so concurrent callers sharing a Trace sink still get
// distinguishable event streams.
func (vm *VM) Invoke(invocation string, funcIndex int, args []tensor.Value) (tensor.Value, error) {
	if invocation == "" {
		invocation = uuid.NewString()
	}
	if funcIndex < 0 || funcIndex >= len(vm.Functions) {
		return tensor.Value{}, vmerr.New(vmerr.RuntimeCheck, "function index %d out of range", funcIndex)
	}
	fn := vm.Functions[funcIndex]
	if len(args) != fn.ParamCount {
		return tensor.Value{}, vmerr.New(vmerr.InvariantViolation, "function %d expects %d arguments, got %d", funcIndex, fn.ParamCount, len(args))
	}

	stackStart := len(vm.frames)
	entryStackLen := len(vm.stack)

	vm.stack = append(vm.stack, Object{}) // reserved return slot
	for _, a := range args {
		vm.stack = append(vm.stack, TensorObject(a))
	}

	vm.frames = append(vm.frames, Frame{
		ReturnPC:       vm.pc + 1,
		SavedBP:        vm.bp,
		SavedFuncIndex: vm.funcIndex,
		ArgCount:       len(args),
		SavedCode:      vm.code,
	})

	vm.code = fn.Code
	vm.pc = 0
	vm.bp = len(vm.stack) - fn.ParamCount
	vm.funcIndex = funcIndex

	if err := vm.run(invocation, stackStart); err != nil {
		return tensor.Value{}, err
	}

	// The outermost Ret leaves [reserved slot, result] on the stack (it only
	// collapses down to its own call frame, not back to the depth Invoke
	// found the stack at). Pop the result and restore that entry depth so a
	// second Invoke on the same VM doesn't leak two slots per call.
	result := vm.stack[len(vm.stack)-1].Tensor
	vm.stack = vm.stack[:entryStackLen]
	return result, nil
}

// run executes the dispatch loop until the frame stack returns to
// stackStart, meaning the outermost Ret has restored the sentinel depth
// Invoke recorded before pushing its own frame.
func (vm *VM) run(invocation string, stackStart int) error {
	for {
		if vm.pc < 0 || vm.pc >= len(vm.code) {
			return vmerr.New(vmerr.RuntimeCheck, "pc %d out of range for function %d", vm.pc, vm.funcIndex)
		}
		instr := vm.code[vm.pc]

		if vm.Trace != nil {
			if err := vm.Trace.Record(kernel.TraceEvent{
				Invocation: invocation,
				PC:         vm.pc,
				FuncIndex:  vm.funcIndex,
				Opcode:     bytecode.Disassemble(instr),
				StackDepth: len(vm.stack),
			}); err != nil {
				return err
			}
		}

		switch instr.Op {
		case bytecode.OpPush:
			slot := vm.bp + instr.Slot
			if slot < 0 || slot >= len(vm.stack) {
				return vmerr.New(vmerr.RuntimeCheck, "push: slot %d out of range (stack size %d)", slot, len(vm.stack))
			}
			vm.stack = append(vm.stack, vm.stack[slot].Clone())
			vm.pc++

		case bytecode.OpAllocTensor:
			desc := tensor.Descriptor{Shape: instr.Shape, DType: instr.DType, Device: tensor.CPU}
			vm.stack = append(vm.stack, TensorObject(tensor.Alloc(desc)))
			vm.pc++

		case bytecode.OpInvokePacked:
			if err := vm.dispatchPacked(instr); err != nil {
				return err
			}
			vm.pc++

		case bytecode.OpIf:
			branch, err := vm.popCondition()
			if err != nil {
				return err
			}
			if branch {
				vm.pc += instr.TrueOffset
			} else {
				vm.pc += instr.FalseOffset
			}

		case bytecode.OpRet:
			done, err := vm.ret(stackStart)
			if err != nil {
				return err
			}
			if done {
				return nil
			}

		case bytecode.OpInvoke:
			return vmerr.New(vmerr.RuntimeCheck, "invoke opcode reached: cross-function calls are unimplemented in this core")

		default:
			return vmerr.New(vmerr.InvariantViolation, "unknown opcode %v", instr.Op)
		}
	}
}

func (vm *VM) dispatchPacked(instr bytecode.Instruction) error {
	if instr.PackedIndex < 0 || instr.PackedIndex >= len(vm.Kernels) {
		return vmerr.New(vmerr.BackendFailure, "packed index %d out of range", instr.PackedIndex)
	}
	n := instr.Arity
	if n <= 0 || n > len(vm.stack) {
		return vmerr.New(vmerr.RuntimeCheck, "invoke_packed: arity %d invalid for stack size %d", n, len(vm.stack))
	}

	start := len(vm.stack) - n
	args := make([]tensor.Value, n)
	for i := 0; i < n; i++ {
		if vm.stack[start+i].Kind != ObjectTensor {
			return vmerr.New(vmerr.RuntimeCheck, "invoke_packed: argument %d is not a tensor", i)
		}
		args[i] = vm.stack[start+i].Tensor
	}

	fn := vm.Kernels[instr.PackedIndex]
	if fn == nil {
		return vmerr.New(vmerr.BackendFailure, "no packed callable registered at index %d", instr.PackedIndex)
	}
	if err := fn(args); err != nil {
		return vmerr.Wrap(vmerr.BackendFailure, err, "kernel %d failed", instr.PackedIndex)
	}

	// The kernel wrote its result into args[n-1] (the AllocTensor output).
	// Collapse the stack: the output replaces the first argument slot, and
	// everything above it is dropped.
	vm.stack[start] = TensorObject(args[n-1])
	vm.stack = vm.stack[:start+1]
	return nil
}

func (vm *VM) popCondition() (bool, error) {
	if len(vm.stack) == 0 {
		return false, vmerr.New(vmerr.RuntimeCheck, "if: empty stack")
	}
	top := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]

	if top.Kind != ObjectTensor || !top.Tensor.Descriptor.IsBoolScalar() {
		return false, vmerr.New(vmerr.RuntimeCheck, "if: condition is not a boolean scalar tensor")
	}
	return top.Tensor.ReadBoolScalar(), nil
}

// ret pops the current frame and restores the caller's execution state. It
// reports done=true when the popped frame count equals stackStart, meaning
// this Ret matched the VM's entry frame depth and the dispatch loop should
// exit.
func (vm *VM) ret(stackStart int) (done bool, err error) {
	if len(vm.frames) == 0 {
		return false, vmerr.New(vmerr.RuntimeCheck, "ret: empty frame stack")
	}
	fr := vm.frames[len(vm.frames)-1]

	resultSlot := len(vm.stack) - fr.ArgCount - 1
	if resultSlot < 0 || resultSlot >= len(vm.stack) {
		return false, vmerr.New(vmerr.RuntimeCheck, "ret: result slot %d out of range", resultSlot)
	}
	vm.stack[resultSlot] = vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:resultSlot+1]

	vm.bp = fr.SavedBP
	vm.pc = fr.ReturnPC
	vm.funcIndex = fr.SavedFuncIndex
	vm.code = fr.SavedCode
	vm.frames = vm.frames[:len(vm.frames)-1]

	return len(vm.frames) == stackStart, nil
}
