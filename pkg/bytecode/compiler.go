package bytecode

import (
	"github.com/arborlang/tvmcore/pkg/ir"
	"github.com/arborlang/tvmcore/pkg/kernel"
	"github.com/arborlang/tvmcore/pkg/vmerr"
)

// maxArity is the hard cap on InvokePacked's arity operand: the output slot
// plus inputs are packed into a fixed-size kernel-argument buffer by
// convention. Raising it means widening that buffer.
const maxArity = 10

// Compiler translates a single, already-inlined IR function into a compiled
// Function plus the list of kernels its calls reference. It assumes the
// primitive-in-operator-position invariant the inliner establishes; a Call
// whose operator is anything else is an invariant-violation error, not a
// panic.
type Compiler struct {
	Oracle kernel.Oracle
	Target kernel.Target
}

// state is the per-function compilation state described in the design: an
// instruction buffer, a variable-to-slot map, a slot counter, and the local
// kernel list this function's calls accumulate. stackIndex tracks the
// bp-relative index the next let-bound value will occupy at runtime; it
// relies on every compileExpr call leaving exactly one net new value on top
// of the stack by the time its continuation runs, which holds for Push,
// Call, and If but is not verified for a Let whose value is itself an If
// (the continuation would run once per branch against a shared, mutated
// state) — no concrete scenario this core targets nests them that way.
type state struct {
	code       []Instruction
	varMap     map[ir.Variable]int
	stackIndex int
	kernels    []kernel.Kernel
}

// cont is what to compile immediately after an expression's value has been
// left on top of the stack. This instruction set has no unconditional jump,
// so a conditional's continuation - whatever code was going to run after
// the If as a whole - has to be compiled once per branch rather than once
// after both; cont is how that duplication threads through compileExpr
// without every call site needing to know about it.
type cont func(*state) error

func noop(*state) error { return nil }

// Compile compiles fn, which must be the outermost function literal (never
// itself nested inside another Compile call). Nested function literals
// encountered while walking the body are rejected.
func (c *Compiler) Compile(fn *ir.Function) (*Function, []kernel.Kernel, error) {
	if fn.Primitive {
		return nil, nil, vmerr.New(vmerr.InvariantViolation, "cannot compile a primitive function directly")
	}

	st := &state{varMap: make(map[ir.Variable]int, len(fn.Params))}
	for _, p := range fn.Params {
		st.varMap[p] = st.stackIndex
		st.stackIndex++
	}

	emitRet := func(st *state) error {
		st.code = append(st.code, Ret())
		return nil
	}
	if err := c.compileExpr(st, fn.Body, emitRet); err != nil {
		return nil, nil, err
	}

	return &Function{ParamCount: len(fn.Params), Code: st.code}, st.kernels, nil
}

func (c *Compiler) compileExpr(st *state, e ir.Expr, k cont) error {
	switch n := e.(type) {
	case ir.VarExpr:
		slot, ok := st.varMap[n.Var]
		if !ok {
			return vmerr.New(vmerr.InvariantViolation, "unknown variable %s", n.Var)
		}
		st.code = append(st.code, Push(slot))
		return k(st)

	case ir.If:
		return c.compileIf(st, n, k)

	case ir.Call:
		return c.compileCall(st, n, k)

	case ir.Let:
		return c.compileExpr(st, n.Value, func(st *state) error {
			slot := st.stackIndex
			st.stackIndex++
			st.varMap[n.Var] = slot
			return c.compileExpr(st, n.Body, k)
		})

	case *ir.Function:
		return vmerr.New(vmerr.InvariantViolation, "nested function literal")

	default:
		// ir.GlobalVar and anything else reaching the compiler outside a
		// normalized form: global-name calls are not yet supported (see the
		// Invoke opcode's reserved status).
		return vmerr.New(vmerr.InvariantViolation, "expression %T outside normalized form", e)
	}
}

// compileIf compiles the condition, then each branch followed by its own
// copy of k. true_offset is always 1 (the true branch immediately follows
// the If); false_offset skips the true branch and its copy of k, landing on
// the false branch's first instruction.
func (c *Compiler) compileIf(st *state, n ir.If, k cont) error {
	if err := c.compileExpr(st, n.Cond, noop); err != nil {
		return err
	}

	p := len(st.code)
	st.code = append(st.code, If(0, 0)) // placeholder, back-patched below

	if err := c.compileExpr(st, n.True, k); err != nil {
		return err
	}
	q := len(st.code)

	if err := c.compileExpr(st, n.False, k); err != nil {
		return err
	}

	st.code[p] = If(1, q-p)
	return nil
}

// compileCall compiles arguments left to right via compileArgs, then the
// result allocation and kernel dispatch, then k.
func (c *Compiler) compileCall(st *state, call ir.Call, k cont) error {
	prim, ok := call.Op.(*ir.Function)
	if !ok || !prim.Primitive {
		return vmerr.New(vmerr.InvariantViolation, "call operator is not a primitive after inlining")
	}

	return c.compileArgs(st, call.Args, 0, func(st *state) error {
		tt, ok := call.Checked.(ir.TensorType)
		if !ok {
			return vmerr.New(vmerr.InvariantViolation, "call result type is not a tensor")
		}

		arity := len(prim.Params) + 1
		if arity >= maxArity {
			return vmerr.New(vmerr.CapacityLimit, "invoke_packed arity %d reaches the cap of %d", arity, maxArity)
		}

		st.code = append(st.code, AllocTensor(tt.Shape, tt.DType))

		kernels, err := c.Oracle.Lower(prim, c.Target)
		if err != nil {
			return vmerr.Wrap(vmerr.BackendFailure, err, "lowering primitive for target %s", c.Target)
		}
		if len(kernels) != 1 {
			return vmerr.New(vmerr.BackendFailure, "kernel oracle returned %d kernels, want exactly 1", len(kernels))
		}

		idx := len(st.kernels)
		st.kernels = append(st.kernels, kernels[0])
		st.code = append(st.code, InvokePacked(idx, arity))
		return k(st)
	})
}

// compileArgs compiles call.Args[i:] left to right, each argument's
// continuation being "compile the next argument", so a conditional
// appearing as an argument still duplicates correctly into the remaining
// arguments plus the eventual AllocTensor/InvokePacked/k.
func (c *Compiler) compileArgs(st *state, args []ir.Expr, i int, k cont) error {
	if i == len(args) {
		return k(st)
	}
	return c.compileExpr(st, args[i], func(st *state) error {
		return c.compileArgs(st, args, i+1, k)
	})
}
