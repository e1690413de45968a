package bytecode

import (
	"fmt"
	"testing"

	"github.com/arborlang/tvmcore/pkg/ir"
	"github.com/arborlang/tvmcore/pkg/kernel"
)

// stubOracle lowers any primitive to a single kernel named after its
// parameter count, and never needs Build since these tests only exercise
// the compiler.
type stubOracle struct{}

func (stubOracle) Lower(fn *ir.Function, target kernel.Target) ([]kernel.Kernel, error) {
	return []kernel.Kernel{{Name: fmt.Sprintf("kernel/%d", len(fn.Params))}}, nil
}

func (stubOracle) Build(kernels []kernel.Kernel, target kernel.Target) (kernel.NativeModule, error) {
	return nil, nil
}

func f32(dims ...int64) ir.TensorType {
	return ir.TensorType{Shape: dims, DType: ir.Float32}
}

func primitive(paramCount int, ret ir.Type) *ir.Function {
	params := make([]ir.Variable, paramCount)
	for i := range params {
		params[i] = ir.NewVariable(fmt.Sprintf("p%d", i))
	}
	return &ir.Function{Params: params, Ret: ret, Primitive: true}
}

func newCompiler() *Compiler {
	return &Compiler{Oracle: stubOracle{}, Target: kernel.Target{Triple: "test"}}
}

// TestIdentityCompiles covers scenario 1: fn(x) { x } compiles to push 0; ret.
func TestIdentityCompiles(t *testing.T) {
	x := ir.NewVariable("x")
	fn := &ir.Function{Params: []ir.Variable{x}, Body: ir.VarExpr{Var: x}, Ret: f32(2, 2)}

	compiled, kernels, err := newCompiler().Compile(fn)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(kernels) != 0 {
		t.Fatalf("expected no kernels, got %d", len(kernels))
	}
	want := []string{"push 0", "ret"}
	assertDisasm(t, compiled, want)
}

// TestSinglePrimitiveCall covers scenario 2.
func TestSinglePrimitiveCall(t *testing.T) {
	a := ir.NewVariable("a")
	b := ir.NewVariable("b")
	add := primitive(2, f32(4))

	body := ir.Call{
		Op:      add,
		Args:    []ir.Expr{ir.VarExpr{Var: a}, ir.VarExpr{Var: b}},
		Checked: f32(4),
	}
	fn := &ir.Function{Params: []ir.Variable{a, b}, Body: body, Ret: f32(4)}

	compiled, kernels, err := newCompiler().Compile(fn)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(kernels) != 1 {
		t.Fatalf("expected 1 kernel, got %d", len(kernels))
	}
	want := []string{"push 0", "push 1", "alloc_tensor(4) float32", "invoke_packed 0 3", "ret"}
	assertDisasm(t, compiled, want)
}

// TestConditionalBackpatch covers scenario 4.
func TestConditionalBackpatch(t *testing.T) {
	c := ir.NewVariable("c")
	x := ir.NewVariable("x")
	y := ir.NewVariable("y")

	body := ir.If{
		Cond:  ir.VarExpr{Var: c},
		True:  ir.VarExpr{Var: x},
		False: ir.VarExpr{Var: y},
	}
	fn := &ir.Function{Params: []ir.Variable{c, x, y}, Body: body, Ret: f32(1)}

	compiled, _, err := newCompiler().Compile(fn)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	// Each branch carries its own copy of the function's continuation (Ret
	// here), since this instruction set has no unconditional jump to skip
	// from the end of the true branch past the false branch.
	want := []string{"push 0", "if 1 3", "push 1", "ret", "push 2", "ret"}
	assertDisasm(t, compiled, want)

	ifInstr := compiled.Code[1]
	if ifInstr.TrueOffset != 1 {
		t.Fatalf("true_offset = %d, want 1", ifInstr.TrueOffset)
	}
	// false_offset must skip the compiled true branch plus its copy of Ret.
	if ifInstr.FalseOffset != 3 {
		t.Fatalf("false_offset = %d, want 3", ifInstr.FalseOffset)
	}
}

// TestChainedPrimitivesViaLet covers scenario 3: let t = mul(a, b); add(t, a).
func TestChainedPrimitivesViaLet(t *testing.T) {
	a := ir.NewVariable("a")
	b := ir.NewVariable("b")
	tmp := ir.NewVariable("t")
	mul := primitive(2, f32(4))
	add := primitive(2, f32(4))

	body := ir.Let{
		Var: tmp,
		Value: ir.Call{
			Op:      mul,
			Args:    []ir.Expr{ir.VarExpr{Var: a}, ir.VarExpr{Var: b}},
			Checked: f32(4),
		},
		Body: ir.Call{
			Op:      add,
			Args:    []ir.Expr{ir.VarExpr{Var: tmp}, ir.VarExpr{Var: a}},
			Checked: f32(4),
		},
	}
	fn := &ir.Function{Params: []ir.Variable{a, b}, Body: body, Ret: f32(4)}

	compiled, kernels, err := newCompiler().Compile(fn)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(kernels) != 2 {
		t.Fatalf("expected 2 kernels, got %d", len(kernels))
	}
	want := []string{
		"push 0", "push 1", "alloc_tensor(4) float32", "invoke_packed 0 3",
		"push 2", "push 0", "alloc_tensor(4) float32", "invoke_packed 1 3",
		"ret",
	}
	assertDisasm(t, compiled, want)
}

// TestArityCapRejectsNineInputs and TestArityCapAllowsEightInputs cover
// scenario 6.
func TestArityCapRejectsNineInputs(t *testing.T) {
	prim := primitive(9, f32(1))
	args := make([]ir.Expr, 9)
	params := make([]ir.Variable, 9)
	for i := range args {
		params[i] = ir.NewVariable(fmt.Sprintf("a%d", i))
		args[i] = ir.VarExpr{Var: params[i]}
	}
	fn := &ir.Function{
		Params: params,
		Body:   ir.Call{Op: prim, Args: args, Checked: f32(1)},
		Ret:    f32(1),
	}

	_, _, err := newCompiler().Compile(fn)
	if err == nil {
		t.Fatal("expected a capacity-limit error for 9 inputs (arity 10)")
	}
}

func TestArityCapAllowsEightInputs(t *testing.T) {
	prim := primitive(8, f32(1))
	args := make([]ir.Expr, 8)
	params := make([]ir.Variable, 8)
	for i := range args {
		params[i] = ir.NewVariable(fmt.Sprintf("a%d", i))
		args[i] = ir.VarExpr{Var: params[i]}
	}
	fn := &ir.Function{
		Params: params,
		Body:   ir.Call{Op: prim, Args: args, Checked: f32(1)},
		Ret:    f32(1),
	}

	if _, _, err := newCompiler().Compile(fn); err != nil {
		t.Fatalf("expected 8 inputs (arity 9) to compile, got error: %v", err)
	}
}

func TestNonPrimitiveOperatorIsInvariantViolation(t *testing.T) {
	a := ir.NewVariable("a")
	fn := &ir.Function{
		Params: []ir.Variable{a},
		Body:   ir.Call{Op: ir.VarExpr{Var: a}, Args: nil, Checked: f32(1)},
		Ret:    f32(1),
	}
	if _, _, err := newCompiler().Compile(fn); err == nil {
		t.Fatal("expected an error when the call operator is not a primitive")
	}
}

func assertDisasm(t *testing.T, fn *Function, want []string) {
	t.Helper()
	if len(fn.Code) != len(want) {
		t.Fatalf("got %d instructions, want %d:\n%s", len(fn.Code), len(want), DisassembleFunction(fn))
	}
	for i, instr := range fn.Code {
		if got := Disassemble(instr); got != want[i] {
			t.Fatalf("instruction %d = %q, want %q", i, got, want[i])
		}
	}
}
