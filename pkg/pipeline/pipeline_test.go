package pipeline

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/arborlang/tvmcore/pkg/ir"
	"github.com/arborlang/tvmcore/pkg/kernel"
	"github.com/arborlang/tvmcore/pkg/reforacle"
	"github.com/arborlang/tvmcore/pkg/tensor"
)

func f32(v float32) tensor.Value {
	desc := tensor.Descriptor{DType: ir.Float32, Device: tensor.CPU}
	val := tensor.Alloc(desc)
	binary.LittleEndian.PutUint32(val.Bytes(), math.Float32bits(v))
	return val
}

func readF32(v tensor.Value) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(v.Bytes()))
}

// TestBuildRunsChainedPrimitivesEndToEnd builds a module through the whole
// pipeline (inline, compile, link, interpret) with the reference oracle
// standing in for a real backend.
func TestBuildRunsChainedPrimitivesEndToEnd(t *testing.T) {
	a := ir.NewVariable("a")
	b := ir.NewVariable("b")
	tmp := ir.NewVariable("t")

	addAttrs, _ := ir.NewAttrs(map[string]any{"op": "add"})
	mulAttrs, _ := ir.NewAttrs(map[string]any{"op": "mul"})
	mul := &ir.Function{
		Params:    []ir.Variable{ir.NewVariable("x"), ir.NewVariable("y")},
		Ret:       ir.TensorType{DType: ir.Float32},
		Primitive: true,
		Attrs:     mulAttrs,
	}
	add := &ir.Function{
		Params:    []ir.Variable{ir.NewVariable("x"), ir.NewVariable("y")},
		Ret:       ir.TensorType{DType: ir.Float32},
		Primitive: true,
		Attrs:     addAttrs,
	}

	body := ir.Let{
		Var:   tmp,
		Value: ir.Call{Op: mul, Args: []ir.Expr{ir.VarExpr{Var: a}, ir.VarExpr{Var: b}}, Checked: ir.TensorType{DType: ir.Float32}},
		Body:  ir.Call{Op: add, Args: []ir.Expr{ir.VarExpr{Var: tmp}, ir.VarExpr{Var: a}}, Checked: ir.TensorType{DType: ir.Float32}},
	}
	fn := &ir.Function{Params: []ir.Variable{a, b}, Body: body, Ret: ir.TensorType{DType: ir.Float32}}

	m := ir.NewModule()
	m.Add("compute", fn)

	result, err := Build(m, reforacle.Oracle{}, kernel.Target{Triple: "cpu"}, 0, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	idx, ok := result.Indices["compute"]
	if !ok {
		t.Fatal("compute not present in linked function index")
	}

	out, err := result.VM.Invoke("compute", idx, []tensor.Value{f32(3), f32(4)})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	// t = 3*4 = 12; result = t + a = 12 + 3 = 15.
	if got := readF32(out); got != 15 {
		t.Fatalf("got %v, want 15", got)
	}
}

func TestBuildSkipsPrimitivesAsEntryPoints(t *testing.T) {
	prim := &ir.Function{Params: []ir.Variable{ir.NewVariable("x")}, Ret: ir.TensorType{DType: ir.Float32}, Primitive: true}
	m := ir.NewModule()
	m.Add("identity_kernel", prim)

	result, err := Build(m, reforacle.Oracle{}, kernel.Target{Triple: "cpu"}, 0, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := result.Indices["identity_kernel"]; ok {
		t.Fatal("a primitive function should not appear as a callable entry point")
	}
}
