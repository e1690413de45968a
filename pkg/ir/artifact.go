package ir

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MarshalArtifact encodes a module to a compact binary artifact via CBOR.
// This is the on-disk form the CLI (cmd/tvmrun) and tests use to hand a
// module to the pipeline; it is IR, not compiled bytecode, so it does not
// conflict with the spec's non-goal of persisting bytecode.
func MarshalArtifact(m *Module) ([]byte, error) {
	w := wireModule{Names: m.Names()}
	for _, name := range w.Names {
		fn, _ := m.Get(name)
		enc := &encoder{ids: make(map[uint64]int)}
		w.Funcs = append(w.Funcs, enc.function(fn))
	}
	return cbor.Marshal(w)
}

// UnmarshalArtifact decodes a module previously produced by MarshalArtifact.
func UnmarshalArtifact(data []byte) (*Module, error) {
	var w wireModule
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("ir: decode artifact: %w", err)
	}
	if len(w.Names) != len(w.Funcs) {
		return nil, fmt.Errorf("ir: decode artifact: %d names but %d functions", len(w.Names), len(w.Funcs))
	}
	mod := NewModule()
	for i, name := range w.Names {
		dec := &decoder{vars: make(map[int]Variable)}
		fn, err := dec.function(w.Funcs[i])
		if err != nil {
			return nil, fmt.Errorf("ir: decode function %q: %w", name, err)
		}
		mod.Add(name, fn)
	}
	return mod, nil
}

// Wire representation. Variables are encoded as small integer ids scoped to
// a single function's encoding pass so identity is preserved across the
// round trip without leaking the process-global counter.

type wireModule struct {
	Names []string       `cbor:"names"`
	Funcs []wireFunction `cbor:"funcs"`
}

type wireFunction struct {
	Params     []int      `cbor:"params"`
	ParamNames []string   `cbor:"param_names"`
	Body       wireExpr   `cbor:"body"`
	Ret        *wireType  `cbor:"ret,omitempty"`
	TypeParams []string   `cbor:"type_params,omitempty"`
	Primitive  bool       `cbor:"primitive"`
	Attrs      cbor.RawMessage `cbor:"attrs,omitempty"`
}

// wireExpr is a tagged union over the Expr kinds. Only the fields belonging
// to the kind named by Kind are populated.
type wireExpr struct {
	Kind string `cbor:"kind"`

	VarID int `cbor:"var_id,omitempty"`

	GlobalName string `cbor:"global_name,omitempty"`

	LetVar   int       `cbor:"let_var,omitempty"`
	LetValue *wireExpr `cbor:"let_value,omitempty"`
	LetBody  *wireExpr `cbor:"let_body,omitempty"`

	IfCond  *wireExpr `cbor:"if_cond,omitempty"`
	IfTrue  *wireExpr `cbor:"if_true,omitempty"`
	IfFalse *wireExpr `cbor:"if_false,omitempty"`

	Func *wireFunction `cbor:"func,omitempty"`

	CallOp      *wireExpr  `cbor:"call_op,omitempty"`
	CallArgs    []wireExpr `cbor:"call_args,omitempty"`
	CallChecked *wireType  `cbor:"call_checked,omitempty"`
}

type wireType struct {
	Shape []int64 `cbor:"shape"`
	Code  uint8   `cbor:"code"`
	Bits  uint8   `cbor:"bits"`
	Lanes uint16  `cbor:"lanes"`
}

func toWireType(t Type) *wireType {
	tt, ok := t.(TensorType)
	if !ok {
		return nil
	}
	return &wireType{Shape: tt.Shape, Code: uint8(tt.DType.Code), Bits: tt.DType.Bits, Lanes: tt.DType.Lanes}
}

func fromWireType(w *wireType) Type {
	if w == nil {
		return nil
	}
	return TensorType{Shape: w.Shape, DType: DType{Code: DTypeCode(w.Code), Bits: w.Bits, Lanes: w.Lanes}}
}

type encoder struct {
	ids map[uint64]int
}

func (e *encoder) varID(v Variable) int {
	if id, ok := e.ids[v.id]; ok {
		return id
	}
	id := len(e.ids)
	e.ids[v.id] = id
	return id
}

func (e *encoder) function(fn *Function) wireFunction {
	w := wireFunction{
		Ret:        toWireType(fn.Ret),
		TypeParams: fn.TypeParams,
		Primitive:  fn.Primitive,
	}
	for _, p := range fn.Params {
		w.Params = append(w.Params, e.varID(p))
		w.ParamNames = append(w.ParamNames, p.Name)
	}
	if fn.Attrs.Proto() != nil {
		if raw, err := cbor.Marshal(fn.Attrs.Proto().AsMap()); err == nil {
			w.Attrs = raw
		}
	}
	w.Body = e.expr(fn.Body)
	return w
}

func (e *encoder) expr(x Expr) wireExpr {
	switch n := x.(type) {
	case VarExpr:
		return wireExpr{Kind: "var", VarID: e.varID(n.Var)}
	case GlobalVar:
		return wireExpr{Kind: "global", GlobalName: n.Name}
	case Let:
		val := e.expr(n.Value)
		body := e.expr(n.Body)
		return wireExpr{Kind: "let", LetVar: e.varID(n.Var), LetValue: &val, LetBody: &body}
	case If:
		c := e.expr(n.Cond)
		t := e.expr(n.True)
		f := e.expr(n.False)
		return wireExpr{Kind: "if", IfCond: &c, IfTrue: &t, IfFalse: &f}
	case *Function:
		fn := e.function(n)
		return wireExpr{Kind: "func", Func: &fn}
	case Call:
		op := e.expr(n.Op)
		args := make([]wireExpr, len(n.Args))
		for i, a := range n.Args {
			args[i] = e.expr(a)
		}
		return wireExpr{Kind: "call", CallOp: &op, CallArgs: args, CallChecked: toWireType(n.Checked)}
	default:
		return wireExpr{Kind: "unknown"}
	}
}

type decoder struct {
	vars map[int]Variable
}

func (d *decoder) variable(id int, name string) Variable {
	if v, ok := d.vars[id]; ok {
		return v
	}
	v := NewVariable(name)
	d.vars[id] = v
	return v
}

func (d *decoder) function(w wireFunction) (*Function, error) {
	fn := &Function{
		Ret:        fromWireType(w.Ret),
		TypeParams: w.TypeParams,
		Primitive:  w.Primitive,
	}
	for i, id := range w.Params {
		name := ""
		if i < len(w.ParamNames) {
			name = w.ParamNames[i]
		}
		fn.Params = append(fn.Params, d.variable(id, name))
	}
	if len(w.Attrs) > 0 {
		var m map[string]any
		if err := cbor.Unmarshal(w.Attrs, &m); err != nil {
			return nil, err
		}
		attrs, err := NewAttrs(m)
		if err != nil {
			return nil, err
		}
		fn.Attrs = attrs
	}
	body, err := d.expr(w.Body)
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (d *decoder) expr(w wireExpr) (Expr, error) {
	switch w.Kind {
	case "var":
		return VarExpr{Var: d.variable(w.VarID, "")}, nil
	case "global":
		return GlobalVar{Name: w.GlobalName}, nil
	case "let":
		val, err := d.expr(*w.LetValue)
		if err != nil {
			return nil, err
		}
		body, err := d.expr(*w.LetBody)
		if err != nil {
			return nil, err
		}
		return Let{Var: d.variable(w.LetVar, ""), Value: val, Body: body}, nil
	case "if":
		cond, err := d.expr(*w.IfCond)
		if err != nil {
			return nil, err
		}
		t, err := d.expr(*w.IfTrue)
		if err != nil {
			return nil, err
		}
		f, err := d.expr(*w.IfFalse)
		if err != nil {
			return nil, err
		}
		return If{Cond: cond, True: t, False: f}, nil
	case "func":
		return d.function(*w.Func)
	case "call":
		op, err := d.expr(*w.CallOp)
		if err != nil {
			return nil, err
		}
		args := make([]Expr, len(w.CallArgs))
		for i, a := range w.CallArgs {
			ae, err := d.expr(a)
			if err != nil {
				return nil, err
			}
			args[i] = ae
		}
		return Call{Op: op, Args: args, Checked: fromWireType(w.CallChecked)}, nil
	default:
		return nil, fmt.Errorf("ir: unknown wire expr kind %q", w.Kind)
	}
}
