// Package inline implements the primitive inliner: the IR-to-IR rewrite that
// pushes every primitive function definition into its call sites so the
// bytecode compiler always finds a primitive literal (or a global reference)
// in a call's operator position, never a bare variable.
package inline

import "github.com/arborlang/tvmcore/pkg/ir"

// Module rewrites every function in m, returning a new module with the
// primitive-in-operator-position invariant established. m itself is not
// mutated; functions are rewritten and reinserted under Module.Add, which
// preserves the original insertion order.
//
// Cross-function aliasing through global variables is not resolved: if
// function A's body assigns a global to a local before calling through it,
// that alias is invisible to this pass (see the module's design notes on
// inliner ordering). Running Module repeatedly on its own output is safe
// (idempotent) but does not close that gap either.
func Module(m *ir.Module) *ir.Module {
	out := ir.NewModule()
	for _, name := range m.Names() {
		fn, _ := m.Get(name)
		out.Add(name, rewriteFunction(fn, nil))
	}
	return out
}

// aliases maps a let-bound variable to the expression it was bound to, as
// seen (already rewritten) at the point of binding. Lookups chain-collapse
// through the map one step at a time in resolveOperator.
type aliases map[ir.Variable]ir.Expr

func rewriteFunction(fn *ir.Function, env aliases) *ir.Function {
	if fn.Primitive {
		return fn
	}
	body := rewrite(fn.Body, env)
	body = ir.EliminateDeadLets(body)
	return &ir.Function{
		Params:     fn.Params,
		Body:       body,
		Ret:        fn.Ret,
		TypeParams: fn.TypeParams,
		Primitive:  fn.Primitive,
		Attrs:      fn.Attrs,
	}
}

func rewrite(e ir.Expr, env aliases) ir.Expr {
	switch n := e.(type) {
	case ir.Let:
		value := rewrite(n.Value, env)
		child := extend(env, n.Var, value)
		body := rewrite(n.Body, child)
		return ir.Let{Var: n.Var, Value: value, Body: body}

	case ir.If:
		return ir.If{
			Cond:  rewrite(n.Cond, env),
			True:  rewrite(n.True, env),
			False: rewrite(n.False, env),
		}

	case ir.Call:
		return rewriteCall(n, env)

	case *ir.Function:
		return rewriteFunction(n, env)

	default:
		// VarExpr, GlobalVar: leaves, nothing to rewrite.
		return e
	}
}

// rewriteCall applies the three-way rule from the inliner's call-site
// handling: chain-collapse the operator through aliases, then classify the
// result as a primitive literal, a global reference, or neither.
func rewriteCall(call ir.Call, env aliases) ir.Expr {
	op := resolveOperator(call.Op, env)

	args := make([]ir.Expr, len(call.Args))
	for i, a := range call.Args {
		args[i] = rewrite(a, env)
	}

	switch resolved := op.(type) {
	case *ir.Function:
		if resolved.Primitive {
			return ir.Call{Op: resolved, Args: args, Attrs: call.Attrs, TypeArgs: call.TypeArgs, Checked: call.Checked}
		}
		return ir.Call{Op: rewrite(resolved, env), Args: args, Attrs: call.Attrs, TypeArgs: call.TypeArgs, Checked: call.Checked}
	case ir.GlobalVar:
		return ir.Call{Op: resolved, Args: args, Attrs: call.Attrs, TypeArgs: call.TypeArgs, Checked: call.Checked}
	default:
		return ir.Call{Op: rewrite(call.Op, env), Args: args, Attrs: call.Attrs, TypeArgs: call.TypeArgs, Checked: call.Checked}
	}
}

// resolveOperator follows the alias chain: while op is a variable reference
// bound in env, replace it by its mapped expression. The chain always
// terminates because env only ever grows by one new binding per Let and a
// variable cannot alias itself.
func resolveOperator(op ir.Expr, env aliases) ir.Expr {
	for {
		v, ok := op.(ir.VarExpr)
		if !ok {
			return op
		}
		mapped, ok := env[v.Var]
		if !ok {
			return op
		}
		op = mapped
	}
}

func extend(env aliases, v ir.Variable, value ir.Expr) aliases {
	child := make(aliases, len(env)+1)
	for k, val := range env {
		child[k] = val
	}
	child[v] = value
	return child
}
