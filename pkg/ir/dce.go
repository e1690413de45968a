package ir

// EliminateDeadLets removes Let bindings whose variable is never referenced
// in the (already rewritten) body. This is the minimal dead-code elimination
// the primitive inliner needs after collapsing an alias chain through a
// call's operator position: once `let p = <primitive literal>` has been
// inlined into its call site, the binding itself is dead if nothing else
// reads p.
//
// This is not a general optimizer: it does not remove dead branches, unused
// function parameters, or unreachable calls. Anything beyond dropping now-
// unused single-binding lets is out of scope for this core (see spec
// Non-goals: "optimization passes beyond dead-code elimination after
// inlining").
func EliminateDeadLets(e Expr) Expr {
	switch n := e.(type) {
	case Let:
		body := EliminateDeadLets(n.Body)
		if !isReferenced(n.Var, body) {
			return body
		}
		return Let{Var: n.Var, Value: EliminateDeadLets(n.Value), Body: body}
	case If:
		return If{
			Cond:  EliminateDeadLets(n.Cond),
			True:  EliminateDeadLets(n.True),
			False: EliminateDeadLets(n.False),
		}
	case Call:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = EliminateDeadLets(a)
		}
		return Call{Op: EliminateDeadLets(n.Op), Args: args, Attrs: n.Attrs, TypeArgs: n.TypeArgs, Checked: n.Checked}
	case *Function:
		if n.Primitive {
			return n
		}
		return &Function{
			Params:     n.Params,
			Body:       EliminateDeadLets(n.Body),
			Ret:        n.Ret,
			TypeParams: n.TypeParams,
			Primitive:  n.Primitive,
			Attrs:      n.Attrs,
		}
	default:
		return e
	}
}

// isReferenced reports whether v occurs as a VarExpr anywhere in e.
func isReferenced(v Variable, e Expr) bool {
	switch n := e.(type) {
	case VarExpr:
		return n.Var == v
	case Let:
		return isReferenced(v, n.Value) || isReferenced(v, n.Body)
	case If:
		return isReferenced(v, n.Cond) || isReferenced(v, n.True) || isReferenced(v, n.False)
	case Call:
		if isReferenced(v, n.Op) {
			return true
		}
		for _, a := range n.Args {
			if isReferenced(v, a) {
				return true
			}
		}
		return false
	case *Function:
		if n.Primitive {
			return false
		}
		return isReferenced(v, n.Body)
	default:
		return false
	}
}
