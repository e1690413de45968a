// Package fixture parses a small textual IR notation into ir.Function
// values, and loads named fixtures from a single golang.org/x/tools/txtar
// archive so the inliner, compiler, and VM test suites can share one set of
// multi-function scenarios instead of each re-declaring the same Variables
// and Calls as Go literals.
//
// The notation covers exactly what the core's concrete scenarios need:
// parameters, let-bindings, conditionals, and calls. A call whose operator
// name is not a bound parameter or let-binding is treated as a reference to
// a fresh primitive function tagged with an "op" attribute of that name,
// matching how pkg/reforacle selects a kernel.
//
//	fn(a, b) { let t = mul(a, b); add(t, a) }
//	fn(c, x, y) { if c then x else y }
package fixture
