// Package bytecode compiles a single, already-inlined ir.Function into a
// linear instruction sequence over a value stack.
//
// The instruction set is deliberately small: six opcodes (Push, Ret,
// AllocTensor, InvokePacked, If, Invoke), each carrying its operands as
// typed struct fields rather than a packed byte encoding, since this core
// never serializes compiled bytecode to disk or across a process boundary.
//
// # Compilation
//
// Compiler.Compile walks a function body once, assigning each parameter a
// stack slot and emitting one instruction group per expression kind it
// recognizes: a bare variable becomes a Push, a conditional becomes a
// back-patched If straddling its two branches, a let permanently reserves
// the stack slot its value evaluates into for the rest of its body, and a
// call - which by the time this package sees it must have a primitive
// function literal in operator position - becomes an argument-evaluating
// prefix followed by an AllocTensor for the result and an InvokePacked
// dispatching the kernel the oracle lowered for it.
//
// Anything else reaching the compiler (a nested function literal, a
// non-primitive call operator, a bare global reference) is an
// invariant-violation error: the primitive inliner is responsible for
// normalizing the body before it gets here.
package bytecode
