// Package vm implements the interpreter: a stack-based dispatch loop that
// executes a compiled bytecode.Function against user-supplied tensor
// arguments, using a kernel table of packed callables materialized by the
// module linker.
package vm

import "github.com/arborlang/tvmcore/pkg/tensor"

// ObjectKind tags the variant carried by an Object. Only Tensor is required
// by this core; the type exists so closure, tuple, or reference variants
// can be added later without reshaping the stack or frame.
type ObjectKind uint8

const (
	ObjectTensor ObjectKind = iota
)

// Object is a value on the VM's value stack.
type Object struct {
	Kind   ObjectKind
	Tensor tensor.Value
}

// TensorObject wraps a tensor value as a stack Object.
func TensorObject(v tensor.Value) Object {
	return Object{Kind: ObjectTensor, Tensor: v}
}

// Clone returns a copy of o. For a tensor object this shares the
// underlying buffer (see tensor.Value.Clone), matching Push's "duplicate a
// stack-relative slot to the top" semantics without copying data.
func (o Object) Clone() Object {
	switch o.Kind {
	case ObjectTensor:
		return Object{Kind: ObjectTensor, Tensor: o.Tensor.Clone()}
	default:
		return o
	}
}
