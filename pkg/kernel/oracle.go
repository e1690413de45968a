// Package kernel defines the contract this core consumes from the
// kernel-lowering and backend-build collaborators (the "kernel oracle"),
// plus the packed-callable type the interpreter dispatches through, a
// SQLite-backed cache keyed by primitive digest and target, and a
// DuckDB-backed execution trace sink.
package kernel

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/arborlang/tvmcore/pkg/ir"
	"github.com/arborlang/tvmcore/pkg/tensor"
)

// Target names the compilation target a set of kernels is lowered for. The
// core lowers all kernels for a single Target per invocation; multi-target
// dispatch is out of scope (a future extension would key the kernel table
// by (Target, name) rather than reshape this type).
type Target struct {
	Triple string
}

func (t Target) String() string {
	return t.Triple
}

// Kernel is a compiled-kernel handle as returned by Oracle.Lower: enough to
// identify the kernel for caching and to hand to Oracle.Build, without this
// core needing to know anything about its compiled form.
type Kernel struct {
	Name   string
	Digest string
}

// PackedFunc is a uniform-arity callable wrapping a compiled kernel. It
// accepts the kernel's arguments as tensor values, the last of which is the
// pre-allocated output buffer the kernel writes its result into; it returns
// synchronously (the VM assumes the result is materialized on return).
type PackedFunc func(args []tensor.Value) error

// NativeModule is the backend build collaborator's output: a linked,
// loadable collection of packed callables, addressable by kernel name.
type NativeModule interface {
	Get(name string) (PackedFunc, bool)
}

// Oracle is the kernel-lowering and backend-build contract this core
// consumes but does not implement. A real Oracle wraps a tensor-compiler
// backend (TVM, XLA, or similar); this package only depends on the shape of
// the contract.
type Oracle interface {
	// Lower maps a primitive function plus target to compiled kernels. For
	// this core exactly one kernel must be returned per primitive call;
	// returning any other count is a backend-failure error at the compiler.
	Lower(fn *ir.Function, target Target) ([]Kernel, error)

	// Build links a module's full kernel table into a single native module
	// for target. Called exactly once per module, before any Invoke.
	Build(kernels []Kernel, target Target) (NativeModule, error)
}

// Digest computes a stable content digest for a primitive function, used as
// half of the kernel cache key. It hashes the function's parameter count,
// declared return type, and attributes, which is sufficient to distinguish
// primitives that share a name but differ in shape or dtype.
//
// Attributes are hashed via a deterministic proto marshal rather than
// Proto().String(): protobuf's text form is explicitly documented as
// unstable across processes (map and unknown-field ordering in particular),
// which would make the same primitive hash differently run to run and
// silently defeat the persistent SQLite cache's hit rate.
func Digest(fn *ir.Function) string {
	h := sha256.New()
	fmt.Fprintf(h, "params=%d\n", len(fn.Params))
	if tt, ok := fn.Ret.(ir.TensorType); ok {
		fmt.Fprintf(h, "ret=%v/%v\n", tt.Shape, tt.DType)
	}
	if attrs := fn.Attrs.Proto(); attrs != nil {
		encoded, err := proto.MarshalOptions{Deterministic: true}.Marshal(attrs)
		if err == nil {
			h.Write(encoded)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
