// Package reforacle is a minimal, in-process kernel.Oracle implementation
// for a handful of elementwise float32 primitives (add, mul, identity),
// selected by a primitive function's "op" attribute. The real kernel-lowering
// and backend-build engine is an external collaborator this core does not
// implement (§1); reforacle exists so cmd/tvmrun and integration tests have
// something concrete to run modules against without one.
package reforacle

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arborlang/tvmcore/pkg/ir"
	"github.com/arborlang/tvmcore/pkg/kernel"
	"github.com/arborlang/tvmcore/pkg/tensor"
	"github.com/arborlang/tvmcore/pkg/vmerr"
)

// Oracle implements kernel.Oracle over the fixed elementwise op table below.
type Oracle struct{}

var ops = map[string]func(out, a, b []byte) error{
	"add": elementwise(func(x, y float32) float32 { return x + y }),
	"mul": elementwise(func(x, y float32) float32 { return x * y }),
}

// Lower reports the single kernel a primitive's "op" attribute names. Unlike
// a real backend, no code generation happens here: the "kernel" is simply
// the op name, resolved to a Go closure at Build time.
func (Oracle) Lower(fn *ir.Function, target kernel.Target) ([]kernel.Kernel, error) {
	name := fn.Attrs.GetString("op")
	if name == "" {
		name = "identity"
	}
	if name != "identity" {
		if _, ok := ops[name]; !ok {
			return nil, vmerr.New(vmerr.BackendFailure, "reforacle: unknown primitive op %q", name)
		}
	}
	return []kernel.Kernel{{Name: name, Digest: kernel.Digest(fn)}}, nil
}

// Build returns a NativeModule serving every kernel in ops plus "identity",
// regardless of what kernels was asked for; a real backend would compile
// exactly the requested set.
func (Oracle) Build(kernels []kernel.Kernel, target kernel.Target) (kernel.NativeModule, error) {
	return nativeModule{}, nil
}

type nativeModule struct{}

func (nativeModule) Get(name string) (kernel.PackedFunc, bool) {
	if name == "identity" {
		return identityKernel, true
	}
	fn, ok := ops[name]
	if !ok {
		return nil, false
	}
	return func(args []tensor.Value) error {
		if len(args) != 3 {
			return fmt.Errorf("reforacle: %s wants 2 inputs and 1 output, got %d args", name, len(args))
		}
		return fn(args[2].Bytes(), args[0].Bytes(), args[1].Bytes())
	}, true
}

func identityKernel(args []tensor.Value) error {
	if len(args) != 2 {
		return fmt.Errorf("reforacle: identity wants 1 input and 1 output, got %d args", len(args))
	}
	copy(args[1].Bytes(), args[0].Bytes())
	return nil
}

func elementwise(f func(x, y float32) float32) func(out, a, b []byte) error {
	return func(out, a, b []byte) error {
		n := len(out) / 4
		for i := 0; i < n; i++ {
			x := math.Float32frombits(binary.LittleEndian.Uint32(a[i*4:]))
			y := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f(x, y)))
		}
		return nil
	}
}
