// Package hostapi is the in-process registration surface a host embedding
// this VM calls into: a single named operation that runs a compiled,
// linked function against tensor arguments. The same operation is exposed
// out-of-process by connect_handler.go's Connect unary handler, unchanged
// in semantics.
package hostapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/arborlang/tvmcore/pkg/kernel"
	"github.com/arborlang/tvmcore/pkg/tensor"
)

// Operation runs a named entry point against tensor arguments, optionally
// tracing per-instruction execution to sink.
type Operation func(ctx context.Context, args []tensor.Value, sink kernel.TraceSink) (tensor.Value, error)

// Registry is an in-process, name-keyed table of Operations, analogous in
// spirit to a packed-function registry: host code looks up an operation by
// name and calls it with typed Go arguments rather than going through a
// wire encoding.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds op under name, replacing any operation already registered
// there.
func (r *Registry) Register(name string, op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[name] = op
}

// Lookup returns the operation registered under name, if any.
func (r *Registry) Lookup(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Call looks up name and invokes it, returning an error if nothing is
// registered under that name.
func (r *Registry) Call(ctx context.Context, name string, args []tensor.Value, sink kernel.TraceSink) (tensor.Value, error) {
	op, ok := r.Lookup(name)
	if !ok {
		return tensor.Value{}, fmt.Errorf("hostapi: no operation registered under %q", name)
	}
	return op(ctx, args, sink)
}
