// Package ir is the input representation the rest of this core operates on:
// a small functional language of variables, let-bindings, conditionals,
// function literals (ordinary or primitive), and calls, organized into a
// module of named globals.
//
// # Scope
//
// This is deliberately not a general-purpose IR. There is no pattern
// matching, no recursion combinator beyond calling another module global,
// and no type inference: every Call already carries its checked type, and
// Function.Ret is likewise assumed rather than derived. A type checker that
// produces this annotated form lives outside this core.
//
// # Pipeline
//
//   - pkg/inline returns a rewritten copy of a Module (the input is not
//     mutated), collapsing let-bound aliases to primitive functions into
//     their call sites and running EliminateDeadLets to drop bindings the
//     rewrite made unreachable.
//   - pkg/bytecode compiles the inlined Module's function bodies to
//     bytecode.Function instruction streams.
//   - MarshalArtifact/UnmarshalArtifact round-trip a Module through CBOR so
//     it can be handed to cmd/tvmrun or a test fixture as a single file,
//     independent of the (unpersisted) compiled bytecode.
package ir
