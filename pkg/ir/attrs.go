package ir

import "google.golang.org/protobuf/types/known/structpb"

// Attrs is an open, string-keyed bag of scalar/struct values attached to
// functions and calls (target hints, primitive names, layout hints). It
// wraps structpb.Struct so the same value round-trips through logging, the
// host RPC surface (pkg/hostapi), and the kernel cache digest without a
// bespoke marshaling path for a bespoke map type.
type Attrs struct {
	pb *structpb.Struct
}

// NewAttrs builds an Attrs from plain Go values. Supported value types are
// whatever structpb.NewStruct accepts: nil, bool, numeric, string, []any,
// and map[string]any.
func NewAttrs(values map[string]any) (Attrs, error) {
	if len(values) == 0 {
		return Attrs{}, nil
	}
	pb, err := structpb.NewStruct(values)
	if err != nil {
		return Attrs{}, err
	}
	return Attrs{pb: pb}, nil
}

// Proto returns the underlying structpb.Struct, or nil if Attrs is empty.
// Callers that need a proto.Message (to log, hash, or ship over the host
// RPC surface) use this directly rather than re-deriving one.
func (a Attrs) Proto() *structpb.Struct {
	return a.pb
}

// Get returns the named attribute and whether it was present.
func (a Attrs) Get(name string) (*structpb.Value, bool) {
	if a.pb == nil {
		return nil, false
	}
	v, ok := a.pb.Fields[name]
	return v, ok
}

// GetString returns the named string attribute, or "" if absent or not a
// string.
func (a Attrs) GetString(name string) string {
	v, ok := a.Get(name)
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// Len reports how many attributes are set.
func (a Attrs) Len() int {
	if a.pb == nil {
		return 0
	}
	return len(a.pb.Fields)
}
