package hostapi

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/arborlang/tvmcore/pkg/kernel"
	"github.com/arborlang/tvmcore/pkg/tensor"
)

// InvokeProcedure is the Connect procedure path the unary handler is mounted
// under. There is no generated stub package for it: both request and
// response are self-describing structpb.Struct envelopes (§13), so a wire
// client only needs this path and the field names wire.go documents.
const InvokeProcedure = "/tvmcore.hostapi.v1.Runner/Invoke"

// NewHandler builds a Connect unary handler exposing registry's Call method
// to out-of-process hosts. The request Struct has fields "operation"
// (string), "args" (list of tensor envelopes, see wire.go), and optionally
// "trace" (bool). The response has "result" (a tensor envelope) and, when
// tracing was requested, "trace" (a list of per-instruction diagnostic
// strings).
func NewHandler(registry *Registry, opts ...connect.HandlerOption) (string, http.Handler) {
	handler := connect.NewUnaryHandler(
		InvokeProcedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			resp, err := invoke(ctx, registry, req.Msg)
			if err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, err)
			}
			return connect.NewResponse(resp), nil
		},
		opts...,
	)
	return InvokeProcedure, handler
}

func invoke(ctx context.Context, registry *Registry, req *structpb.Struct) (*structpb.Struct, error) {
	name := req.Fields["operation"].GetStringValue()
	if name == "" {
		return nil, fmt.Errorf("hostapi: request missing \"operation\"")
	}

	argList := req.Fields["args"].GetListValue()
	args := make([]tensor.Value, len(argList.GetValues()))
	for i, v := range argList.GetValues() {
		t, err := structToTensor(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("hostapi: decoding args[%d]: %w", i, err)
		}
		args[i] = t
	}

	var sink *collectingSink
	var traceSink kernel.TraceSink
	if req.Fields["trace"].GetBoolValue() {
		sink = &collectingSink{}
		traceSink = sink
	}

	result, err := registry.Call(ctx, name, args, traceSink)
	if err != nil {
		return nil, err
	}

	resultEnvelope, err := tensorToStruct(result)
	if err != nil {
		return nil, fmt.Errorf("hostapi: encoding result: %w", err)
	}

	fields := map[string]any{"result": resultEnvelope.AsMap()}
	if sink != nil {
		lines := make([]any, len(sink.lines))
		for i, l := range sink.lines {
			lines[i] = l
		}
		fields["trace"] = lines
	}

	return structpb.NewStruct(fields)
}

// collectingSink accumulates trace lines for the RPC response, mirroring
// kernel.PrintTrace's line format without writing to stdout.
type collectingSink struct {
	lines []string
}

func (s *collectingSink) Record(ev kernel.TraceEvent) error {
	s.lines = append(s.lines, fmt.Sprintf("%s pc=%d func=%d depth=%d %s", ev.Invocation, ev.PC, ev.FuncIndex, ev.StackDepth, ev.Opcode))
	return nil
}
