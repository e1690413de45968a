package hostapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/arborlang/tvmcore/pkg/ir"
	"github.com/arborlang/tvmcore/pkg/kernel"
	"github.com/arborlang/tvmcore/pkg/tensor"
)

func doubleOp(ctx context.Context, args []tensor.Value, sink kernel.TraceSink) (tensor.Value, error) {
	if sink != nil {
		_ = sink.Record(kernel.TraceEvent{Invocation: "double", Opcode: "invoke_packed 0 2"})
	}
	in := args[0]
	out := tensor.Alloc(in.Descriptor)
	copy(out.Bytes(), in.Bytes())
	out.Bytes()[0] *= 2
	return out, nil
}

func TestConnectHandlerRoundTrips(t *testing.T) {
	registry := NewRegistry()
	registry.Register("double", doubleOp)

	mux := http.NewServeMux()
	path, handler := NewHandler(registry)
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+InvokeProcedure)

	in := tensor.Alloc(tensorDescForTest())
	in.Bytes()[0] = 3
	argEnvelope, err := tensorToStruct(in)
	if err != nil {
		t.Fatalf("tensorToStruct: %v", err)
	}

	reqStruct, err := structpb.NewStruct(map[string]any{
		"operation": "double",
		"args":      []any{argEnvelope.AsMap()},
		"trace":     true,
	})
	if err != nil {
		t.Fatalf("building request: %v", err)
	}

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(reqStruct))
	if err != nil {
		t.Fatalf("CallUnary: %v", err)
	}

	resultEnvelope := resp.Msg.Fields["result"].GetStructValue()
	out, err := structToTensor(resultEnvelope)
	if err != nil {
		t.Fatalf("structToTensor: %v", err)
	}
	if out.Bytes()[0] != 6 {
		t.Fatalf("got %v, want a tensor wrapping 6", out.Bytes())
	}

	trace := resp.Msg.Fields["trace"].GetListValue()
	if len(trace.GetValues()) != 1 {
		t.Fatalf("got %d trace lines, want 1", len(trace.GetValues()))
	}
}

func TestConnectHandlerRejectsMissingOperation(t *testing.T) {
	registry := NewRegistry()

	mux := http.NewServeMux()
	path, handler := NewHandler(registry)
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+InvokeProcedure)

	reqStruct, _ := structpb.NewStruct(map[string]any{"args": []any{}})
	if _, err := client.CallUnary(context.Background(), connect.NewRequest(reqStruct)); err == nil {
		t.Fatal("expected an error for a request missing \"operation\"")
	}
}

func tensorDescForTest() tensor.Descriptor {
	return tensor.Descriptor{DType: ir.Float32, Device: tensor.CPU}
}
