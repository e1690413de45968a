package hostapi

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/arborlang/tvmcore/pkg/ir"
	"github.com/arborlang/tvmcore/pkg/tensor"
)

// tensorToStruct encodes a tensor value as a self-describing structpb.Struct
// envelope: shape, dtype {code, bits, lanes}, and base64-encoded raw bytes.
// This is the wire shape both the Connect handler's response and, for
// arguments, its request use.
func tensorToStruct(v tensor.Value) (*structpb.Struct, error) {
	shape := make([]any, len(v.Descriptor.Shape))
	for i, s := range v.Descriptor.Shape {
		shape[i] = float64(s)
	}
	return structpb.NewStruct(map[string]any{
		"shape": shape,
		"dtype": map[string]any{
			"code":  float64(v.Descriptor.DType.Code),
			"bits":  float64(v.Descriptor.DType.Bits),
			"lanes": float64(v.Descriptor.DType.Lanes),
		},
		"data": base64.StdEncoding.EncodeToString(v.Bytes()),
	})
}

// structToTensor decodes the envelope tensorToStruct produces.
func structToTensor(s *structpb.Struct) (tensor.Value, error) {
	if s == nil {
		return tensor.Value{}, fmt.Errorf("hostapi: nil tensor envelope")
	}

	shapeList := s.Fields["shape"].GetListValue()
	shape := make([]int64, len(shapeList.GetValues()))
	for i, v := range shapeList.GetValues() {
		shape[i] = int64(v.GetNumberValue())
	}

	dtypeStruct := s.Fields["dtype"].GetStructValue()
	if dtypeStruct == nil {
		return tensor.Value{}, fmt.Errorf("hostapi: tensor envelope missing dtype")
	}
	dtype := ir.DType{
		Code:  ir.DTypeCode(dtypeStruct.Fields["code"].GetNumberValue()),
		Bits:  uint8(dtypeStruct.Fields["bits"].GetNumberValue()),
		Lanes: uint16(dtypeStruct.Fields["lanes"].GetNumberValue()),
	}

	data, err := base64.StdEncoding.DecodeString(s.Fields["data"].GetStringValue())
	if err != nil {
		return tensor.Value{}, fmt.Errorf("hostapi: decoding tensor data: %w", err)
	}

	desc := tensor.Descriptor{Shape: shape, DType: dtype, Device: tensor.CPU}
	return tensor.FromBytes(desc, data), nil
}
