// Package tensor implements the runtime tensor descriptor and value types:
// the shape/dtype/device triple the compiler reasons about statically, and
// the reference-counted buffer-owning value the interpreter allocates,
// shares, and hands to packed kernels.
package tensor

import (
	"fmt"

	"github.com/arborlang/tvmcore/pkg/ir"
)

// Device names where a tensor's buffer lives. Only CPU is exercised by this
// core's interpreter; the type exists so a backend can report a different
// placement without the descriptor shape changing.
type Device uint8

const (
	CPU Device = iota
)

func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	default:
		return fmt.Sprintf("device(%d)", uint8(d))
	}
}

// Descriptor is a fully static tensor descriptor: shape, element type, and
// device placement. Unlike ir.TensorType, a Descriptor is a runtime value
// produced by AllocTensor, not a compile-time annotation.
type Descriptor struct {
	Shape  []int64
	DType  ir.DType
	Device Device
}

// NumElements returns the product of Shape, 1 for a rank-0 (scalar) shape.
func (d Descriptor) NumElements() int64 {
	n := int64(1)
	for _, s := range d.Shape {
		n *= s
	}
	return n
}

// ByteSize returns the buffer size in bytes implied by Shape and DType.
func (d Descriptor) ByteSize() int64 {
	bytesPerElem := int64(d.DType.Bits) / 8
	if bytesPerElem == 0 {
		bytesPerElem = 1
	}
	return d.NumElements() * bytesPerElem * int64(d.DType.Lanes)
}

// IsBoolScalar reports whether d describes a rank-0 boolean tensor, the
// shape the interpreter requires of an If condition.
func (d Descriptor) IsBoolScalar() bool {
	return len(d.Shape) == 0 && d.DType.Code == ir.DTypeBool
}

func (d Descriptor) String() string {
	return fmt.Sprintf("Tensor%v %s@%s", d.Shape, d.DType, d.Device)
}
