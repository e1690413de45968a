package tensor

import (
	"testing"

	"github.com/arborlang/tvmcore/pkg/ir"
)

func float32Desc(shape ...int64) Descriptor {
	return Descriptor{Shape: shape, DType: ir.Float32, Device: CPU}
}

func TestAllocZeroFills(t *testing.T) {
	v := Alloc(float32Desc(4))
	for i, b := range v.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d not zero: %d", i, b)
		}
	}
	if got := int64(len(v.Bytes())); got != v.Descriptor.ByteSize() {
		t.Fatalf("buffer size %d, want %d", got, v.Descriptor.ByteSize())
	}
}

func TestCloneSharesBuffer(t *testing.T) {
	v := Alloc(float32Desc(4))
	c := v.Clone()

	c.Bytes()[0] = 0xFF
	if v.Bytes()[0] != 0xFF {
		t.Fatal("clone did not share the underlying buffer")
	}

	c.Release()
	v.Release()
}

func TestBoolScalarRoundTrip(t *testing.T) {
	v := Alloc(Descriptor{DType: ir.Bool32, Device: CPU})
	if v.ReadBoolScalar() {
		t.Fatal("freshly allocated bool scalar should read false")
	}
	v.WriteBoolScalar(true)
	if !v.ReadBoolScalar() {
		t.Fatal("expected true after WriteBoolScalar(true)")
	}
	if !v.Descriptor.IsBoolScalar() {
		t.Fatal("expected IsBoolScalar to hold for rank-0 bool descriptor")
	}
}

func TestNumElements(t *testing.T) {
	d := float32Desc(2, 3, 4)
	if got := d.NumElements(); got != 24 {
		t.Fatalf("NumElements() = %d, want 24", got)
	}
	scalar := Descriptor{DType: ir.Float32}
	if got := scalar.NumElements(); got != 1 {
		t.Fatalf("scalar NumElements() = %d, want 1", got)
	}
}
