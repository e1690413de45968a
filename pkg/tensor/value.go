package tensor

import "sync/atomic"

// buffer is the shared, reference-counted backing store for a Value's raw
// bytes. Multiple Values may point at the same buffer; the last one to
// Release frees it.
type buffer struct {
	data     []byte
	refCount int64
}

func newBuffer(size int64) *buffer {
	return &buffer{data: make([]byte, size), refCount: 1}
}

func (b *buffer) retain() {
	atomic.AddInt64(&b.refCount, 1)
}

// release drops one reference, returning true if this call dropped the last
// one (in which case the caller should treat data as gone).
func (b *buffer) release() bool {
	return atomic.AddInt64(&b.refCount, -1) == 0
}

// Value is a tensor value: a descriptor plus a handle on a shared device
// buffer. Cloning a Value shares the buffer (retains a reference); Release
// drops one and frees the underlying storage once the count reaches zero.
// A Value is not safe for concurrent use from multiple goroutines without
// external synchronization, matching the single-threaded VM this package
// serves.
type Value struct {
	Descriptor Descriptor
	buf        *buffer
}

// Alloc creates a fresh zero-filled tensor value with its own buffer.
func Alloc(desc Descriptor) Value {
	return Value{Descriptor: desc, buf: newBuffer(desc.ByteSize())}
}

// FromBytes wraps caller-supplied bytes as a new, uniquely-owned buffer.
// len(data) must equal desc.ByteSize(); the caller retains no claim on data
// after this call.
func FromBytes(desc Descriptor, data []byte) Value {
	return Value{Descriptor: desc, buf: &buffer{data: data, refCount: 1}}
}

// Bytes returns the raw backing bytes. Callers must not retain the slice
// beyond the Value's lifetime (Release may free it out from under them).
func (v Value) Bytes() []byte {
	return v.buf.data
}

// Clone returns a new Value sharing the same buffer, incrementing the
// reference count. The descriptor is copied by value (its Shape slice is
// not mutated by anything in this package, so sharing it is safe).
func (v Value) Clone() Value {
	v.buf.retain()
	return v
}

// Release drops this Value's reference to its buffer. Calling Release more
// than once for the same logical ownership is a caller bug; Value does not
// guard against double-release.
func (v Value) Release() {
	if v.buf.release() {
		v.buf.data = nil
	}
}

// ReadBoolScalar reads byte 0 of a rank-0 boolean tensor, the representation
// the interpreter's If opcode branches on.
func (v Value) ReadBoolScalar() bool {
	return len(v.buf.data) > 0 && v.buf.data[0] != 0
}

// WriteBoolScalar sets byte 0 of a rank-0 boolean tensor's buffer.
func (v Value) WriteBoolScalar(b bool) {
	if len(v.buf.data) == 0 {
		return
	}
	if b {
		v.buf.data[0] = 1
	} else {
		v.buf.data[0] = 0
	}
}
