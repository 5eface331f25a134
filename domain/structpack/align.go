// Package structpack converts ordered Value sequences to and from the
// byte layout of an equivalent native record. The walk applies the same
// natural-alignment rules a systems compiler would, because callers
// share these regions with other native code; a wrong offset corrupts
// adjacent fields.
package structpack

import (
	"unsafe"

	"github.com/artpar/confchan/domain/value"
)

// memberInfo holds the native size and alignment of a scalar tag on
// the current platform. Computed once at init from typed zeros rather
// than from any host struct reflection.
type memberInfo struct {
	size  uintptr
	align uintptr
}

var memberTable map[value.Tag]memberInfo

func init() {
	var (
		b   bool
		u8  uint8
		i16 int16
		u16 uint16
		i32 int32
		u32 uint32
		i64 int64
		u64 uint64
		f32 float32
		f64 float64
	)

	memberTable = map[value.Tag]memberInfo{
		value.TagBool:    {unsafe.Sizeof(b), unsafe.Alignof(b)},
		value.TagUint8:   {unsafe.Sizeof(u8), unsafe.Alignof(u8)},
		value.TagInt16:   {unsafe.Sizeof(i16), unsafe.Alignof(i16)},
		value.TagUint16:  {unsafe.Sizeof(u16), unsafe.Alignof(u16)},
		value.TagInt32:   {unsafe.Sizeof(i32), unsafe.Alignof(i32)},
		value.TagUint32:  {unsafe.Sizeof(u32), unsafe.Alignof(u32)},
		value.TagInt64:   {unsafe.Sizeof(i64), unsafe.Alignof(i64)},
		value.TagUint64:  {unsafe.Sizeof(u64), unsafe.Alignof(u64)},
		value.TagFloat32: {unsafe.Sizeof(f32), unsafe.Alignof(f32)},
		value.TagFloat64: {unsafe.Sizeof(f64), unsafe.Alignof(f64)},
	}
}

// alignUp rounds n up to the next multiple of align.
func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// ptrTo exposes a probe word for the byte-order check without pulling
// unsafe into pack.go.
func ptrTo(p *uint16) unsafe.Pointer {
	return unsafe.Pointer(p)
}
