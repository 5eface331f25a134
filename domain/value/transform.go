package value

import (
	"fmt"

	"github.com/artpar/confchan/domain/property"
)

// Transform converts v to the target tag. Only same-tag copies and
// numeric/boolean widenings are defined; string parsing is never
// attempted. Undefined conversions fail with ErrTypeMismatch.
func Transform(v Value, target Tag) (Value, error) {
	if v.tag == target {
		return v, nil
	}
	if v.tag == TagUnset || target == TagUnset {
		return Unset, fmt.Errorf("%w: cannot transform %s to %s",
			property.ErrTypeMismatch, v.tag, target)
	}

	switch {
	case v.isSignedInt() && isWiderSigned(v.tag, target):
		return fromInt(v.i, target), nil
	case v.isUnsignedInt() && isWiderUnsigned(v.tag, target):
		return fromInt(v.i, target), nil
	case v.isUnsignedInt() && isWiderSignedOfUnsigned(v.tag, target):
		// e.g. uint8 -> int16: the signed type covers the full
		// unsigned range one step down.
		return fromInt(v.i, target), nil
	case v.isInt() && (target == TagFloat32 || target == TagFloat64):
		return fromFloat(float64(v.intAsFloat()), target), nil
	case v.tag == TagFloat32 && target == TagFloat64:
		return Float64(v.f), nil
	case v.tag == TagBool && isIntTag(target):
		var i int64
		if v.b {
			i = 1
		}
		return fromInt(i, target), nil
	}

	return Unset, fmt.Errorf("%w: cannot transform %s to %s",
		property.ErrTypeMismatch, v.tag, target)
}

// CoerceArray applies Transform element-wise. Any element failure
// aborts the whole operation: no partial result is returned and the
// input slice is left untouched.
func CoerceArray(src []Value, target Tag) ([]Value, error) {
	out := make([]Value, len(src))
	for i, v := range src {
		cv, err := Transform(v, target)
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", i, err)
		}
		out[i] = cv
	}
	return out, nil
}

// WidenNarrowInts returns a copy of src with every 16-bit integer
// element widened to its 32-bit equivalent, because the transport
// cannot carry 16-bit integers. If no element is narrow the original
// slice is returned as-is, without copying.
func WidenNarrowInts(src []Value) []Value {
	narrow := false
	for _, v := range src {
		if v.tag.IsNarrow() {
			narrow = true
			break
		}
	}
	if !narrow {
		return src
	}

	out := make([]Value, len(src))
	for i, v := range src {
		out[i] = WidenNarrow(v)
	}
	return out
}

// WidenNarrow widens a single narrow-int value; any other value is
// returned unchanged.
func WidenNarrow(v Value) Value {
	switch v.tag {
	case TagInt16:
		return Int32(int32(v.i))
	case TagUint16:
		return Uint32(uint32(v.i))
	default:
		return v
	}
}

func (v Value) isSignedInt() bool {
	return v.tag == TagInt16 || v.tag == TagInt32 || v.tag == TagInt64
}

func (v Value) isUnsignedInt() bool {
	return v.tag == TagUint8 || v.tag == TagUint16 || v.tag == TagUint32 || v.tag == TagUint64
}

func (v Value) isInt() bool { return v.isSignedInt() || v.isUnsignedInt() }

func (v Value) intAsFloat() float64 {
	if v.tag == TagUint64 {
		return float64(uint64(v.i))
	}
	return float64(v.i)
}

func isIntTag(t Tag) bool {
	switch t {
	case TagUint8, TagInt16, TagUint16, TagInt32, TagUint32, TagInt64, TagUint64:
		return true
	}
	return false
}

// signedRank and unsignedRank order integer tags by width; a widening
// is any move to a strictly greater rank of compatible signedness.

func signedRank(t Tag) int {
	switch t {
	case TagInt16:
		return 1
	case TagInt32:
		return 2
	case TagInt64:
		return 3
	}
	return 0
}

func unsignedRank(t Tag) int {
	switch t {
	case TagUint8:
		return 1
	case TagUint16:
		return 2
	case TagUint32:
		return 3
	case TagUint64:
		return 4
	}
	return 0
}

func isWiderSigned(from, to Tag) bool {
	fr, tr := signedRank(from), signedRank(to)
	return fr > 0 && tr > fr
}

func isWiderUnsigned(from, to Tag) bool {
	fr, tr := unsignedRank(from), unsignedRank(to)
	return fr > 0 && tr > fr
}

// isWiderSignedOfUnsigned reports whether the signed target can hold
// every value of the unsigned source (uint8->int16/32/64, uint16->int32/64,
// uint32->int64).
func isWiderSignedOfUnsigned(from, to Tag) bool {
	fr, tr := unsignedRank(from), signedRank(to)
	return fr > 0 && tr > 0 && tr >= fr
}

func fromInt(i int64, target Tag) Value {
	switch target {
	case TagUint8:
		return Uint8(uint8(i))
	case TagInt16:
		return Int16(int16(i))
	case TagUint16:
		return Uint16(uint16(i))
	case TagInt32:
		return Int32(int32(i))
	case TagUint32:
		return Uint32(uint32(i))
	case TagInt64:
		return Int64(i)
	case TagUint64:
		return Uint64(uint64(i))
	}
	return Unset
}

func fromFloat(f float64, target Tag) Value {
	if target == TagFloat32 {
		return Float32(float32(f))
	}
	return Float64(f)
}
