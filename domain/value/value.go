// Package value provides the dynamically-typed Value used for channel
// properties. A Value is a tagged union: the tag identifies the native
// type and the payload is always consistent with it. All functions are
// pure - no I/O, no shared state.
package value

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/artpar/confchan/domain/property"
)

// Tag identifies the native type of a Value.
type Tag uint8

const (
	// TagUnset is the zero Tag. An unset Value carries no payload and
	// represents property absence or removal.
	TagUnset Tag = iota
	TagBool
	TagUint8
	TagInt16  // narrow: widened to int32 before transmission
	TagUint16 // narrow: widened to uint32 before transmission
	TagInt32
	TagUint32
	TagInt64
	TagUint64
	TagFloat32
	TagFloat64
	TagString
	TagStringList
	TagArray
)

var tagNames = map[Tag]string{
	TagUnset:      "unset",
	TagBool:       "bool",
	TagUint8:      "uint8",
	TagInt16:      "int16",
	TagUint16:     "uint16",
	TagInt32:      "int32",
	TagUint32:     "uint32",
	TagInt64:      "int64",
	TagUint64:     "uint64",
	TagFloat32:    "float32",
	TagFloat64:    "float64",
	TagString:     "string",
	TagStringList: "string-list",
	TagArray:      "array",
}

// String returns the wire name of the tag.
func (t Tag) String() string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// ParseTag maps a wire name back to a Tag.
func ParseTag(s string) (Tag, error) {
	for t, n := range tagNames {
		if n == s {
			return t, nil
		}
	}
	return TagUnset, fmt.Errorf("%w: unknown tag name %q", property.ErrUnsupportedTag, s)
}

// IsNarrow reports whether the tag is one of the 16-bit integer tags
// the transport cannot carry.
func (t Tag) IsNarrow() bool {
	return t == TagInt16 || t == TagUint16
}

// Value is a dynamically-typed scalar or homogeneous container. The
// zero Value is unset.
type Value struct {
	tag Tag

	// Scalars share the integer/float/bool fields; only the one the
	// tag selects is meaningful.
	i int64
	f float64
	b bool
	s string

	strs []string
	arr  []Value
}

// Unset is the Value representing property absence or removal.
var Unset = Value{}

// Tag returns the value's type tag. Unset values return TagUnset.
func (v Value) Tag() Tag { return v.tag }

// IsUnset reports whether the value is the unset state.
func (v Value) IsUnset() bool { return v.tag == TagUnset }

// Constructors. Each produces a Value whose payload matches its tag.

func Bool(b bool) Value       { return Value{tag: TagBool, b: b} }
func Uint8(u uint8) Value     { return Value{tag: TagUint8, i: int64(u)} }
func Int16(i int16) Value     { return Value{tag: TagInt16, i: int64(i)} }
func Uint16(u uint16) Value   { return Value{tag: TagUint16, i: int64(u)} }
func Int32(i int32) Value     { return Value{tag: TagInt32, i: int64(i)} }
func Uint32(u uint32) Value   { return Value{tag: TagUint32, i: int64(u)} }
func Int64(i int64) Value     { return Value{tag: TagInt64, i: i} }
func Uint64(u uint64) Value   { return Value{tag: TagUint64, i: int64(u)} }
func Float32(f float32) Value { return Value{tag: TagFloat32, f: float64(f)} }
func Float64(f float64) Value { return Value{tag: TagFloat64, f: f} }

// String builds a string Value. The string must be valid UTF-8; use
// CheckString to validate caller input first.
func String(s string) Value { return Value{tag: TagString, s: s} }

// StringList builds a string-list Value from a copy of values.
func StringList(values []string) Value {
	cp := make([]string, len(values))
	copy(cp, values)
	return Value{tag: TagStringList, strs: cp}
}

// Array builds an array Value from a copy of values. Heterogeneous
// element tags are allowed; operations that need homogeneity check it
// themselves.
func Array(values []Value) Value {
	cp := make([]Value, len(values))
	copy(cp, values)
	return Value{tag: TagArray, arr: cp}
}

// CheckString validates a string payload for storage: it must be valid
// UTF-8.
func CheckString(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: string value is not valid UTF-8", property.ErrInvalidArgument)
	}
	return nil
}

// Accessors. Each returns the payload and whether the tag matched.

func (v Value) AsBool() (bool, bool)       { return v.b, v.tag == TagBool }
func (v Value) AsUint8() (uint8, bool)     { return uint8(v.i), v.tag == TagUint8 }
func (v Value) AsInt16() (int16, bool)     { return int16(v.i), v.tag == TagInt16 }
func (v Value) AsUint16() (uint16, bool)   { return uint16(v.i), v.tag == TagUint16 }
func (v Value) AsInt32() (int32, bool)     { return int32(v.i), v.tag == TagInt32 }
func (v Value) AsUint32() (uint32, bool)   { return uint32(v.i), v.tag == TagUint32 }
func (v Value) AsInt64() (int64, bool)     { return v.i, v.tag == TagInt64 }
func (v Value) AsUint64() (uint64, bool)   { return uint64(v.i), v.tag == TagUint64 }
func (v Value) AsFloat32() (float32, bool) { return float32(v.f), v.tag == TagFloat32 }
func (v Value) AsFloat64() (float64, bool) { return v.f, v.tag == TagFloat64 }
func (v Value) AsString() (string, bool)   { return v.s, v.tag == TagString }

// AsStringList returns the string-list payload. The slice is shared;
// callers must not mutate it.
func (v Value) AsStringList() ([]string, bool) { return v.strs, v.tag == TagStringList }

// AsArray returns the array payload. The slice is shared; callers must
// not mutate it.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.tag == TagArray }

// Equal reports deep equality of tag and payload.
func (v Value) Equal(o Value) bool {
	if v.tag != o.tag {
		return false
	}
	switch v.tag {
	case TagUnset:
		return true
	case TagBool:
		return v.b == o.b
	case TagFloat32, TagFloat64:
		return v.f == o.f
	case TagString:
		return v.s == o.s
	case TagStringList:
		if len(v.strs) != len(o.strs) {
			return false
		}
		for i := range v.strs {
			if v.strs[i] != o.strs[i] {
				return false
			}
		}
		return true
	case TagArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	default:
		return v.i == o.i
	}
}

// String renders the value for logs and the CLI.
func (v Value) String() string {
	switch v.tag {
	case TagUnset:
		return "<unset>"
	case TagBool:
		return strconv.FormatBool(v.b)
	case TagFloat32, TagFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TagString:
		return v.s
	case TagStringList:
		return strings.Join(v.strs, ",")
	case TagArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case TagUint64:
		return strconv.FormatUint(uint64(v.i), 10)
	default:
		return strconv.FormatInt(v.i, 10)
	}
}
