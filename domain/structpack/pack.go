package structpack

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/artpar/confchan/domain/property"
	"github.com/artpar/confchan/domain/value"
)

// Layout is an ordered list of member type tags describing a fixed
// native record. Members are packed strictly left to right; offsets
// and total size follow from natural alignment alone. Only scalar tags
// are representable as record members.
type Layout []value.Tag

// hostOrder is the byte order of the platform the record is shared
// with. Go only targets little- and big-endian platforms where native
// integer layout matches one of the binary package orders.
var hostOrder = func() binary.ByteOrder {
	var probe uint16 = 1
	if *(*byte)(ptrTo(&probe)) == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}()

// Size returns the total byte size of the record, including trailing
// padding up to the record's own alignment, exactly as a compiler
// would lay out the equivalent struct.
func (l Layout) Size() (int, error) {
	var cursor, maxAlign uintptr
	for i, tag := range l {
		info, ok := memberTable[tag]
		if !ok {
			return 0, fmt.Errorf("%w: member %d has tag %s", property.ErrUnsupportedTag, i, tag)
		}
		cursor = alignUp(cursor, info.align) + info.size
		if info.align > maxAlign {
			maxAlign = info.align
		}
	}
	if maxAlign > 0 {
		cursor = alignUp(cursor, maxAlign)
	}
	return int(cursor), nil
}

// Offsets returns the byte offset of each member.
func (l Layout) Offsets() ([]int, error) {
	offsets := make([]int, len(l))
	var cursor uintptr
	for i, tag := range l {
		info, ok := memberTable[tag]
		if !ok {
			return nil, fmt.Errorf("%w: member %d has tag %s", property.ErrUnsupportedTag, i, tag)
		}
		cursor = alignUp(cursor, info.align)
		offsets[i] = int(cursor)
		cursor += info.size
	}
	return offsets, nil
}

// Pack writes values into the record layout. The value count must
// match the member count, and each value's tag must equal the layout
// tag, with one permitted cross-tag match: a narrow int16/uint16
// member accepts a value already widened to int32/uint32, undoing the
// transport's 16-bit promotion. Truncation of out-of-range widened
// values is out of contract, not an error. No partial output is
// produced on failure.
func Pack(values []value.Value, layout Layout) ([]byte, error) {
	if len(values) != len(layout) {
		return nil, fmt.Errorf("%w: %d values for %d members",
			property.ErrLengthMismatch, len(values), len(layout))
	}

	size, err := layout.Size()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	var cursor uintptr
	for i, tag := range layout {
		info := memberTable[tag]
		cursor = alignUp(cursor, info.align)
		if err := packMember(buf[cursor:cursor+info.size], values[i], tag); err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		cursor += info.size
	}
	return buf, nil
}

// Unpack is the mirror of Pack: the same alignment walk, reading each
// member into a Value of the layout's declared tag. Narrow members are
// read at their natural 2-byte width and yield narrow-tagged Values;
// widening for transmission is a separate step.
func Unpack(buf []byte, layout Layout) ([]value.Value, error) {
	size, err := layout.Size()
	if err != nil {
		return nil, err
	}
	if len(buf) < size {
		return nil, fmt.Errorf("%w: buffer holds %d bytes, record needs %d",
			property.ErrLengthMismatch, len(buf), size)
	}

	out := make([]value.Value, len(layout))
	var cursor uintptr
	for i, tag := range layout {
		info := memberTable[tag]
		cursor = alignUp(cursor, info.align)
		out[i] = unpackMember(buf[cursor:cursor+info.size], tag)
		cursor += info.size
	}
	return out, nil
}

func packMember(dst []byte, v value.Value, tag value.Tag) error {
	vt := v.Tag()
	if vt != tag {
		// The only cross-tag match: a widened narrow int flowing back
		// into its narrow member.
		ok := (tag == value.TagInt16 && vt == value.TagInt32) ||
			(tag == value.TagUint16 && vt == value.TagUint32)
		if !ok {
			return fmt.Errorf("%w: value tag %s for member tag %s",
				property.ErrTypeMismatch, vt, tag)
		}
	}

	switch tag {
	case value.TagBool:
		b, _ := v.AsBool()
		if b {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case value.TagUint8:
		u, _ := v.AsUint8()
		dst[0] = u
	case value.TagInt16:
		if i, ok := v.AsInt16(); ok {
			hostOrder.PutUint16(dst, uint16(i))
		} else {
			i32, _ := v.AsInt32()
			hostOrder.PutUint16(dst, uint16(int16(i32)))
		}
	case value.TagUint16:
		if u, ok := v.AsUint16(); ok {
			hostOrder.PutUint16(dst, u)
		} else {
			u32, _ := v.AsUint32()
			hostOrder.PutUint16(dst, uint16(u32))
		}
	case value.TagInt32:
		i, _ := v.AsInt32()
		hostOrder.PutUint32(dst, uint32(i))
	case value.TagUint32:
		u, _ := v.AsUint32()
		hostOrder.PutUint32(dst, u)
	case value.TagInt64:
		i, _ := v.AsInt64()
		hostOrder.PutUint64(dst, uint64(i))
	case value.TagUint64:
		u, _ := v.AsUint64()
		hostOrder.PutUint64(dst, u)
	case value.TagFloat32:
		f, _ := v.AsFloat32()
		hostOrder.PutUint32(dst, math.Float32bits(f))
	case value.TagFloat64:
		f, _ := v.AsFloat64()
		hostOrder.PutUint64(dst, math.Float64bits(f))
	default:
		return fmt.Errorf("%w: %s", property.ErrUnsupportedTag, tag)
	}
	return nil
}

func unpackMember(src []byte, tag value.Tag) value.Value {
	switch tag {
	case value.TagBool:
		return value.Bool(src[0] != 0)
	case value.TagUint8:
		return value.Uint8(src[0])
	case value.TagInt16:
		return value.Int16(int16(hostOrder.Uint16(src)))
	case value.TagUint16:
		return value.Uint16(hostOrder.Uint16(src))
	case value.TagInt32:
		return value.Int32(int32(hostOrder.Uint32(src)))
	case value.TagUint32:
		return value.Uint32(hostOrder.Uint32(src))
	case value.TagInt64:
		return value.Int64(int64(hostOrder.Uint64(src)))
	case value.TagUint64:
		return value.Uint64(hostOrder.Uint64(src))
	case value.TagFloat32:
		return value.Float32(math.Float32frombits(hostOrder.Uint32(src)))
	case value.TagFloat64:
		return value.Float64(math.Float64frombits(hostOrder.Uint64(src)))
	}
	return value.Unset
}
