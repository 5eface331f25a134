package value

import (
	"encoding/json"
	"fmt"

	"github.com/artpar/confchan/domain/property"
)

// wireValue is the JSON shape of a Value: a tag name plus a payload
// whose JSON type depends on the tag.
type wireValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON encodes the value as {"type": <tag name>, "value": <payload>}.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.tag {
	case TagUnset:
		return json.Marshal(wireValue{Type: v.tag.String()})
	case TagBool:
		payload = v.b
	case TagUint8, TagUint16, TagUint32, TagUint64:
		payload = uint64(v.i)
	case TagInt16, TagInt32, TagInt64:
		payload = v.i
	case TagFloat32, TagFloat64:
		payload = v.f
	case TagString:
		payload = v.s
	case TagStringList:
		if v.strs == nil {
			payload = []string{}
		} else {
			payload = v.strs
		}
	case TagArray:
		if v.arr == nil {
			payload = []Value{}
		} else {
			payload = v.arr
		}
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", property.ErrUnsupportedTag, v.tag)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Type: v.tag.String(), Value: raw})
}

// UnmarshalJSON decodes a value from its wire shape, validating that
// integer payloads fit the tag's native width.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	tag, err := ParseTag(w.Type)
	if err != nil {
		return err
	}

	switch tag {
	case TagUnset:
		*v = Unset
		return nil
	case TagBool:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case TagUint8, TagUint16, TagUint32, TagUint64:
		var u uint64
		if err := json.Unmarshal(w.Value, &u); err != nil {
			return err
		}
		return v.setUint(tag, u)
	case TagInt16, TagInt32, TagInt64:
		var i int64
		if err := json.Unmarshal(w.Value, &i); err != nil {
			return err
		}
		return v.setInt(tag, i)
	case TagFloat32, TagFloat64:
		var f float64
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return err
		}
		if tag == TagFloat32 {
			*v = Float32(float32(f))
		} else {
			*v = Float64(f)
		}
	case TagString:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return err
		}
		if err := CheckString(s); err != nil {
			return err
		}
		*v = String(s)
	case TagStringList:
		var strs []string
		if err := json.Unmarshal(w.Value, &strs); err != nil {
			return err
		}
		*v = StringList(strs)
	case TagArray:
		var items []Value
		if err := json.Unmarshal(w.Value, &items); err != nil {
			return err
		}
		*v = Array(items)
	}
	return nil
}

func (v *Value) setUint(tag Tag, u uint64) error {
	var max uint64
	switch tag {
	case TagUint8:
		max = 1<<8 - 1
	case TagUint16:
		max = 1<<16 - 1
	case TagUint32:
		max = 1<<32 - 1
	case TagUint64:
		*v = Uint64(u)
		return nil
	}
	if u > max {
		return fmt.Errorf("%w: %d overflows %s", property.ErrInvalidArgument, u, tag)
	}
	switch tag {
	case TagUint8:
		*v = Uint8(uint8(u))
	case TagUint16:
		*v = Uint16(uint16(u))
	case TagUint32:
		*v = Uint32(uint32(u))
	}
	return nil
}

func (v *Value) setInt(tag Tag, i int64) error {
	switch tag {
	case TagInt16:
		if i < -1<<15 || i > 1<<15-1 {
			return fmt.Errorf("%w: %d overflows %s", property.ErrInvalidArgument, i, tag)
		}
		*v = Int16(int16(i))
	case TagInt32:
		if i < -1<<31 || i > 1<<31-1 {
			return fmt.Errorf("%w: %d overflows %s", property.ErrInvalidArgument, i, tag)
		}
		*v = Int32(int32(i))
	case TagInt64:
		*v = Int64(i)
	}
	return nil
}
