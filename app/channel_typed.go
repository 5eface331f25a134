package app

import (
	"context"
	"fmt"

	"github.com/artpar/confchan/domain/property"
	"github.com/artpar/confchan/domain/structpack"
	"github.com/artpar/confchan/domain/value"
)

// Typed convenience accessors. Getters return the fallback when the
// property is missing or holds a different native tag, mirroring the
// "default value" contract of desktop configuration libraries; setters
// are thin wrappers over SetProperty.

// GetBool retrieves a bool property or fallback.
func (ch *Channel) GetBool(ctx context.Context, path string, fallback bool) bool {
	if v, err := ch.GetProperty(ctx, path); err == nil {
		if b, ok := v.AsBool(); ok {
			return b
		}
	}
	return fallback
}

// GetInt retrieves an int32 property or fallback.
func (ch *Channel) GetInt(ctx context.Context, path string, fallback int32) int32 {
	if v, err := ch.GetProperty(ctx, path); err == nil {
		if i, ok := v.AsInt32(); ok {
			return i
		}
	}
	return fallback
}

// GetUint retrieves a uint32 property or fallback.
func (ch *Channel) GetUint(ctx context.Context, path string, fallback uint32) uint32 {
	if v, err := ch.GetProperty(ctx, path); err == nil {
		if u, ok := v.AsUint32(); ok {
			return u
		}
	}
	return fallback
}

// GetInt64 retrieves an int64 property or fallback.
func (ch *Channel) GetInt64(ctx context.Context, path string, fallback int64) int64 {
	if v, err := ch.GetProperty(ctx, path); err == nil {
		if i, ok := v.AsInt64(); ok {
			return i
		}
	}
	return fallback
}

// GetUint64 retrieves a uint64 property or fallback.
func (ch *Channel) GetUint64(ctx context.Context, path string, fallback uint64) uint64 {
	if v, err := ch.GetProperty(ctx, path); err == nil {
		if u, ok := v.AsUint64(); ok {
			return u
		}
	}
	return fallback
}

// GetDouble retrieves a float64 property or fallback.
func (ch *Channel) GetDouble(ctx context.Context, path string, fallback float64) float64 {
	if v, err := ch.GetProperty(ctx, path); err == nil {
		if f, ok := v.AsFloat64(); ok {
			return f
		}
	}
	return fallback
}

// GetString retrieves a string property or fallback.
func (ch *Channel) GetString(ctx context.Context, path string, fallback string) string {
	if v, err := ch.GetProperty(ctx, path); err == nil {
		if s, ok := v.AsString(); ok {
			return s
		}
	}
	return fallback
}

// GetStringList retrieves a string-list property, or nil if the
// property is missing or not a string list.
func (ch *Channel) GetStringList(ctx context.Context, path string) []string {
	v, err := ch.GetProperty(ctx, path)
	if err != nil {
		return nil
	}
	if ss, ok := v.AsStringList(); ok {
		out := make([]string, len(ss))
		copy(out, ss)
		return out
	}
	// Stores may report a homogeneous string array instead.
	if elems, ok := v.AsArray(); ok {
		out := make([]string, 0, len(elems))
		for _, e := range elems {
			s, ok := e.AsString()
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	}
	return nil
}

func (ch *Channel) SetBool(ctx context.Context, path string, v bool) error {
	return ch.SetProperty(ctx, path, value.Bool(v))
}

func (ch *Channel) SetInt(ctx context.Context, path string, v int32) error {
	return ch.SetProperty(ctx, path, value.Int32(v))
}

func (ch *Channel) SetUint(ctx context.Context, path string, v uint32) error {
	return ch.SetProperty(ctx, path, value.Uint32(v))
}

func (ch *Channel) SetInt64(ctx context.Context, path string, v int64) error {
	return ch.SetProperty(ctx, path, value.Int64(v))
}

func (ch *Channel) SetUint64(ctx context.Context, path string, v uint64) error {
	return ch.SetProperty(ctx, path, value.Uint64(v))
}

func (ch *Channel) SetDouble(ctx context.Context, path string, v float64) error {
	return ch.SetProperty(ctx, path, value.Float64(v))
}

func (ch *Channel) SetString(ctx context.Context, path string, v string) error {
	return ch.SetProperty(ctx, path, value.String(v))
}

func (ch *Channel) SetStringList(ctx context.Context, path string, v []string) error {
	return ch.SetProperty(ctx, path, value.StringList(v))
}

// GetArray retrieves an array property as a Value slice.
func (ch *Channel) GetArray(ctx context.Context, path string) ([]value.Value, error) {
	v, err := ch.GetProperty(ctx, path)
	if err != nil {
		return nil, err
	}
	elems, ok := v.AsArray()
	if !ok {
		return nil, fmt.Errorf("%w: property %s holds %s, not an array",
			property.ErrTypeMismatch, path, v.Tag())
	}
	return elems, nil
}

// SetArray stores a Value slice as an array property; SetProperty
// applies the narrow-int widening.
func (ch *Channel) SetArray(ctx context.Context, path string, elems []value.Value) error {
	return ch.SetProperty(ctx, path, value.Array(elems))
}

// GetStruct retrieves an array property and packs it into the native
// byte layout the layout describes. Values arriving with widened
// narrow ints flow back into their 16-bit members.
func (ch *Channel) GetStruct(ctx context.Context, path string, layout structpack.Layout) ([]byte, error) {
	elems, err := ch.GetArray(ctx, path)
	if err != nil {
		return nil, err
	}
	buf, err := structpack.Pack(elems, layout)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", path, err)
	}
	return buf, nil
}

// SetStruct unpacks a native record per layout and stores it as an
// array property.
func (ch *Channel) SetStruct(ctx context.Context, path string, buf []byte, layout structpack.Layout) error {
	elems, err := structpack.Unpack(buf, layout)
	if err != nil {
		return err
	}
	return ch.SetArray(ctx, path, elems)
}

// GetNamedStruct is GetStruct with a layout registered under
// structName on the service's layout registry.
func (ch *Channel) GetNamedStruct(ctx context.Context, path, structName string) ([]byte, error) {
	layout, err := ch.svc.LookupLayout(structName)
	if err != nil {
		return nil, err
	}
	return ch.GetStruct(ctx, path, layout)
}

// SetNamedStruct is SetStruct with a registered layout.
func (ch *Channel) SetNamedStruct(ctx context.Context, path string, buf []byte, structName string) error {
	layout, err := ch.svc.LookupLayout(structName)
	if err != nil {
		return err
	}
	return ch.SetStruct(ctx, path, buf, layout)
}
