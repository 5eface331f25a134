package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/confchan/domain/property"
	"github.com/artpar/confchan/domain/value"
)

// PropertyCallback receives change notifications. The path is relative
// to the channel's property base; an unset Value means the property
// was removed or reset, not merely emptied.
type PropertyCallback func(path string, v value.Value)

// Listener is a registered property-changed callback. Close
// unregisters it.
type Listener struct {
	ch *Channel
	id uint64
}

// Close unregisters the listener. Safe to call more than once.
func (l *Listener) Close() {
	l.ch.removeListener(l.id)
}

type listenerEntry struct {
	id     uint64
	filter string
	fn     PropertyCallback
}

// Channel is a handle for reading, writing and observing a subtree of
// configuration properties on one named channel. Handles are safe for
// concurrent use.
type Channel struct {
	name      string
	base      string
	singleton bool

	cache  *Cache
	svc    *ChannelService
	logger zerolog.Logger

	mu        sync.Mutex
	listeners []listenerEntry
	nextID    uint64
	closed    bool
}

// Name returns the channel's identifier.
func (ch *Channel) Name() string { return ch.name }

// PropertyBase returns the scope prefix, or "" for an unscoped handle.
func (ch *Channel) PropertyBase() string { return ch.base }

// Close releases the handle. For a non-singleton channel this tears
// down its private cache and subscription. Singleton channels stay
// live in the registry until ChannelService.Shutdown; Close only drops
// this handle's reference.
func (ch *Channel) Close() {
	if ch.singleton {
		// The registry keeps the handle (and its listeners) alive for
		// other holders; only the reference drops.
		ch.svc.release(ch.name)
		return
	}

	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	ch.closed = true
	ch.listeners = nil
	ch.mu.Unlock()

	ch.cache.detach(ch)
	ch.cache.close()
}

// OnPropertyChanged registers a callback for change events under
// pathFilter (relative to the property base). An empty filter matches
// every event; otherwise matching is segment-aware, so "/a" covers
// "/a" and "/a/b" but not "/ab". Callbacks run synchronously on the
// event dispatch goroutine, in registration order.
func (ch *Channel) OnPropertyChanged(pathFilter string, fn PropertyCallback) *Listener {
	ch.mu.Lock()
	ch.nextID++
	id := ch.nextID
	ch.listeners = append(ch.listeners, listenerEntry{id: id, filter: pathFilter, fn: fn})
	ch.mu.Unlock()
	return &Listener{ch: ch, id: id}
}

func (ch *Channel) removeListener(id uint64) {
	ch.mu.Lock()
	for i, l := range ch.listeners {
		if l.id == id {
			ch.listeners = append(ch.listeners[:i], ch.listeners[i+1:]...)
			break
		}
	}
	ch.mu.Unlock()
}

// onEvent filters and rewrites one raw store event. Events outside the
// property base are dropped; matching paths are rewritten to the
// suffix after the base, the base itself becoming the root path.
func (ch *Channel) onEvent(path string, v value.Value) {
	if !property.MatchesBase(ch.base, path) {
		return
	}
	rel := property.Rebase(ch.base, path)

	ch.mu.Lock()
	ls := make([]listenerEntry, len(ch.listeners))
	copy(ls, ch.listeners)
	ch.mu.Unlock()

	for _, l := range ls {
		if l.filter == "" || property.MatchesBase(l.filter, rel) {
			l.fn(rel, v)
		}
	}
}

// realPath applies the property-base prefix and validates the caller's
// path.
func (ch *Channel) realPath(path string) (string, error) {
	if !property.ValidPath(path) {
		return "", fmt.Errorf("%w: malformed property path %q", property.ErrInvalidArgument, path)
	}
	return property.Join(ch.base, path), nil
}

// GetProperty retrieves a property in its native tag.
func (ch *Channel) GetProperty(ctx context.Context, path string) (value.Value, error) {
	real, err := ch.realPath(path)
	if err != nil {
		return value.Unset, err
	}
	return ch.cache.Get(ctx, real)
}

// GetPropertyAs retrieves a property and converts it to target. Scalar
// values go through value.Transform; array values are coerced
// element-wise instead.
func (ch *Channel) GetPropertyAs(ctx context.Context, path string, target value.Tag) (value.Value, error) {
	v, err := ch.GetProperty(ctx, path)
	if err != nil {
		return value.Unset, err
	}
	if v.Tag() == target {
		return v, nil
	}
	if elems, ok := v.AsArray(); ok {
		coerced, err := value.CoerceArray(elems, target)
		if err != nil {
			return value.Unset, fmt.Errorf("property %s: %w", path, err)
		}
		return value.Array(coerced), nil
	}
	out, err := value.Transform(v, target)
	if err != nil {
		return value.Unset, fmt.Errorf("property %s: %w", path, err)
	}
	return out, nil
}

// SetProperty stores a property, applying the transport fixups first:
// narrow 16-bit scalars are widened, and array elements are widened
// element-wise. String payloads must be valid UTF-8 and string lists
// must be non-empty.
func (ch *Channel) SetProperty(ctx context.Context, path string, v value.Value) error {
	real, err := ch.realPath(path)
	if err != nil {
		return err
	}
	if v.IsUnset() {
		return fmt.Errorf("%w: cannot set an unset value; use ResetProperty", property.ErrInvalidArgument)
	}
	if s, ok := v.AsString(); ok {
		if err := value.CheckString(s); err != nil {
			return err
		}
	}
	if ss, ok := v.AsStringList(); ok {
		if len(ss) == 0 {
			return fmt.Errorf("%w: empty string list", property.ErrInvalidArgument)
		}
		for _, s := range ss {
			if err := value.CheckString(s); err != nil {
				return err
			}
		}
	}

	if elems, ok := v.AsArray(); ok {
		v = value.Array(value.WidenNarrowInts(elems))
	} else {
		v = value.WidenNarrow(v)
	}
	return ch.cache.Set(ctx, real, v)
}

// HasProperty checks whether the property exists.
func (ch *Channel) HasProperty(ctx context.Context, path string) (bool, error) {
	_, err := ch.GetProperty(ctx, path)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// IsPropertyLocked reports whether system policy forbids writing the
// property.
func (ch *Channel) IsPropertyLocked(ctx context.Context, path string) (bool, error) {
	real, err := ch.realPath(path)
	if err != nil {
		return false, err
	}
	return ch.cache.store.IsLocked(ctx, ch.name, real)
}

// ResetProperty resets a property, or with recursive the whole subtree
// below it. Pass "/" (or "") with recursive to reset everything under
// the property base.
func (ch *Channel) ResetProperty(ctx context.Context, path string, recursive bool) error {
	if path == "" {
		path = property.Root
	}
	if path == property.Root && !recursive {
		return fmt.Errorf("%w: resetting the root requires recursive", property.ErrInvalidArgument)
	}
	real, err := ch.realPath(path)
	if err != nil {
		return err
	}
	return ch.cache.Reset(ctx, real, recursive)
}

// GetProperties retrieves all properties at or under base (relative to
// the property base; "" and "/" mean the whole scope). Keys in the
// returned map are the store's absolute paths.
func (ch *Channel) GetProperties(ctx context.Context, base string) (map[string]value.Value, error) {
	if base == "" {
		base = property.Root
	}
	real, err := ch.realPath(base)
	if err != nil {
		return nil, err
	}
	return ch.cache.store.ListProperties(ctx, ch.name, real)
}

func isNotFound(err error) bool {
	return errors.Is(err, property.ErrNotFound)
}
