// Package memory provides an in-memory RemoteStore implementation,
// used by tests and by the daemon's --memory mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/artpar/confchan/domain/property"
	"github.com/artpar/confchan/domain/value"
	"github.com/artpar/confchan/ports"
)

// Store is an in-memory implementation of ports.RemoteStore with
// synchronous, ordered event fan-out to subscribers.
type Store struct {
	mu       sync.RWMutex
	channels map[string]map[string]value.Value // channel -> path -> value
	locked   map[string]map[string]bool        // channel -> path -> locked
	subs     map[string]*subscription          // by subscription ID
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		channels: make(map[string]map[string]value.Value),
		locked:   make(map[string]map[string]bool),
		subs:     make(map[string]*subscription),
	}
}

// Get retrieves the value of a property.
func (s *Store) Get(ctx context.Context, channel, path string) (value.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	props, ok := s.channels[channel]
	if !ok {
		return value.Unset, fmt.Errorf("%w: %s%s", property.ErrNotFound, channel, path)
	}
	v, ok := props[path]
	if !ok {
		return value.Unset, fmt.Errorf("%w: %s%s", property.ErrNotFound, channel, path)
	}
	return v, nil
}

// Set stores a value and notifies subscribers.
func (s *Store) Set(ctx context.Context, channel, path string, v value.Value) error {
	s.mu.Lock()
	if s.locked[channel][path] {
		s.mu.Unlock()
		return fmt.Errorf("%w: property %s%s is locked", property.ErrRemoteFailure, channel, path)
	}
	props, ok := s.channels[channel]
	if !ok {
		props = make(map[string]value.Value)
		s.channels[channel] = props
	}
	props[path] = v
	subs := s.subscribersLocked(channel)
	s.mu.Unlock()

	deliver(subs, ports.Event{Channel: channel, Path: path, Value: v})
	return nil
}

// Reset removes a property, or a whole subtree when recursive, and
// emits an unset event for every removed path. The memory store has no
// schema defaults, so reset is always removal.
func (s *Store) Reset(ctx context.Context, channel, path string, recursive bool) error {
	s.mu.Lock()
	props := s.channels[channel]
	var removed []string
	for p := range props {
		if p == path || (recursive && property.MatchesBase(pathOrEmptyRoot(path), p)) {
			removed = append(removed, p)
		}
	}
	sort.Strings(removed)
	for _, p := range removed {
		delete(props, p)
	}
	subs := s.subscribersLocked(channel)
	s.mu.Unlock()

	for _, p := range removed {
		deliver(subs, ports.Event{Channel: channel, Path: p, Value: value.Unset})
	}
	return nil
}

// ListProperties returns all properties at or under path.
func (s *Store) ListProperties(ctx context.Context, channel, path string) (map[string]value.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]value.Value)
	for p, v := range s.channels[channel] {
		if p == path || property.MatchesBase(pathOrEmptyRoot(path), p) {
			out[p] = v
		}
	}
	return out, nil
}

// IsLocked reports whether a property was marked locked with Lock.
func (s *Store) IsLocked(ctx context.Context, channel, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked[channel][path], nil
}

// ListChannels returns all channel names in sorted order.
func (s *Store) ListChannels(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Subscribe opens an event feed for one channel name.
func (s *Store) Subscribe(ctx context.Context, channel string) (ports.Subscription, error) {
	sub := &subscription{
		id:      uuid.New().String(),
		channel: channel,
		events:  make(chan ports.Event, 64),
		done:    make(chan struct{}),
	}
	sub.store = s

	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()
	return sub, nil
}

// Lock marks a property as locked by policy (for tests and the
// daemon's seed data).
func (s *Store) Lock(channel, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked[channel] == nil {
		s.locked[channel] = make(map[string]bool)
	}
	s.locked[channel][path] = true
}

// Seed stores a value without emitting an event (for tests).
func (s *Store) Seed(channel, path string, v value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channels[channel] == nil {
		s.channels[channel] = make(map[string]value.Value)
	}
	s.channels[channel][path] = v
}

// SubscriberCount returns the number of live subscriptions (for tests).
func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Store) subscribersLocked(channel string) []*subscription {
	var out []*subscription
	for _, sub := range s.subs {
		if sub.channel == channel {
			out = append(out, sub)
		}
	}
	return out
}

func (s *Store) unsubscribe(id string) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

// deliver sends an event to each subscriber outside the store lock.
// Sends block (bounded by the subscriber closing) so a single
// subscriber always observes events in emission order.
func deliver(subs []*subscription, ev ports.Event) {
	for _, sub := range subs {
		select {
		case sub.events <- ev:
		case <-sub.done:
		}
	}
}

// pathOrEmptyRoot treats the root path as the empty base so that
// MatchesBase covers the whole channel.
func pathOrEmptyRoot(path string) string {
	if path == property.Root {
		return ""
	}
	return path
}

type subscription struct {
	id      string
	channel string
	store   *Store
	events  chan ports.Event
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

func (s *subscription) Events() <-chan ports.Event { return s.events }

func (s *subscription) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.store.unsubscribe(s.id)
	// The events channel is left open: emitters may still be blocked
	// in deliver, and closing under them would panic. They bail out on
	// done instead.
	close(s.done)
	return nil
}

// Ensure interface compliance.
var (
	_ ports.RemoteStore  = (*Store)(nil)
	_ ports.Subscription = (*subscription)(nil)
)
