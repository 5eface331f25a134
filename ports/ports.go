// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"

	"github.com/artpar/confchan/domain/value"
)

// Event is one remote change notification: a property on a channel was
// set (Value carries the new payload) or removed (Value is unset).
type Event struct {
	Channel string
	Path    string
	Value   value.Value
}

// Subscription is a live feed of change events for a single channel.
// Events arrive in the order the store emitted them. After Close no
// further events are delivered; an implementation whose stream ends on
// its own (a dropped connection, say) may close the feed channel, so
// consumers must handle both a closed feed and their own stop signal.
type Subscription interface {
	// Events returns the receive side of the event feed.
	Events() <-chan Event

	// Close ends the subscription and releases server-side state.
	// Safe to call more than once.
	Close() error
}

// RemoteStore is the configuration store collaborator. All calls are
// synchronous; they complete or fail, with timeout policy owned by the
// implementation. Errors are returned, never retried at this layer.
type RemoteStore interface {
	// Get retrieves the value of a property, or ErrNotFound.
	Get(ctx context.Context, channel, path string) (value.Value, error)

	// Set stores a value for a property.
	Set(ctx context.Context, channel, path string, v value.Value) error

	// Reset resets a property (or, recursively, a subtree) to its
	// default, removing it if no default exists.
	Reset(ctx context.Context, channel, path string, recursive bool) error

	// ListProperties returns all properties at or under path.
	ListProperties(ctx context.Context, channel, path string) (map[string]value.Value, error)

	// IsLocked reports whether system policy forbids writing path.
	IsLocked(ctx context.Context, channel, path string) (bool, error)

	// ListChannels returns the names of all known channels.
	ListChannels(ctx context.Context) ([]string, error)

	// Subscribe opens an event feed filtered to one channel name.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}
