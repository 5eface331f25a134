// Package app wires the channel façade: per-channel-name caches that
// own the remote event subscription, channel handles scoped by an
// optional property base, and the process registry of singleton
// channels.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/confchan/domain/property"
	"github.com/artpar/confchan/domain/value"
	"github.com/artpar/confchan/ports"
)

// Cache is the per-channel-name owner of the single live subscription
// to the store's event stream. Multiple Channels scoped to different
// subtrees of one channel name share one Cache. Get/Set/Reset are
// direct synchronous passes to the store; the Cache holds no values.
type Cache struct {
	name   string
	store  ports.RemoteStore
	logger zerolog.Logger
	sub    ports.Subscription

	mu       sync.RWMutex
	attached []*Channel

	stop     chan struct{}
	pumpDone chan struct{}
}

// newCache subscribes to the store's event stream for name and starts
// the dispatch pump. The initial ListProperties call warms the store
// connection; its payload is discarded and a failure only logs, since
// the subscription is what matters.
func newCache(ctx context.Context, store ports.RemoteStore, name, base string, logger zerolog.Logger) (*Cache, error) {
	sub, err := store.Subscribe(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe to %s: %v", property.ErrRemoteFailure, name, err)
	}

	c := &Cache{
		name:     name,
		store:    store,
		logger:   logger.With().Str("channel", name).Logger(),
		sub:      sub,
		stop:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}

	prefetch := base
	if prefetch == "" {
		prefetch = property.Root
	}
	if _, err := store.ListProperties(ctx, name, prefetch); err != nil {
		c.logger.Warn().Err(err).Str("base", prefetch).Msg("prefetch failed")
	}

	go c.pump()
	return c, nil
}

// Get retrieves a property from the store.
func (c *Cache) Get(ctx context.Context, path string) (value.Value, error) {
	return c.store.Get(ctx, c.name, path)
}

// Set stores a property.
func (c *Cache) Set(ctx context.Context, path string, v value.Value) error {
	return c.store.Set(ctx, c.name, path, v)
}

// Reset resets a property or subtree.
func (c *Cache) Reset(ctx context.Context, path string, recursive bool) error {
	return c.store.Reset(ctx, c.name, path, recursive)
}

func (c *Cache) attach(ch *Channel) {
	c.mu.Lock()
	c.attached = append(c.attached, ch)
	c.mu.Unlock()
}

func (c *Cache) detach(ch *Channel) {
	c.mu.Lock()
	for i, a := range c.attached {
		if a == ch {
			c.attached = append(c.attached[:i], c.attached[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

// pump forwards store events to attached channels in arrival order.
// No reordering or coalescing; a single goroutine keeps ordering for
// the whole Cache.
func (c *Cache) pump() {
	defer close(c.pumpDone)
	for {
		select {
		case ev, ok := <-c.sub.Events():
			if !ok {
				c.logger.Debug().Msg("event stream ended")
				return
			}
			c.dispatch(ev)
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) dispatch(ev ports.Event) {
	if ev.Channel != c.name {
		// Server-side filtering should make this impossible.
		c.logger.Warn().Str("got", ev.Channel).Msg("dropping event for foreign channel")
		return
	}

	c.mu.RLock()
	targets := make([]*Channel, len(c.attached))
	copy(targets, c.attached)
	c.mu.RUnlock()

	for _, ch := range targets {
		ch.onEvent(ev.Path, ev.Value)
	}
}

// close tears down the subscription and stops the pump.
func (c *Cache) close() {
	close(c.stop)
	if err := c.sub.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("closing subscription")
	}
	<-c.pumpDone
}
