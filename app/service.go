package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/confchan/domain/property"
	"github.com/artpar/confchan/domain/structpack"
	"github.com/artpar/confchan/ports"
)

// ChannelService is the application entry point for channels: it owns
// the registry of singleton channels, the named layout registry, and
// the store handle. One ChannelService replaces the process-global
// state a desktop configuration library would keep.
type ChannelService struct {
	store   ports.RemoteStore
	logger  zerolog.Logger
	layouts *structpack.Registry

	mu         sync.Mutex
	singletons map[string]*singletonEntry
	shutdown   bool
}

// singletonEntry gates construction of one singleton channel. The
// registry lock guards only the map; the entry's once runs the cache
// subscription outside it, so a blocking remote call never holds the
// lock and racing callers still construct exactly one Cache.
type singletonEntry struct {
	once sync.Once
	ch   *Channel
	err  error
	refs int
}

// NewChannelService creates a service over the given store.
func NewChannelService(store ports.RemoteStore, logger zerolog.Logger) *ChannelService {
	return &ChannelService{
		store:      store,
		logger:     logger,
		layouts:    structpack.NewRegistry(),
		singletons: make(map[string]*singletonEntry),
	}
}

// ChannelOption configures channel construction.
type ChannelOption func(*channelOptions)

type channelOptions struct {
	base       string
	standalone bool
}

// WithPropertyBase restricts the handle to the subtree rooted at base.
// For a singleton channel the first construction's base wins for its
// lifetime.
func WithPropertyBase(base string) ChannelOption {
	return func(o *channelOptions) { o.base = base }
}

// Standalone requests a private, non-singleton channel with its own
// cache and subscription. The caller must Close it.
func Standalone() ChannelOption {
	return func(o *channelOptions) { o.standalone = true }
}

// Channel returns a handle for name, creating it on first request.
// Singleton handles (the default) are shared process-wide per name;
// standalone handles are independent.
func (s *ChannelService) Channel(ctx context.Context, name string, opts ...ChannelOption) (*Channel, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty channel name", property.ErrInvalidArgument)
	}
	var o channelOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.base != "" && !property.ValidPath(o.base) {
		return nil, fmt.Errorf("%w: malformed property base %q", property.ErrInvalidArgument, o.base)
	}

	if o.standalone {
		return s.construct(ctx, name, o.base, false)
	}

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: channel service is shut down", property.ErrInvalidArgument)
	}
	e, ok := s.singletons[name]
	if !ok {
		e = &singletonEntry{}
		s.singletons[name] = e
	}
	e.refs++
	s.mu.Unlock()

	e.once.Do(func() {
		ch, err := s.construct(ctx, name, o.base, true)
		if err != nil {
			e.err = err
			// Drop the failed entry so a later caller retries; the
			// construct path released any partial subscription itself.
			s.mu.Lock()
			if s.singletons[name] == e {
				delete(s.singletons, name)
			}
			s.mu.Unlock()
			return
		}
		// Shutdown may have swept the registry while construct was
		// blocked in the store subscribe. The swept entry is no longer
		// reachable, so tear the fresh cache down here instead of
		// handing a live subscription to a shut-down service.
		s.mu.Lock()
		if s.shutdown {
			s.mu.Unlock()
			ch.cache.detach(ch)
			ch.cache.close()
			e.err = fmt.Errorf("%w: channel service is shut down", property.ErrInvalidArgument)
			return
		}
		e.ch = ch
		s.mu.Unlock()
	})
	if e.err != nil {
		return nil, e.err
	}

	if o.base != "" && o.base != e.ch.base {
		s.logger.Debug().
			Str("channel", name).
			Str("kept", e.ch.base).
			Str("requested", o.base).
			Msg("singleton keeps its first property base")
	}
	return e.ch, nil
}

func (s *ChannelService) construct(ctx context.Context, name, base string, singleton bool) (*Channel, error) {
	cache, err := newCache(ctx, s.store, name, base, s.logger)
	if err != nil {
		return nil, err
	}
	ch := &Channel{
		name:      name,
		base:      base,
		singleton: singleton,
		cache:     cache,
		svc:       s,
		logger:    s.logger.With().Str("channel", name).Logger(),
	}
	cache.attach(ch)
	return ch, nil
}

// release drops one reference to a singleton. Singletons are never
// evicted on ref-drop; the entry stays live until Shutdown.
func (s *ChannelService) release(name string) {
	s.mu.Lock()
	if e, ok := s.singletons[name]; ok && e.refs > 0 {
		e.refs--
	}
	s.mu.Unlock()
}

// Shutdown tears down every singleton channel and its cache. The
// service rejects new singleton requests afterwards.
func (s *ChannelService) Shutdown() {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	entries := make([]*singletonEntry, 0, len(s.singletons))
	for _, e := range s.singletons {
		entries = append(entries, e)
	}
	s.singletons = make(map[string]*singletonEntry)
	s.mu.Unlock()

	for _, e := range entries {
		if e.ch != nil {
			e.ch.cache.detach(e.ch)
			e.ch.cache.close()
		}
	}
	s.logger.Info().Int("channels", len(entries)).Msg("channel service shut down")
}

// ListChannels returns all channel names known to the store.
func (s *ChannelService) ListChannels(ctx context.Context) ([]string, error) {
	return s.store.ListChannels(ctx)
}

// RegisterLayout registers a named struct layout for
// GetNamedStruct/SetNamedStruct.
func (s *ChannelService) RegisterLayout(name string, layout structpack.Layout) error {
	return s.layouts.Register(name, layout)
}

// LookupLayout returns a layout registered with RegisterLayout.
func (s *ChannelService) LookupLayout(name string) (structpack.Layout, error) {
	return s.layouts.Lookup(name)
}
