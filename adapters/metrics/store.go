package metrics

import (
	"context"
	"time"

	"github.com/artpar/confchan/domain/value"
	"github.com/artpar/confchan/ports"
)

// InstrumentedStore decorates a RemoteStore with call metrics.
type InstrumentedStore struct {
	inner ports.RemoteStore
	m     *Collector
}

// InstrumentStore wraps store so every operation is counted and timed.
func InstrumentStore(store ports.RemoteStore, m *Collector) *InstrumentedStore {
	return &InstrumentedStore{inner: store, m: m}
}

func (s *InstrumentedStore) observe(op, channel string, start time.Time, err error) {
	s.m.StoreCallsTotal.WithLabelValues(op, channel).Inc()
	s.m.StoreCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		s.m.StoreCallErrors.WithLabelValues(op).Inc()
	}
}

func (s *InstrumentedStore) Get(ctx context.Context, channel, path string) (value.Value, error) {
	start := time.Now()
	v, err := s.inner.Get(ctx, channel, path)
	s.observe("get", channel, start, err)
	return v, err
}

func (s *InstrumentedStore) Set(ctx context.Context, channel, path string, v value.Value) error {
	start := time.Now()
	err := s.inner.Set(ctx, channel, path, v)
	s.observe("set", channel, start, err)
	return err
}

func (s *InstrumentedStore) Reset(ctx context.Context, channel, path string, recursive bool) error {
	start := time.Now()
	err := s.inner.Reset(ctx, channel, path, recursive)
	s.observe("reset", channel, start, err)
	return err
}

func (s *InstrumentedStore) ListProperties(ctx context.Context, channel, path string) (map[string]value.Value, error) {
	start := time.Now()
	props, err := s.inner.ListProperties(ctx, channel, path)
	s.observe("list_properties", channel, start, err)
	return props, err
}

func (s *InstrumentedStore) IsLocked(ctx context.Context, channel, path string) (bool, error) {
	start := time.Now()
	locked, err := s.inner.IsLocked(ctx, channel, path)
	s.observe("is_locked", channel, start, err)
	return locked, err
}

func (s *InstrumentedStore) ListChannels(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := s.inner.ListChannels(ctx)
	s.observe("list_channels", "", start, err)
	return names, err
}

func (s *InstrumentedStore) Subscribe(ctx context.Context, channel string) (ports.Subscription, error) {
	start := time.Now()
	sub, err := s.inner.Subscribe(ctx, channel)
	s.observe("subscribe", channel, start, err)
	return sub, err
}

// Ensure interface compliance.
var _ ports.RemoteStore = (*InstrumentedStore)(nil)
