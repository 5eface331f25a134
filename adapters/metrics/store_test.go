package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/artpar/confchan/adapters/memory"
	"github.com/artpar/confchan/domain/value"
)

func TestInstrumentedStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewWith(reg)
	store := InstrumentStore(memory.NewStore(), collector)
	ctx := context.Background()

	if err := store.Set(ctx, "panel", "/size", value.Int32(24)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := store.Get(ctx, "panel", "/size"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := store.Get(ctx, "panel", "/missing"); err == nil {
		t.Fatal("expected error for missing property")
	}

	if got := testutil.ToFloat64(collector.StoreCallsTotal.WithLabelValues("set", "panel")); got != 1 {
		t.Errorf("set calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.StoreCallsTotal.WithLabelValues("get", "panel")); got != 2 {
		t.Errorf("get calls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.StoreCallErrors.WithLabelValues("get")); got != 1 {
		t.Errorf("get errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.StoreCallErrors.WithLabelValues("set")); got != 0 {
		t.Errorf("set errors = %v, want 0", got)
	}
}

func TestInstrumentedStorePassthrough(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewWith(reg)
	inner := memory.NewStore()
	store := InstrumentStore(inner, collector)
	ctx := context.Background()

	inner.Seed("panel", "/size", value.Int32(24))
	inner.Seed("panel", "/mode", value.String("deskbar"))

	props, err := store.ListProperties(ctx, "panel", "/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(props) != 2 {
		t.Errorf("props = %v, want 2 entries", props)
	}

	names, err := store.ListChannels(ctx)
	if err != nil || len(names) != 1 {
		t.Errorf("channels = %v, %v", names, err)
	}

	sub, err := store.Subscribe(ctx, "panel")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if err := store.Set(ctx, "panel", "/size", value.Int32(32)); err != nil {
		t.Fatalf("set: %v", err)
	}
	ev := <-sub.Events()
	if ev.Path != "/size" || !ev.Value.Equal(value.Int32(32)) {
		t.Errorf("event = %+v", ev)
	}
}
