package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/confchan/adapters/memory"
	"github.com/artpar/confchan/app"
	"github.com/artpar/confchan/domain/property"
	"github.com/artpar/confchan/domain/value"
	"github.com/artpar/confchan/ports"
)

func newService(t *testing.T) (*app.ChannelService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := app.NewChannelService(store, zerolog.Nop())
	t.Cleanup(svc.Shutdown)
	return svc, store
}

func TestChannel_SingletonIdentity(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Channel(ctx, "foo")
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	b, err := svc.Channel(ctx, "foo")
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	if a != b {
		t.Error("singleton requests for one name must return the same handle")
	}

	// A set through one handle is observed via the shared event stream.
	events := make(chan string, 1)
	l := b.OnPropertyChanged("", func(path string, v value.Value) {
		events <- path
	})
	defer l.Close()

	if err := a.SetInt(ctx, "/size", 48); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	select {
	case p := <-events:
		if p != "/size" {
			t.Errorf("event path = %q, want /size", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestChannel_ConcurrentSingletonConstructsOneCache(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	const n = 1000
	var wg sync.WaitGroup
	handles := make([]*app.Channel, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ch, err := svc.Channel(ctx, "foo")
			if err != nil {
				t.Errorf("Channel: %v", err)
				return
			}
			handles[i] = ch
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if handles[i] != handles[0] {
			t.Fatal("racing callers received different handles")
		}
	}
	if got := store.SubscriberCount(); got != 1 {
		t.Errorf("store has %d subscriptions for foo, want exactly 1", got)
	}
}

func TestChannel_StandaloneIsIndependent(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	a, err := svc.Channel(ctx, "foo", app.Standalone())
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	b, err := svc.Channel(ctx, "foo", app.Standalone())
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	if a == b {
		t.Error("standalone channels must be independent instances")
	}
	if got := store.SubscriberCount(); got != 2 {
		t.Errorf("standalone channels share a subscription: %d", got)
	}

	a.Close()
	b.Close()
	if got := store.SubscriberCount(); got != 0 {
		t.Errorf("closing standalone channels leaked %d subscriptions", got)
	}
}

func TestChannel_SingletonSurvivesRelease(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	a, _ := svc.Channel(ctx, "foo")
	a.Close()

	if got := store.SubscriberCount(); got != 1 {
		t.Errorf("singleton release must not tear down the cache, subscriptions = %d", got)
	}

	b, err := svc.Channel(ctx, "foo")
	if err != nil {
		t.Fatalf("Channel after release: %v", err)
	}
	if b != a {
		t.Error("released singleton should still be returned from the registry")
	}
}

func TestChannelService_Shutdown(t *testing.T) {
	store := memory.NewStore()
	svc := app.NewChannelService(store, zerolog.Nop())
	ctx := context.Background()

	svc.Channel(ctx, "foo")
	svc.Channel(ctx, "bar")
	if got := store.SubscriberCount(); got != 2 {
		t.Fatalf("subscriptions = %d", got)
	}

	svc.Shutdown()
	if got := store.SubscriberCount(); got != 0 {
		t.Errorf("shutdown leaked %d subscriptions", got)
	}

	if _, err := svc.Channel(ctx, "foo"); err == nil {
		t.Error("singleton requests after shutdown should fail")
	}
}

// gatedStore parks Subscribe until release is closed, so a test can
// hold a channel construction mid-subscribe while something else runs.
type gatedStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Subscribe(ctx context.Context, channel string) (ports.Subscription, error) {
	close(g.entered)
	<-g.release
	return g.Store.Subscribe(ctx, channel)
}

func TestChannelService_ShutdownDuringConstruction(t *testing.T) {
	store := &gatedStore{
		Store:   memory.NewStore(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := app.NewChannelService(store, zerolog.Nop())
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() {
		_, err := svc.Channel(ctx, "foo")
		errc <- err
	}()

	// Shut the service down while the construction is parked inside the
	// store subscribe, then let it finish.
	<-store.entered
	svc.Shutdown()
	close(store.release)

	select {
	case err := <-errc:
		if !errors.Is(err, property.ErrInvalidArgument) {
			t.Errorf("construction racing Shutdown: got %v, want ErrInvalidArgument", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the parked construction to return")
	}
	if got := store.SubscriberCount(); got != 0 {
		t.Errorf("construction racing Shutdown leaked %d subscriptions", got)
	}
}

func TestChannel_FirstPropertyBaseWins(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Channel(ctx, "foo", app.WithPropertyBase("/plugins/x"))
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	b, err := svc.Channel(ctx, "foo", app.WithPropertyBase("/plugins/y"))
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	if b != a || b.PropertyBase() != "/plugins/x" {
		t.Errorf("property base = %q, want the first construction's /plugins/x", b.PropertyBase())
	}
}

func TestChannelService_InvalidArguments(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Channel(ctx, ""); !errors.Is(err, property.ErrInvalidArgument) {
		t.Errorf("empty name: got %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.Channel(ctx, "foo", app.WithPropertyBase("bad")); !errors.Is(err, property.ErrInvalidArgument) {
		t.Errorf("malformed base: got %v, want ErrInvalidArgument", err)
	}
}

func TestChannelService_ListChannels(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	store.Seed("displays", "/active", value.String("eDP-1"))
	store.Seed("panel", "/size", value.Int32(48))

	names, err := svc.ListChannels(ctx)
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(names) != 2 || names[0] != "displays" || names[1] != "panel" {
		t.Errorf("ListChannels = %v, want [displays panel]", names)
	}
}
