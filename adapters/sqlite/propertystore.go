package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/artpar/confchan/domain/property"
	"github.com/artpar/confchan/domain/value"
	"github.com/artpar/confchan/ports"
)

// PropertyStore implements ports.RemoteStore on SQLite. Values are
// stored as JSON in their wire shape. SQLite has no change
// notification, so the store fans events out to its own subscribers;
// the daemon is the single writer, which makes that sufficient.
type PropertyStore struct {
	db *DB

	mu   sync.Mutex
	subs map[string]*subscription
}

// NewPropertyStore creates a property store over an opened database.
func NewPropertyStore(db *DB) *PropertyStore {
	return &PropertyStore{
		db:   db,
		subs: make(map[string]*subscription),
	}
}

// Get retrieves the value of a property.
func (s *PropertyStore) Get(ctx context.Context, channel, path string) (value.Value, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM properties WHERE channel = ? AND path = ?`,
		channel, path,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return value.Unset, fmt.Errorf("%w: %s%s", property.ErrNotFound, channel, path)
		}
		return value.Unset, fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
	}

	var v value.Value
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return value.Unset, fmt.Errorf("%w: decode stored value: %v", property.ErrRemoteFailure, err)
	}
	return v, nil
}

// Set stores a value, refusing locked properties, and notifies
// subscribers.
func (s *PropertyStore) Set(ctx context.Context, channel, path string, v value.Value) error {
	locked, err := s.IsLocked(ctx, channel, path)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("%w: property %s%s is locked", property.ErrRemoteFailure, channel, path)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode value: %v", property.ErrRemoteFailure, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO properties (channel, path, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(channel, path) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		channel, path, string(raw),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
	}

	s.deliver(channel, ports.Event{Channel: channel, Path: path, Value: v})
	return nil
}

// Reset removes a property, or a whole subtree when recursive, and
// emits an unset event for every removed path. The store keeps no
// schema defaults, so reset is always removal.
func (s *PropertyStore) Reset(ctx context.Context, channel, path string, recursive bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
	}
	defer tx.Rollback()

	query := `SELECT path FROM properties WHERE channel = ? AND path = ?`
	args := []any{channel, path}
	if recursive {
		if path == property.Root {
			query = `SELECT path FROM properties WHERE channel = ?`
			args = []any{channel}
		} else {
			query = `SELECT path FROM properties WHERE channel = ? AND (path = ? OR path LIKE ?)`
			args = []any{channel, path, path + "/%"}
		}
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
	}
	var removed []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
		}
		removed = append(removed, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
	}

	for _, p := range removed {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM properties WHERE channel = ? AND path = ?`,
			channel, p,
		); err != nil {
			return fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
	}

	sort.Strings(removed)
	for _, p := range removed {
		s.deliver(channel, ports.Event{Channel: channel, Path: p, Value: value.Unset})
	}
	return nil
}

// ListProperties returns all properties at or under path.
func (s *PropertyStore) ListProperties(ctx context.Context, channel, path string) (map[string]value.Value, error) {
	query := `SELECT path, value FROM properties WHERE channel = ? AND (path = ? OR path LIKE ?)`
	args := []any{channel, path, path + "/%"}
	if path == property.Root {
		query = `SELECT path, value FROM properties WHERE channel = ?`
		args = []any{channel}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
	}
	defer rows.Close()

	out := make(map[string]value.Value)
	for rows.Next() {
		var p, raw string
		if err := rows.Scan(&p, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
		}
		var v value.Value
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("%w: decode stored value at %s: %v", property.ErrRemoteFailure, p, err)
		}
		out[p] = v
	}
	return out, rows.Err()
}

// IsLocked reports whether system policy forbids writing path.
func (s *PropertyStore) IsLocked(ctx context.Context, channel, path string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM locks WHERE channel = ? AND path = ?`,
		channel, path,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
	}
	return n > 0, nil
}

// ListChannels returns all channel names in sorted order.
func (s *PropertyStore) ListChannels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT channel FROM properties ORDER BY channel`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Subscribe opens an event feed for one channel name.
func (s *PropertyStore) Subscribe(ctx context.Context, channel string) (ports.Subscription, error) {
	sub := &subscription{
		id:      uuid.New().String(),
		channel: channel,
		store:   s,
		events:  make(chan ports.Event, 64),
		done:    make(chan struct{}),
	}
	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()
	return sub, nil
}

// Lock marks a property as locked by policy. Used when seeding policy
// from daemon configuration.
func (s *PropertyStore) Lock(ctx context.Context, channel, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO locks (channel, path) VALUES (?, ?)
		ON CONFLICT(channel, path) DO NOTHING`,
		channel, path,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
	}
	return nil
}

func (s *PropertyStore) deliver(channel string, ev ports.Event) {
	s.mu.Lock()
	var subs []*subscription
	for _, sub := range s.subs {
		if sub.channel == channel {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.events <- ev:
		case <-sub.done:
		}
	}
}

func (s *PropertyStore) unsubscribe(id string) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

type subscription struct {
	id      string
	channel string
	store   *PropertyStore
	events  chan ports.Event
	done    chan struct{}
	once    sync.Once
}

func (s *subscription) Events() <-chan ports.Event { return s.events }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.store.unsubscribe(s.id)
		close(s.done)
	})
	return nil
}

// Ensure interface compliance.
var (
	_ ports.RemoteStore  = (*PropertyStore)(nil)
	_ ports.Subscription = (*subscription)(nil)
)
