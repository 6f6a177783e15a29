// Package snapshot captures and restores the values of named signals.
//
// A Registry binds signals created with reactive.PersistKey to stable
// keys. Snapshot serializes their current values to JSON; Restore writes
// a previously captured snapshot back through the signals' normal Set
// path inside a single batch, so dependents settle in one flush.
//
// Stores are pluggable: MemoryStore for tests and single-process use,
// S3Store for durable storage.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/lumen-dev/lumen/pkg/reactive"
)

// ErrNotFound is returned by a Store when no snapshot exists for a key.
var ErrNotFound = errors.New("snapshot: not found")

// ErrNoKey is returned when registering a signal without a persist key.
var ErrNoKey = errors.New("snapshot: signal has no persist key")

// ErrDuplicateKey is returned when a key is registered twice.
var ErrDuplicateKey = errors.New("snapshot: duplicate persist key")

// Cell is the slice of the signal surface a registry needs: JSON access
// to the value. *reactive.Signal[T] implements it for any T.
type Cell interface {
	MarshalValue() ([]byte, error)
	UnmarshalValue(data []byte) error
}

// KeyedCell is a Cell that carries its own persistence identity, as
// signals created with reactive.PersistKey do.
type KeyedCell interface {
	Cell
	PersistKey() string
	IsTransient() bool
}

// Store persists encoded snapshots under string keys.
type Store interface {
	// Save writes data under key, replacing any previous snapshot.
	Save(ctx context.Context, key string, data []byte) error

	// Load reads the snapshot stored under key.
	// Returns ErrNotFound when none exists.
	Load(ctx context.Context, key string) ([]byte, error)
}

// Registry tracks the cells that participate in snapshots. A registry
// belongs to the same goroutine as the system its signals live on.
type Registry struct {
	sys   *reactive.System
	cells map[string]Cell
}

// NewRegistry creates an empty registry for signals on sys.
func NewRegistry(sys *reactive.System) *Registry {
	return &Registry{
		sys:   sys,
		cells: make(map[string]Cell),
	}
}

// Add binds a cell to an explicit key.
func (r *Registry) Add(key string, c Cell) error {
	if key == "" {
		return ErrNoKey
	}
	if _, ok := r.cells[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	r.cells[key] = c
	return nil
}

// Register binds a keyed cell under its own persist key. Transient
// cells are skipped silently; a missing key is an error.
func (r *Registry) Register(c KeyedCell) error {
	if c.IsTransient() {
		return nil
	}
	return r.Add(c.PersistKey(), c)
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.cells))
	for k := range r.cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot encodes the current value of every registered cell.
// Values are read without registering dependencies.
func (r *Registry) Snapshot() ([]byte, error) {
	values := make(map[string]json.RawMessage, len(r.cells))
	for key, c := range r.cells {
		data, err := c.MarshalValue()
		if err != nil {
			return nil, fmt.Errorf("snapshot: encode %q: %w", key, err)
		}
		values[key] = data
	}
	return json.Marshal(values)
}

// Apply decodes a snapshot and writes every matching value back through
// its cell inside one batch, so all dependents see a single settled
// update. Keys present in the snapshot but absent from the registry are
// ignored; they belong to signals the host no longer creates.
func (r *Registry) Apply(data []byte) error {
	var values map[string]json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("snapshot: decode: %w", err)
	}

	var firstErr error
	r.sys.Batch(func() {
		for key, raw := range values {
			c, ok := r.cells[key]
			if !ok {
				continue
			}
			if err := c.UnmarshalValue(raw); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("snapshot: apply %q: %w", key, err)
			}
		}
	})
	return firstErr
}

// Save captures a snapshot and writes it to the store under key.
func (r *Registry) Save(ctx context.Context, store Store, key string) error {
	data, err := r.Snapshot()
	if err != nil {
		return err
	}
	return store.Save(ctx, key, data)
}

// Restore loads the snapshot stored under key and applies it.
func (r *Registry) Restore(ctx context.Context, store Store, key string) error {
	data, err := store.Load(ctx, key)
	if err != nil {
		return err
	}
	return r.Apply(data)
}

// MemoryStore keeps snapshots in a map. It is not safe for concurrent
// use; wrap it when sharing across goroutines.
type MemoryStore struct {
	snapshots map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]byte)}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.snapshots[key] = buf
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	data, ok := m.snapshots[key]
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}
