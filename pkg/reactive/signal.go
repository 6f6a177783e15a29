package reactive

import "encoding/json"

// Signal is a writable reactive value container, the leaf of the graph.
// Reading it while a computation is tracked registers a dependency edge;
// writing it schedules notification of its subscribers.
type Signal[T any] struct {
	base node
	sys  *System

	value T

	// equal decides whether a write changed the value. nil selects
	// defaultEquals.
	equal func(T, T) bool

	persistKey string
	transient  bool
}

// SignalOption configures a signal at creation.
type SignalOption func(*signalOptions)

type signalOptions struct {
	persistKey string
	transient  bool
}

// PersistKey sets the key under which the signal is captured by a
// snapshot registry. Signals without a key are invisible to snapshots.
func PersistKey(key string) SignalOption {
	return func(o *signalOptions) {
		o.persistKey = key
	}
}

// Transient marks a signal as excluded from snapshots even when it
// carries a persist key. Use it for ephemeral state such as cursor or
// hover tracking.
func Transient() SignalOption {
	return func(o *signalOptions) {
		o.transient = true
	}
}

// NewSignal creates a signal with the given initial value, attached to sys.
func NewSignal[T any](sys *System, initial T, opts ...SignalOption) *Signal[T] {
	var options signalOptions
	for _, opt := range opts {
		opt(&options)
	}
	s := &Signal[T]{
		base:       node{id: nextID()},
		sys:        sys,
		value:      initial,
		persistKey: options.persistKey,
		transient:  options.transient,
	}
	sys.notifyCreated(KindSignal, s.base.id)
	return s
}

// Get returns the current value. If a computation is being tracked, the
// read registers it as a subscriber of this signal.
func (s *Signal[T]) Get() T {
	if c := s.sys.tracking(); c != nil {
		s.base.subscribe(c)
	}
	return s.value
}

// Peek returns the current value without registering a dependency.
func (s *Signal[T]) Peek() T {
	return s.value
}

// Set stores a new value and schedules notification of the subscribers
// present at this instant. Writing an equal value is a no-op.
func (s *Signal[T]) Set(value T) {
	if s.equals(s.value, value) {
		return
	}
	s.value = value
	s.sys.scheduleUpdate(s.base.snapshot())
}

// Update applies fn to the current value and stores the result, with the
// same no-op and notification semantics as Set.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.value))
}

// Destroy detaches every subscriber edge without notifying anyone: this
// is teardown, not an invalidation event. Former subscribers lose their
// dependency entry for this signal immediately, so edge symmetry holds
// through teardown. The signal keeps its last value and can still be
// peeked, but no new edges form through a destroyed signal's history.
func (s *Signal[T]) Destroy() {
	s.base.clear()
	s.sys.notifyDestroyed(KindSignal, s.base.id)
}

// WithEquals configures a custom equality function used by Set to decide
// whether a write changed the value. Returns the signal for chaining.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.base.id
}

// PersistKey returns the snapshot key, or "" when none was set.
func (s *Signal[T]) PersistKey() string {
	return s.persistKey
}

// IsTransient reports whether the signal opted out of snapshots.
func (s *Signal[T]) IsTransient() bool {
	return s.transient
}

// MarshalValue encodes the current value as JSON without registering a
// dependency. Used by snapshot registries.
func (s *Signal[T]) MarshalValue() ([]byte, error) {
	return json.Marshal(s.value)
}

// UnmarshalValue decodes data into the signal's value type and stores it
// through Set, so subscribers are notified when the value changed.
func (s *Signal[T]) UnmarshalValue(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.Set(v)
	return nil
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}
