// Package live exposes a reactive graph over HTTP and WebSocket.
//
// A Bridge owns a reactive.System and confines it to a single dispatch
// goroutine; all reads and writes from HTTP handlers and WebSocket
// connections are funneled through that goroutine, so the graph never
// needs locks. Expose publishes a signal under a name; connected
// clients receive a hello frame with current values, then an update
// frame after every settled change, and may write exposed signals with
// set frames.
package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/lumen-dev/lumen/pkg/reactive"
)

// cell is one exposed signal: a tracked JSON read and a JSON write.
type cell struct {
	read func() json.RawMessage
	set  func(data []byte) error
}

// Bridge connects a reactive system to network clients.
type Bridge struct {
	sys    *reactive.System
	logger *slog.Logger

	// cells is touched only on the dispatch goroutine.
	cells map[string]*cell

	dispatchCh chan func()
	done       chan struct{}

	config Config
}

// NewBridge creates a bridge around sys and starts its dispatch loop.
// The caller must not touch sys directly afterwards; use Dispatch or
// Sync to run code on the graph's goroutine.
func NewBridge(sys *reactive.System, opts ...BridgeOption) *Bridge {
	config := defaultBridgeConfig()
	for _, opt := range opts {
		opt(&config)
	}
	b := &Bridge{
		sys:        sys,
		logger:     config.Logger.With("component", "live"),
		cells:      make(map[string]*cell),
		dispatchCh: make(chan func(), config.DispatchQueue),
		done:       make(chan struct{}),
		config:     config,
	}
	go b.loop()
	return b
}

// System returns the bridge's reactive system. Only touch it from
// functions run via Dispatch or Sync.
func (b *Bridge) System() *reactive.System {
	return b.sys
}

// Dispatch queues fn to run on the graph's goroutine. It drops the
// function when the bridge is closed.
func (b *Bridge) Dispatch(fn func()) {
	select {
	case b.dispatchCh <- fn:
	case <-b.done:
	}
}

// Sync runs fn on the graph's goroutine and waits for it to finish.
// Returns false when the bridge is closed.
func (b *Bridge) Sync(fn func()) bool {
	ran := make(chan struct{})
	select {
	case b.dispatchCh <- func() {
		defer close(ran)
		fn()
	}:
	case <-b.done:
		return false
	}
	select {
	case <-ran:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the dispatch loop. Connected clients are dropped as their
// loops notice the closed bridge.
func (b *Bridge) Close() {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
}

func (b *Bridge) loop() {
	for {
		select {
		case fn := <-b.dispatchCh:
			b.execute(fn)
		case <-b.done:
			return
		}
	}
}

// execute runs one dispatched function with panic recovery, so a bad
// client write cannot take down the whole graph loop.
func (b *Bridge) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Expose publishes sig under name. Clients see its value in hello and
// update frames and may write it with set frames. Must be called before
// clients connect; it runs on the graph's goroutine.
func Expose[T any](b *Bridge, name string, sig *reactive.Signal[T]) error {
	var err error
	ok := b.Sync(func() {
		if _, exists := b.cells[name]; exists {
			err = fmt.Errorf("live: name %q already exposed", name)
			return
		}
		b.cells[name] = &cell{
			read: func() json.RawMessage {
				data, merr := json.Marshal(sig.Get())
				if merr != nil {
					return json.RawMessage("null")
				}
				return data
			},
			set: sig.UnmarshalValue,
		}
	})
	if !ok {
		return fmt.Errorf("live: bridge closed")
	}
	return err
}

// values reads every exposed cell. Tracked when called inside an
// effect body on the dispatch goroutine; a plain read otherwise.
func (b *Bridge) values() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(b.cells))
	for name, c := range b.cells {
		out[name] = c.read()
	}
	return out
}
