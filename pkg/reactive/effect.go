package reactive

import "time"

// Cleanup is a function returned by an effect body to release resources.
// It is called before the effect re-runs and when the effect is stopped.
type Cleanup func()

// Effect is an eagerly re-run side-effect subscriber. It runs its body
// once at creation under tracking and re-runs it whenever one of its
// dependencies is invalidated. Effects cache nothing; their purpose is
// the observable side effect itself.
type Effect struct {
	id  uint64
	sys *System

	fn      func() Cleanup
	cleanup Cleanup

	sources []*node
	stopped bool
}

// EffectOption configures an effect at creation.
type EffectOption func(*effectOptions)

type effectOptions struct {
	scope *Scope
}

// InScope attaches the effect to a scope, which will stop it when the
// scope is disposed.
func InScope(sc *Scope) EffectOption {
	return func(o *effectOptions) {
		o.scope = sc
	}
}

// NewEffect creates an effect attached to sys and runs its body
// immediately. Stop the effect to detach it permanently.
func NewEffect(sys *System, fn func() Cleanup, opts ...EffectOption) *Effect {
	var options effectOptions
	for _, opt := range opts {
		opt(&options)
	}
	e := &Effect{
		id:  nextID(),
		sys: sys,
		fn:  fn,
	}
	if options.scope != nil {
		options.scope.registerEffect(e)
	}
	sys.notifyCreated(KindEffect, e.id)
	e.run()
	sys.settle()
	return e
}

// Invalidate re-runs the body immediately. Effects are push-evaluated:
// a side effect must occur when its inputs change, there is no value to
// pull later. Implements Computation.
func (e *Effect) Invalidate() {
	if e.stopped {
		return
	}
	if !e.sys.allowEffectRun(e.id) {
		return
	}
	e.run()
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// Stop runs the last cleanup, unsubscribes from every dependency and
// permanently disables further re-runs. It is idempotent and is the only
// cancellation primitive: a stopped effect cannot be resumed.
func (e *Effect) Stop() {
	if e.stopped {
		return
	}
	e.stopped = true
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
	sources := e.sources
	e.sources = nil
	for _, n := range sources {
		n.unsubscribe(e)
	}
	e.sys.notifyDestroyed(KindEffect, e.id)
}

// run executes the body under tracking, replacing the dependency set
// with the nodes actually read, after invoking the previous cleanup.
func (e *Effect) run() {
	if e.stopped {
		return
	}
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	prev := e.sources
	e.sources = nil

	ok := false
	defer func() {
		if ok {
			e.prune(prev)
		} else {
			e.restore(prev)
		}
	}()

	start := time.Now()
	e.sys.runTracked(e, func() {
		e.cleanup = e.fn()
	})
	ok = true
	if e.sys.hooks != nil {
		e.sys.hooks.EffectRan(e.id, time.Since(start))
	}
}

// prune drops subscriptions to nodes the latest run did not read.
func (e *Effect) prune(prev []*node) {
	for _, old := range prev {
		if !e.reads(old) {
			old.unsubscribe(e)
		}
	}
}

// restore merges the pre-run dependency set back in after a failed run.
func (e *Effect) restore(prev []*node) {
	for _, old := range prev {
		if !e.reads(old) {
			e.sources = append(e.sources, old)
		}
	}
}

func (e *Effect) reads(n *node) bool {
	for _, s := range e.sources {
		if s == n {
			return true
		}
	}
	return false
}

// addSource implements Computation.
func (e *Effect) addSource(n *node) {
	if !e.reads(n) {
		e.sources = append(e.sources, n)
	}
}

// removeSource implements Computation.
func (e *Effect) removeSource(n *node) {
	for i, s := range e.sources {
		if s == n {
			e.sources[i] = e.sources[len(e.sources)-1]
			e.sources[len(e.sources)-1] = nil
			e.sources = e.sources[:len(e.sources)-1]
			return
		}
	}
}
