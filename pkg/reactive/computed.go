package reactive

import "time"

// Computed is a derived, cached, lazily recomputed value. Invalidation
// only marks the cache stale; the derivation runs again the next time
// something reads the value. Expensive derivations therefore never run
// for values nobody observes, and reads always see a settled state.
type Computed[T any] struct {
	base node
	sys  *System

	compute func() T
	value   T

	// stale is true when the cached value must be recomputed before the
	// next read. A fresh computed starts stale and unevaluated.
	stale bool

	// computing guards against re-entrant evaluation.
	computing bool

	// sources are the nodes read during the last run, kept symmetric
	// with each node's subscriber list.
	sources []*node
}

// NewComputed creates a computed attached to sys. The derivation does not
// run until the first Get or Peek.
func NewComputed[T any](sys *System, compute func() T) *Computed[T] {
	c := &Computed[T]{
		base:    node{id: nextID()},
		sys:     sys,
		compute: compute,
		stale:   true,
	}
	sys.notifyCreated(KindComputed, c.base.id)
	return c
}

// Get returns the computed value, recomputing first when the cache is
// stale. If a computation is being tracked, the read registers it as a
// subscriber of this computed.
//
// Get panics with *CycleError when the computed's own evaluation is
// already in progress.
func (c *Computed[T]) Get() T {
	if c.computing {
		c.sys.checkCycle(c)
	}
	if l := c.sys.tracking(); l != nil {
		c.base.subscribe(l)
	}
	if c.stale {
		c.recompute()
	}
	c.sys.settle()
	return c.value
}

// Peek returns the value without registering a dependency for the
// ambient caller. A stale cache still recomputes, tracking the
// computed's own dependencies as usual.
func (c *Computed[T]) Peek() T {
	if c.computing {
		c.sys.checkCycle(c)
	}
	if c.stale {
		c.recompute()
	}
	c.sys.settle()
	return c.value
}

// Invalidate marks the cache stale and forwards the invalidation to this
// computed's subscribers. It never recomputes.
func (c *Computed[T]) Invalidate() {
	c.markStale()
}

// markStale implements staleMarker: the scheduler invalidates computeds
// synchronously when a write is scheduled, before any effect runs.
// Marking is idempotent; an already-stale computed forwards nothing, so
// cascades terminate.
func (c *Computed[T]) markStale() {
	if c.stale {
		return
	}
	c.stale = true
	c.sys.scheduleUpdate(c.base.snapshot())
}

// ID returns the unique identifier for this computed.
func (c *Computed[T]) ID() uint64 {
	return c.base.id
}

// Destroy unsubscribes from every dependency and detaches every
// subscriber, without notifying either side.
func (c *Computed[T]) Destroy() {
	sources := c.sources
	c.sources = nil
	for _, n := range sources {
		n.unsubscribe(c)
	}
	c.base.clear()
	c.sys.notifyDestroyed(KindComputed, c.base.id)
}

// recompute runs the derivation under tracking and replaces the
// dependency set with the nodes actually read.
//
// The previous dependency edges stay subscribed during the run; after a
// successful run, edges to nodes the new run did not read are pruned.
// On failure the old and new edges are merged instead, the cache stays
// stale, and the panic propagates after all tracking state is restored.
func (c *Computed[T]) recompute() {
	c.computing = true
	prev := c.sources
	c.sources = nil

	ok := false
	defer func() {
		c.computing = false
		if ok {
			c.prune(prev)
		} else {
			c.restore(prev)
		}
	}()

	start := time.Now()
	c.sys.runTracked(c, func() {
		c.value = c.compute()
		c.stale = false
	})
	ok = true
	if c.sys.hooks != nil {
		c.sys.hooks.Recomputed(c.base.id, time.Since(start))
	}
}

// prune removes this computed from the subscriber set of every node that
// the latest run no longer read. Without it, switched-away branches of
// the derivation would keep delivering stale notifications and the edge
// sets would grow without bound.
func (c *Computed[T]) prune(prev []*node) {
	for _, old := range prev {
		if !c.reads(old) {
			old.unsubscribe(c)
		}
	}
}

// restore merges the pre-run dependency set back in after a failed run,
// so every node that still lists this computed as a subscriber appears
// in its dependency set too.
func (c *Computed[T]) restore(prev []*node) {
	for _, old := range prev {
		if !c.reads(old) {
			c.sources = append(c.sources, old)
		}
	}
}

// reads reports whether n is in the current dependency set.
func (c *Computed[T]) reads(n *node) bool {
	for _, s := range c.sources {
		if s == n {
			return true
		}
	}
	return false
}

// addSource implements Computation.
func (c *Computed[T]) addSource(n *node) {
	if !c.reads(n) {
		c.sources = append(c.sources, n)
	}
}

// removeSource implements Computation.
func (c *Computed[T]) removeSource(n *node) {
	for i, s := range c.sources {
		if s == n {
			c.sources[i] = c.sources[len(c.sources)-1]
			c.sources[len(c.sources)-1] = nil
			c.sources = c.sources[:len(c.sources)-1]
			return
		}
	}
}
