package reactive

// Computation is a unit the system can invalidate: a computed value or an
// effect. Reading a source while a computation is being tracked registers
// a bidirectional edge between the two.
type Computation interface {
	// Invalidate notifies the computation that one of its dependencies
	// changed. A computed marks its cache stale and forwards the
	// invalidation; an effect re-runs its body.
	Invalidate()

	// ID returns a unique identifier, used for deduplication in the
	// pending set and for cycle detection.
	ID() uint64

	// addSource records a node the computation read during its current
	// run. Maintained together with the node's subscriber list so the
	// two sides of every edge stay symmetric.
	addSource(n *node)

	// removeSource drops a node from the computation's dependency set.
	removeSource(n *node)
}

// node provides type-erased subscriber management. It is embedded in
// Signal[T] and Computed[T] to share edge bookkeeping.
type node struct {
	id   uint64
	subs []Computation
}

// subscribe registers both sides of the edge between this node and c.
// The subscriber list stays deduplicated, but the source is re-recorded
// on every call: computations rebuild their dependency set from scratch
// on each run, so a repeat read must still land in the fresh set or the
// post-run prune would drop a live edge.
func (n *node) subscribe(c Computation) {
	cid := c.ID()
	for _, existing := range n.subs {
		if existing.ID() == cid {
			c.addSource(n)
			return
		}
	}
	n.subs = append(n.subs, c)
	c.addSource(n)
}

// unsubscribe removes both sides of the edge between this node and c.
func (n *node) unsubscribe(c Computation) {
	cid := c.ID()
	for i, existing := range n.subs {
		if existing.ID() == cid {
			n.subs[i] = n.subs[len(n.subs)-1]
			n.subs[len(n.subs)-1] = nil
			n.subs = n.subs[:len(n.subs)-1]
			c.removeSource(n)
			return
		}
	}
}

// snapshot copies the subscriber list so a notification pass is not
// affected by edges added or pruned while it runs.
func (n *node) snapshot() []Computation {
	if len(n.subs) == 0 {
		return nil
	}
	subs := make([]Computation, len(n.subs))
	copy(subs, n.subs)
	return subs
}

// clear drops all subscribers without notifying them. Each subscriber's
// dependency set is updated so edge symmetry holds through teardown.
func (n *node) clear() {
	subs := n.subs
	n.subs = nil
	for _, c := range subs {
		c.removeSource(n)
	}
}

// hasSubscriber reports whether the computation with the given ID is
// currently subscribed.
func (n *node) hasSubscriber(id uint64) bool {
	for _, c := range n.subs {
		if c.ID() == id {
			return true
		}
	}
	return false
}
