package reactive

// System owns the ambient tracking state and the scheduler for one
// dependency graph. Independent systems hold independent graphs; nodes
// must never be shared across systems.
//
// A System is confined to a single goroutine. See the package
// documentation for the execution model.
type System struct {
	// current is the computation whose dependencies are being tracked.
	// nil means reads do not register edges.
	current Computation

	// stack holds every computation whose evaluation is in progress,
	// outermost first. A computation appearing twice is a cycle.
	stack []Computation

	// batchDepth tracks nested Batch calls. While positive, scheduled
	// subscribers accumulate in pending instead of flushing.
	batchDepth int

	// pending is the flush queue of effect invalidations, in
	// first-scheduled order. Computeds never enter it; their staleness
	// is marked synchronously at schedule time.
	pending    []Computation
	pendingIDs map[uint64]struct{}

	// propagating is positive while a staleness cascade is in progress,
	// holding the flush until the outermost write has marked everything.
	propagating int

	// flushing is true while the pending queue is being drained.
	flushing bool

	// effectRuns counts effect re-runs in the current flush, checked
	// against maxEffectRuns.
	effectRuns    int
	maxEffectRuns int

	hooks Hooks
}

// Option configures a System.
type Option func(*System)

// WithHooks attaches an instrumentation sink to the system.
func WithHooks(h Hooks) Option {
	return func(s *System) {
		s.hooks = h
	}
}

// NewSystem creates an empty system with no active tracking or batch.
func NewSystem(opts ...Option) *System {
	s := &System{
		pendingIDs: make(map[uint64]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultSystem = NewSystem()

// Default returns the shared default system. Convenient for programs with
// a single graph; tests and multi-graph hosts should create their own.
func Default() *System {
	return defaultSystem
}

// Untracked runs fn with dependency tracking suspended. Signal and
// computed reads inside fn do not register edges for the computation
// that was being tracked when Untracked was called.
func (s *System) Untracked(fn func()) {
	prev := s.current
	s.current = nil
	defer func() { s.current = prev }()
	fn()
}

// Batch groups multiple writes into a single notification phase. All
// subscribers scheduled inside fn are deduplicated and flushed once when
// the outermost batch returns. Nested batches are transparent: they never
// flush early.
func (s *System) Batch(fn func()) {
	s.batchDepth++
	defer func() {
		s.batchDepth--
		if s.batchDepth == 0 && !s.flushing && len(s.stack) == 0 {
			s.flush()
		}
	}()
	fn()
}

// BatchValue runs fn inside a batch on s and returns its result.
func BatchValue[T any](s *System, fn func() T) T {
	var v T
	s.Batch(func() { v = fn() })
	return v
}

// staleMarker is the pull-evaluated side of Computation: invalidation is
// a cheap staleness mark that runs no user code. Markers are invalidated
// synchronously at schedule time instead of through the flush queue, so
// no effect can ever observe a fresh signal next to an unmarked cache.
type staleMarker interface {
	markStale()
}

// scheduleUpdate propagates a write to the given subscribers. Computeds
// are marked stale immediately, cascading through their own subscriber
// sets; effects are enqueued for the flush. When the system is idle (no
// batch, no active flush, no evaluation in progress) the queue drains
// synchronously before returning. A write made during a tracked
// evaluation defers to the settle point at the end of the outermost call
// instead, so a running body is never re-entered.
func (s *System) scheduleUpdate(subs []Computation) {
	s.propagating++
	for _, c := range subs {
		if m, ok := c.(staleMarker); ok {
			m.markStale()
			continue
		}
		s.enqueue(c)
	}
	s.propagating--
	if s.propagating > 0 || s.batchDepth > 0 || s.flushing || len(s.stack) > 0 {
		return
	}
	s.flush()
}

// settle drains writes that were deferred because they happened during a
// tracked evaluation. Called at the public API boundaries after the
// evaluation stack has fully unwound.
func (s *System) settle() {
	if s.batchDepth == 0 && !s.flushing && len(s.stack) == 0 && len(s.pending) > 0 {
		s.flush()
	}
}

// enqueue appends c to the pending queue unless it is already waiting.
// Membership is idempotent; a computation runs at most once per pass
// unless it is re-scheduled after being processed.
func (s *System) enqueue(c Computation) {
	if _, ok := s.pendingIDs[c.ID()]; ok {
		return
	}
	s.pendingIDs[c.ID()] = struct{}{}
	s.pending = append(s.pending, c)
}

// flush drains the pending effect queue in first-scheduled order.
// Invalidations scheduled by writes inside effect bodies join the same
// queue and run in the same pass.
//
// A panic from one effect does not starve its siblings: the remaining
// queue is still processed, and the first recovered value is re-raised
// once the flush is complete.
func (s *System) flush() {
	if len(s.pending) == 0 {
		return
	}
	s.flushing = true
	s.effectRuns = 0
	processed := 0
	var caught any
	for len(s.pending) > 0 {
		c := s.pending[0]
		s.pending = s.pending[1:]
		delete(s.pendingIDs, c.ID())
		processed++
		if r := s.invalidateIsolated(c); r != nil && caught == nil {
			caught = r
		}
	}
	s.flushing = false
	if s.hooks != nil {
		s.hooks.Flushed(processed)
	}
	if caught != nil {
		panic(caught)
	}
}

// invalidateIsolated invokes c.Invalidate and converts a panic into a
// returned value so the flush loop can keep going.
func (s *System) invalidateIsolated(c Computation) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	c.Invalidate()
	return nil
}

// runTracked executes fn with c as the tracked computation. It pushes c
// onto the evaluation stack, detects cycles, and unconditionally restores
// the previous tracking state, even when fn panics.
//
// A panic from fn is re-raised wrapped in *EvalError; *CycleError and
// *EvalError values pass through unwrapped so the innermost failure is
// the one the caller observes.
func (s *System) runTracked(c Computation, fn func()) {
	s.checkCycle(c)
	s.stack = append(s.stack, c)
	prev := s.current
	s.current = c
	defer func() {
		s.current = prev
		s.stack = s.stack[:len(s.stack)-1]
		if r := recover(); r != nil {
			switch r.(type) {
			case *CycleError, *EvalError:
				panic(r)
			default:
				panic(&EvalError{NodeID: c.ID(), Value: r})
			}
		}
	}()
	fn()
}

// checkCycle panics with *CycleError when c is already anywhere on the
// evaluation stack. The whole stack is searched, not just the top,
// because diamond-shaped graphs can revisit a node through different
// paths within one pass.
func (s *System) checkCycle(c Computation) {
	cid := c.ID()
	for _, active := range s.stack {
		if active.ID() == cid {
			path := make([]uint64, len(s.stack))
			for i, a := range s.stack {
				path[i] = a.ID()
			}
			if s.hooks != nil {
				s.hooks.CycleDetected(cid)
			}
			panic(&CycleError{NodeID: cid, Path: path})
		}
	}
}

// tracking returns the computation currently being tracked, or nil.
func (s *System) tracking() Computation {
	return s.current
}
