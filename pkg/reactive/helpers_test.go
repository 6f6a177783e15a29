package reactive

import "time"

// testComputation is a minimal Computation used to observe invalidations
// directly, without going through Computed or Effect.
type testComputation struct {
	id          uint64
	invalidated int
	sources     []*node
}

func newTestComputation() *testComputation {
	return &testComputation{id: nextID()}
}

func (t *testComputation) Invalidate() {
	t.invalidated++
}

func (t *testComputation) ID() uint64 {
	return t.id
}

func (t *testComputation) addSource(n *node) {
	for _, s := range t.sources {
		if s == n {
			return
		}
	}
	t.sources = append(t.sources, n)
}

func (t *testComputation) removeSource(n *node) {
	for i, s := range t.sources {
		if s == n {
			t.sources = append(t.sources[:i], t.sources[i+1:]...)
			return
		}
	}
}

// track runs fn with c as the tracked computation on s.
func track(s *System, c Computation, fn func()) {
	s.runTracked(c, fn)
	s.settle()
}

// countingHooks counts every instrumentation callback.
type countingHooks struct {
	created    int
	destroyed  int
	recomputes int
	effectRuns int
	flushes    int
	flushed    int
	cycles     int
	budget     int

	onBudget func(id uint64)
}

func (h *countingHooks) NodeCreated(kind NodeKind, id uint64)   { h.created++ }
func (h *countingHooks) NodeDestroyed(kind NodeKind, id uint64) { h.destroyed++ }

func (h *countingHooks) Recomputed(id uint64, d time.Duration) { h.recomputes++ }
func (h *countingHooks) EffectRan(id uint64, d time.Duration)  { h.effectRuns++ }

func (h *countingHooks) Flushed(processed int) {
	h.flushes++
	h.flushed += processed
}

func (h *countingHooks) CycleDetected(id uint64) { h.cycles++ }

func (h *countingHooks) BudgetExceeded(id uint64) {
	h.budget++
	if h.onBudget != nil {
		h.onBudget(id)
	}
}
