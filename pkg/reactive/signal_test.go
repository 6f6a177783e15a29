package reactive

import "testing"

func TestSignalBasic(t *testing.T) {
	sys := NewSystem()
	count := NewSignal(sys, 0)

	if count.Get() != 0 {
		t.Errorf("expected initial value 0, got %d", count.Get())
	}

	count.Set(5)
	if count.Get() != 5 {
		t.Errorf("expected value 5, got %d", count.Get())
	}

	count.Update(func(n int) int { return n * 2 })
	if count.Get() != 10 {
		t.Errorf("expected value 10, got %d", count.Get())
	}
}

func TestSignalPeekDoesNotSubscribe(t *testing.T) {
	sys := NewSystem()
	count := NewSignal(sys, 42)
	tc := newTestComputation()

	track(sys, tc, func() {
		if v := count.Peek(); v != 42 {
			t.Errorf("expected 42, got %d", v)
		}
	})

	count.Set(100)
	if tc.invalidated != 0 {
		t.Errorf("Peek should not subscribe, got %d invalidations", tc.invalidated)
	}
}

func TestSignalTrackedReadSubscribes(t *testing.T) {
	sys := NewSystem()
	count := NewSignal(sys, 0)
	tc := newTestComputation()

	track(sys, tc, func() {
		_ = count.Get()
	})

	count.Set(1)
	if tc.invalidated != 1 {
		t.Errorf("expected 1 invalidation, got %d", tc.invalidated)
	}

	count.Set(2)
	if tc.invalidated != 2 {
		t.Errorf("expected 2 invalidations, got %d", tc.invalidated)
	}
}

func TestSignalNoOpWrite(t *testing.T) {
	sys := NewSystem()
	count := NewSignal(sys, 7)
	tc := newTestComputation()

	track(sys, tc, func() {
		_ = count.Get()
	})

	count.Set(count.Peek())
	if tc.invalidated != 0 {
		t.Errorf("unchanged write should not notify, got %d invalidations", tc.invalidated)
	}
}

func TestSignalUntrackedReadOutsideContext(t *testing.T) {
	sys := NewSystem()
	count := NewSignal(sys, 0)
	tc := newTestComputation()

	_ = count.Get() // no tracked computation

	count.Set(1)
	if tc.invalidated != 0 {
		t.Errorf("expected 0 invalidations, got %d", tc.invalidated)
	}
}

func TestSignalCustomEquals(t *testing.T) {
	sys := NewSystem()
	// Treat values as equal when they round to the same integer.
	price := NewSignal(sys, 10.2).WithEquals(func(a, b float64) bool {
		return int(a) == int(b)
	})
	tc := newTestComputation()

	track(sys, tc, func() {
		_ = price.Get()
	})

	price.Set(10.9)
	if tc.invalidated != 0 {
		t.Errorf("equal by custom comparison, expected no invalidation, got %d", tc.invalidated)
	}

	price.Set(11.5)
	if tc.invalidated != 1 {
		t.Errorf("expected 1 invalidation, got %d", tc.invalidated)
	}
}

func TestSignalEdgeSymmetry(t *testing.T) {
	sys := NewSystem()
	count := NewSignal(sys, 0)
	tc := newTestComputation()

	track(sys, tc, func() {
		_ = count.Get()
	})

	if !count.base.hasSubscriber(tc.ID()) {
		t.Error("signal should list the computation as subscriber")
	}
	found := false
	for _, n := range tc.sources {
		if n == &count.base {
			found = true
		}
	}
	if !found {
		t.Error("computation should list the signal as dependency")
	}
}

func TestSignalDestroySilent(t *testing.T) {
	sys := NewSystem()
	count := NewSignal(sys, 0)
	tc := newTestComputation()

	track(sys, tc, func() {
		_ = count.Get()
	})

	count.Destroy()
	if tc.invalidated != 0 {
		t.Errorf("destroy must not notify subscribers, got %d invalidations", tc.invalidated)
	}
	if len(tc.sources) != 0 {
		t.Errorf("destroy should detach both edge sides, %d dependencies left", len(tc.sources))
	}

	count.Set(99)
	if tc.invalidated != 0 {
		t.Errorf("writes after destroy must not notify, got %d invalidations", tc.invalidated)
	}
}

func TestSignalDeepEqualFallback(t *testing.T) {
	sys := NewSystem()
	s := NewSignal(sys, []int{1, 2})
	tc := newTestComputation()

	track(sys, tc, func() {
		_ = s.Get()
	})

	s.Set([]int{1, 2})
	if tc.invalidated != 0 {
		t.Errorf("deep-equal slice should be a no-op write, got %d invalidations", tc.invalidated)
	}

	s.Set([]int{1, 2, 3})
	if tc.invalidated != 1 {
		t.Errorf("expected 1 invalidation, got %d", tc.invalidated)
	}
}
