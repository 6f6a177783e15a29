package reactive

import "testing"

func TestBatchCoalesces(t *testing.T) {
	sys := NewSystem()
	a := NewSignal(sys, 0)
	b := NewSignal(sys, 0)

	runs := 0
	var seen int
	e := NewEffect(sys, func() Cleanup {
		runs++
		seen = a.Get() + b.Get()
		return nil
	})
	defer e.Stop()

	sys.Batch(func() {
		a.Set(1)
		b.Set(2)

		// Nothing flushes while the batch is open.
		if runs != 1 {
			t.Errorf("expected no re-run inside the batch, got %d runs", runs)
		}
	})

	if runs != 2 {
		t.Errorf("expected exactly one re-run after the batch, got %d runs", runs)
	}
	if seen != 3 {
		t.Errorf("expected the settled post-batch state 3, got %d", seen)
	}
}

func TestBatchNested(t *testing.T) {
	sys := NewSystem()
	a := NewSignal(sys, 0)

	runs := 0
	e := NewEffect(sys, func() Cleanup {
		runs++
		_ = a.Get()
		return nil
	})
	defer e.Stop()

	sys.Batch(func() {
		sys.Batch(func() {
			a.Set(1)
		})
		if runs != 1 {
			t.Errorf("inner batch must not flush, got %d runs", runs)
		}
		a.Set(2)
	})

	if runs != 2 {
		t.Errorf("expected one flush after the outer batch, got %d runs", runs)
	}
}

func TestBatchRepeatedWritesOneNotification(t *testing.T) {
	sys := NewSystem()
	a := NewSignal(sys, 0)
	tc := newTestComputation()

	track(sys, tc, func() {
		_ = a.Get()
	})

	sys.Batch(func() {
		a.Set(1)
		a.Set(2)
		a.Set(3)
	})

	if tc.invalidated != 1 {
		t.Errorf("repeated writes inside one batch must invalidate once, got %d", tc.invalidated)
	}
	if a.Peek() != 3 {
		t.Errorf("expected final value 3, got %d", a.Peek())
	}
}

func TestBatchFlushOrderIsFirstScheduled(t *testing.T) {
	sys := NewSystem()
	s1 := NewSignal(sys, 0)
	s2 := NewSignal(sys, 0)

	var order []string
	e1 := NewEffect(sys, func() Cleanup {
		_ = s1.Get()
		order = append(order, "e1")
		return nil
	})
	defer e1.Stop()
	e2 := NewEffect(sys, func() Cleanup {
		_ = s2.Get()
		order = append(order, "e2")
		return nil
	})
	defer e2.Stop()

	order = nil
	sys.Batch(func() {
		s2.Set(1) // schedules e2 first
		s1.Set(1)
	})

	if len(order) != 2 || order[0] != "e2" || order[1] != "e1" {
		t.Errorf("expected first-scheduled order [e2 e1], got %v", order)
	}
}

func TestBatchValueReturnsResult(t *testing.T) {
	sys := NewSystem()
	a := NewSignal(sys, 1)

	got := BatchValue(sys, func() int {
		a.Set(10)
		return a.Peek() * 2
	})

	if got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
}

func TestBatchThroughComputedSettled(t *testing.T) {
	sys := NewSystem()
	first := NewSignal(sys, "Ada")
	last := NewSignal(sys, "Lovelace")
	full := NewComputed(sys, func() string { return first.Get() + " " + last.Get() })

	var observed []string
	e := NewEffect(sys, func() Cleanup {
		observed = append(observed, full.Get())
		return nil
	})
	defer e.Stop()

	sys.Batch(func() {
		first.Set("Grace")
		last.Set("Hopper")
	})

	if len(observed) != 2 {
		t.Fatalf("expected 2 observations, got %d: %v", len(observed), observed)
	}
	// Never the torn intermediate "Grace Lovelace".
	if observed[1] != "Grace Hopper" {
		t.Errorf("expected settled value, got %q", observed[1])
	}
}

func TestUntracked(t *testing.T) {
	sys := NewSystem()
	a := NewSignal(sys, 1)
	b := NewSignal(sys, 2)

	runs := 0
	e := NewEffect(sys, func() Cleanup {
		runs++
		_ = a.Get()
		sys.Untracked(func() {
			_ = b.Get()
		})
		return nil
	})
	defer e.Stop()

	b.Set(99)
	if runs != 1 {
		t.Errorf("untracked read must not subscribe, got %d runs", runs)
	}

	a.Set(2)
	if runs != 2 {
		t.Errorf("tracked read must still subscribe, got %d runs", runs)
	}
}
