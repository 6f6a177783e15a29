// Package reactive provides a fine-grained signal propagation runtime.
//
// Dependencies are tracked automatically at run time: reading a signal
// while a computation is being tracked subscribes that computation to the
// signal's changes.
//
// # Core Types
//
// Signal[T] is a writable reactive value container:
//
//	sys := reactive.NewSystem()
//	count := reactive.NewSignal(sys, 0)
//	value := count.Get()  // Read (subscribes the current computation)
//	count.Set(5)          // Write (notifies subscribers)
//	count.Update(func(n int) int { return n + 1 })
//
// Computed[T] is a cached derived value, recomputed lazily on read:
//
//	doubled := reactive.NewComputed(sys, func() int { return count.Get() * 2 })
//	value := doubled.Get()  // Recomputes only if a dependency changed
//
// Effect runs a side effect whenever one of its dependencies changes:
//
//	e := reactive.NewEffect(sys, func() reactive.Cleanup {
//	    fmt.Println("Count is:", count.Get())
//	    return nil
//	})
//	defer e.Stop()
//
// # Batching
//
// Multiple writes can be batched into a single notification phase:
//
//	sys.Batch(func() {
//	    a.Set(1)
//	    b.Set(2)
//	})  // Each affected subscriber is processed once, after both writes
//
// Staleness propagates through computeds synchronously when a write is
// scheduled; affected effects then run once each, in the order they were
// first scheduled. A computed is therefore always marked stale before any
// effect that depends on it runs, so an effect reading several touched
// values observes the fully settled state regardless of subscription
// order.
//
// # Execution Model
//
// A System and every node attached to it are confined to a single
// goroutine. Get, Set, Peek, recomputation and effect re-runs all complete
// synchronously before returning; the core never suspends and takes no
// locks. Callers that need cross-goroutine access must serialize it
// themselves (see the live package for a dispatch-loop example).
//
// Circular dependencies panic with *CycleError. A panic raised by a
// derivation or effect body is re-raised to the caller wrapped in
// *EvalError after the tracking state has been fully restored; the
// affected computed stays stale, so a later read retries the derivation.
package reactive
