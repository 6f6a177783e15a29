package reactive

import "time"

// NodeKind labels the primitive type in instrumentation callbacks.
type NodeKind string

const (
	KindSignal   NodeKind = "signal"
	KindComputed NodeKind = "computed"
	KindEffect   NodeKind = "effect"
)

// Hooks is the instrumentation sink a System reports into. Implementations
// must be cheap and must not touch the graph; they are invoked
// synchronously from the propagation path.
//
// All methods are called from the system's goroutine.
type Hooks interface {
	// NodeCreated is called when a signal, computed or effect is created.
	NodeCreated(kind NodeKind, id uint64)

	// NodeDestroyed is called when a primitive is destroyed or stopped.
	NodeDestroyed(kind NodeKind, id uint64)

	// Recomputed is called after a computed's derivation ran successfully.
	Recomputed(id uint64, d time.Duration)

	// EffectRan is called after an effect body ran successfully.
	EffectRan(id uint64, d time.Duration)

	// Flushed is called at the end of a flush with the number of effect
	// invalidations processed. Computed staleness marking happens at
	// write time and is not counted here.
	Flushed(processed int)

	// CycleDetected is called just before a *CycleError panic is raised.
	CycleDetected(id uint64)

	// BudgetExceeded is called when an effect re-run is dropped because
	// the flush already hit the configured effect budget.
	BudgetExceeded(id uint64)
}

// MultiHooks fans callbacks out to several sinks in order.
func MultiHooks(hooks ...Hooks) Hooks {
	return multiHooks(hooks)
}

type multiHooks []Hooks

func (m multiHooks) NodeCreated(kind NodeKind, id uint64) {
	for _, h := range m {
		h.NodeCreated(kind, id)
	}
}

func (m multiHooks) NodeDestroyed(kind NodeKind, id uint64) {
	for _, h := range m {
		h.NodeDestroyed(kind, id)
	}
}

func (m multiHooks) Recomputed(id uint64, d time.Duration) {
	for _, h := range m {
		h.Recomputed(id, d)
	}
}

func (m multiHooks) EffectRan(id uint64, d time.Duration) {
	for _, h := range m {
		h.EffectRan(id, d)
	}
}

func (m multiHooks) Flushed(processed int) {
	for _, h := range m {
		h.Flushed(processed)
	}
}

func (m multiHooks) CycleDetected(id uint64) {
	for _, h := range m {
		h.CycleDetected(id)
	}
}

func (m multiHooks) BudgetExceeded(id uint64) {
	for _, h := range m {
		h.BudgetExceeded(id)
	}
}

// notifyCreated reports a node creation when hooks are attached.
func (s *System) notifyCreated(kind NodeKind, id uint64) {
	if s.hooks != nil {
		s.hooks.NodeCreated(kind, id)
	}
}

// notifyDestroyed reports a node teardown when hooks are attached.
func (s *System) notifyDestroyed(kind NodeKind, id uint64) {
	if s.hooks != nil {
		s.hooks.NodeDestroyed(kind, id)
	}
}
