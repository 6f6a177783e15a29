package reactive

// Scope is a disposal tree for reactive primitives. A host (a component,
// a session, a connection) creates a scope, attaches effects and cleanup
// callbacks to it, and tears everything down with a single Dispose when
// its own lifetime ends. Scopes nest: disposing a parent disposes its
// children first.
//
// The core performs no automatic reclamation of abandoned nodes; scopes
// are how collaborators meet their teardown obligation.
type Scope struct {
	parent   *Scope
	children []*Scope
	effects  []*Effect
	cleanups []func()
	disposed bool
}

// NewScope creates a scope under parent. A nil parent creates a root.
func NewScope(parent *Scope) *Scope {
	sc := &Scope{parent: parent}
	if parent != nil {
		parent.children = append(parent.children, sc)
	}
	return sc
}

// OnCleanup registers fn to run when the scope is disposed. Cleanups run
// in reverse registration order. Registering on a disposed scope runs fn
// immediately.
func (sc *Scope) OnCleanup(fn func()) {
	if sc.disposed {
		fn()
		return
	}
	sc.cleanups = append(sc.cleanups, fn)
}

// IsDisposed reports whether Dispose has run.
func (sc *Scope) IsDisposed() bool {
	return sc.disposed
}

// Dispose tears down the scope: children first (most recent first), then
// owned effects, then cleanups in reverse order. Idempotent.
func (sc *Scope) Dispose() {
	if sc.disposed {
		return
	}
	sc.disposed = true

	if sc.parent != nil {
		sc.parent.removeChild(sc)
	}

	children := sc.children
	sc.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	effects := sc.effects
	sc.effects = nil
	for _, e := range effects {
		e.Stop()
	}

	cleanups := sc.cleanups
	sc.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (sc *Scope) registerEffect(e *Effect) {
	if sc.disposed {
		e.Stop()
		return
	}
	sc.effects = append(sc.effects, e)
}

func (sc *Scope) removeChild(child *Scope) {
	for i, c := range sc.children {
		if c == child {
			sc.children = append(sc.children[:i], sc.children[i+1:]...)
			return
		}
	}
}
