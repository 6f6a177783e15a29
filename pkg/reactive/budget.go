package reactive

// WithEffectBudget caps the number of effect re-runs a single flush may
// perform. Zero (the default) means no limit.
//
// When the cap is hit, further effect re-runs in the same flush are
// dropped and reported through Hooks.BudgetExceeded. The effect keeps its
// subscriptions, so the next independent write triggers it normally. Use
// the budget as a tripwire for effect storms (effects whose bodies write
// signals that feed back into other effects), not as a scheduling tool.
func WithEffectBudget(maxRunsPerFlush int) Option {
	return func(s *System) {
		s.maxEffectRuns = maxRunsPerFlush
	}
}

// allowEffectRun checks the per-flush effect budget. Initial effect runs
// at creation are never counted; only re-runs triggered by invalidation
// pass through here.
func (s *System) allowEffectRun(id uint64) bool {
	if s.maxEffectRuns == 0 {
		return true
	}
	if s.effectRuns >= s.maxEffectRuns {
		if s.hooks != nil {
			s.hooks.BudgetExceeded(id)
		}
		return false
	}
	s.effectRuns++
	return true
}
