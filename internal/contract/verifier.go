package contract

import (
	"time"
)

// VerifierConfig fixes the process-wide verification state for one
// compilation session.
type VerifierConfig struct {
	DefaultMode   Mode
	Solver        Solver
	SolverVersion string
	CacheCapacity int
	UnitBudget    time.Duration

	// CachePath, when non-empty, is where verdicts are persisted between
	// sessions. Persistence is best-effort and never required for
	// correctness: verdicts for identical inputs are identical with the
	// cache cold or warm, only timing differs.
	CachePath string
}

// Verifier bundles the router, adapter, and verdict caches behind the one
// explicit init/shutdown pair a compilation session calls around its run.
type Verifier struct {
	Router  *Router
	Adapter *SMTAdapter
	config  VerifierConfig
}

// Initialize builds the process-wide verification state: the SMT adapter,
// its verdict cache (warm-started from disk when configured), and the
// router over both.
func Initialize(config VerifierConfig) *Verifier {
	capacity := config.CacheCapacity
	if capacity <= 0 {
		capacity = 1024
	}
	adapter := NewSMTAdapter(config.Solver, config.SolverVersion, capacity)
	adapter.Init(config.UnitBudget)

	router := NewRouter(config.DefaultMode, adapter, capacity)

	v := &Verifier{Router: router, Adapter: adapter, config: config}
	if config.CachePath != "" {
		// A missing or stale cache file only costs re-solving.
		_ = adapter.Cache().Load(config.CachePath)
		_ = router.Tier2Cache().Load(config.CachePath + ".tier2")
	}
	return v
}

// Shutdown persists the verdict caches (best-effort) and releases solver
// resources. Called exactly once at the end of the compilation session.
func (v *Verifier) Shutdown() error {
	if v.config.CachePath != "" {
		_ = v.Adapter.Cache().Save(v.config.CachePath)
		_ = v.Router.Tier2Cache().Save(v.config.CachePath + ".tier2")
	}
	return v.Adapter.Shutdown()
}
