package contract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aria-lang/ariac/internal/ast"
	"github.com/stretchr/testify/require"
)

func TestVerifierLifecyclePersistsVerdictsBetweenSessions(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "verdicts.json")
	clause := requiresClause("x > 0", leaf("lit"))

	firstSolver := &stubSolver{result: UNSAT}
	v1 := Initialize(VerifierConfig{
		DefaultMode:   Full,
		Solver:        firstSolver,
		SolverVersion: "z3-4.12",
		CachePath:     cachePath,
	})
	outcomes, _ := v1.Router.Route(context.Background(), Request{
		Function: "f", Public: true,
		Clauses:           []ast.Contract{clause},
		TypeContextDigest: "ctx",
	})
	require.True(t, outcomes[0].Verified)
	require.Equal(t, 1, firstSolver.calls)
	require.NoError(t, v1.Shutdown())

	// A second session with the same cache path must replay the verdict
	// without consulting its solver.
	secondSolver := &stubSolver{result: SAT}
	v2 := Initialize(VerifierConfig{
		DefaultMode:   Full,
		Solver:        secondSolver,
		SolverVersion: "z3-4.12",
		CachePath:     cachePath,
	})
	defer v2.Shutdown()
	outcomes, _ = v2.Router.Route(context.Background(), Request{
		Function: "f", Public: true,
		Clauses:           []ast.Contract{clause},
		TypeContextDigest: "ctx",
	})
	require.True(t, outcomes[0].Verified)
	require.Equal(t, 0, secondSolver.calls)
}

func TestVerifierWithoutCachePathRunsCold(t *testing.T) {
	solver := &stubSolver{result: UNSAT}
	v := Initialize(VerifierConfig{
		DefaultMode:   Full,
		Solver:        solver,
		SolverVersion: "z3-4.12",
	})
	defer v.Shutdown()

	outcomes, _ := v.Router.Route(context.Background(), Request{
		Function: "f", Public: true,
		Clauses:           []ast.Contract{requiresClause("x > 0", leaf("lit"))},
		TypeContextDigest: "ctx",
	})
	require.True(t, outcomes[0].Verified)
	require.Equal(t, 1, solver.calls)
}
