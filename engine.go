package quadprog

import (
	"github.com/james-bowman/quadprog/sparse"
)

// Job selects the operation performed by a LinearEngine call.  The jobs form a
// small state machine: a matrix must be analyzed before it is factorized and
// factorized before it is solved, with the combined jobs collapsing the common
// transitions into a single call.
type Job int

const (
	// Analyze runs the symbolic analysis of the current matrix structure.
	Analyze Job = iota
	// Factorize runs the numerical factorization, reusing the last analysis.
	Factorize
	// AnalyzeFactorize runs analysis and factorization in one call.
	AnalyzeFactorize
	// Solve overwrites the registered right-hand side with the solution using
	// the current factorization.
	Solve
	// FactorizeSolve refactorizes the current matrix values and solves.
	FactorizeSolve
	// End releases the factorization and any workspace held by the engine.
	End
)

func (j Job) String() string {
	switch j {
	case Analyze:
		return "Analyze"
	case Factorize:
		return "Factorize"
	case AnalyzeFactorize:
		return "AnalyzeFactorize"
	case Solve:
		return "Solve"
	case FactorizeSolve:
		return "FactorizeSolve"
	case End:
		return "End"
	}
	return "Unknown"
}

// LinearEngine is the contract for the direct sparse solver used on the
// perturbed KKT systems.  The caller owns the CSR storage and the right-hand
// side buffer; the engine borrows the matrix read-only during factorization
// and overwrites the right-hand side with the solution during a solve.  The
// engine owns the factorization between calls, so a sequence of solves against
// the same values needs only one Factorize.
//
// Any direct solver satisfies the contract; this package ships a dense LU
// engine backed by gonum and a sparse LDLᵀ engine for symmetric systems.
type LinearEngine interface {
	// SetMatrix registers the matrix used by subsequent jobs.
	SetMatrix(a *sparse.Matrix)

	// SetRHS registers the right-hand side buffer.  The buffer is overwritten
	// in place with the solution by Solve jobs.
	SetRHS(rhs []float64)

	// Call runs the requested job.  A non-nil error reports a linear-solve
	// failure; the caller's matrix and buffer remain valid.
	Call(job Job) error
}

// symmetryRequirer is implemented by engines whose factorization accepts only
// symmetric matrices.  The solver uses it to decide whether the KKT system
// must be recast into its symmetric quasi-definite form.
type symmetryRequirer interface {
	RequiresSymmetric() bool
}

func requiresSymmetric(e LinearEngine) bool {
	s, ok := e.(symmetryRequirer)
	return ok && s.RequiresSymmetric()
}
