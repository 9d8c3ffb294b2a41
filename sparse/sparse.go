package sparse

import (
	"gonum.org/v1/gonum/mat"
)

// Sparser is the interface for sparse matrices.  Sparser contains the mat.Matrix
// interface so automatically exposes all mat.Matrix methods.
type Sparser interface {
	mat.Matrix

	// NNZ returns the Number of Non Zero elements in the sparse matrix.
	NNZ() int
}

// Setter is the interface for assembly targets.  Both Matrix and PatternLearner
// implement Setter so the same assembly routine can run once to learn a sparsity
// pattern and again to fill in the numerical values.
type Setter interface {
	// Dims returns the logical shape of the assembly target.
	Dims() (r, c int)

	// Set stores v at (i, j), replacing any existing element.
	Set(i, j int, v float64)

	// Accumulate adds v to the element at (i, j), creating it if absent.
	Accumulate(i, j int, v float64)
}
