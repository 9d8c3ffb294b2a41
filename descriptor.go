package quadprog

import (
	"gonum.org/v1/gonum/mat"

	"github.com/james-bowman/quadprog/sparse"
)

// SystemDescriptor abstracts the multibody system producing the quadratic
// program.  It reports the active problem sizes, assembles the block structure
//
//	[ G   -Aᵀ ]
//	[ A   -E  ]
//
// together with the load and constraint vectors, and converts a solution
// vector back into its own variables.
//
// The descriptor's sign convention is the one customary in multibody
// formulations and is inverted from the solver's internal one: the vectors it
// fills correspond to -c and -b of the program
//
//	minimize ½ xᵀGx + cᵀx  subject to  Ax ≥ b.
type SystemDescriptor interface {
	// CountActiveVariables returns the number of primal unknowns n.
	CountActiveVariables() int

	// CountActiveConstraints returns the number of constraint rows m.  When
	// skipContactTangents is set, the two friction-tangent rows of each
	// contact triplet are excluded from the count.
	CountActiveConstraints(includeBilateral, skipContactTangents bool) int

	// ConvertToMatrixForm assembles any non-nil outputs: the block matrix
	// into dst (which may be a *sparse.Matrix for a value pass or a
	// *sparse.PatternLearner for a structure pass), the load vector into f
	// and the constraint vector into b.  When skipContactTangents is set the
	// friction-tangent rows are omitted from the assembled blocks.
	ConvertToMatrixForm(dst sparse.Setter, f, b []float64, includeCompliance, onlyBilateral, skipContactTangents bool)

	// FromVectorToUnknowns writes the solution vector, primal variables
	// followed by the Lagrangian block, back into descriptor state.
	FromVectorToUnknowns(v []float64)
}

// DenseSystem is a SystemDescriptor over dense problem data.  It is the plain
// entry point for quadratic programs that do not come out of a multibody
// assembly, and the reference descriptor used by the package tests.
//
// G, A, C and B are given in the solver's convention (minimize ½xᵀGx + cᵀx
// subject to Ax ≥ b); DenseSystem performs the sign inversion the descriptor
// contract requires.  ComplianceDiag, when non-nil, supplies the diagonal of
// the compliance block E.  With ContactTriplets set, the constraint rows are
// interpreted as (normal, tangent-u, tangent-v) triplets so that tangent rows
// can be skipped during assembly and re-expanded on emission.
type DenseSystem struct {
	G *mat.Dense
	A *mat.Dense
	C []float64
	B []float64

	ComplianceDiag  []float64
	ContactTriplets bool

	// X and Multipliers receive the solution; Multipliers follow the
	// descriptor sign convention (the negated duals).
	X           []float64
	Multipliers []float64
}

var _ SystemDescriptor = (*DenseSystem)(nil)

// CountActiveVariables returns the number of primal unknowns.
func (s *DenseSystem) CountActiveVariables() int {
	return len(s.C)
}

// CountActiveConstraints returns the number of assembled constraint rows.
func (s *DenseSystem) CountActiveConstraints(_, skipContactTangents bool) int {
	m := len(s.B)
	if skipContactTangents && s.ContactTriplets {
		return m / 3
	}
	return m
}

// constraintRow maps an assembled row index onto the underlying row.
func (s *DenseSystem) constraintRow(q int, skipContactTangents bool) int {
	if skipContactTangents && s.ContactTriplets {
		return 3 * q
	}
	return q
}

// ConvertToMatrixForm assembles any non-nil outputs.  Zero entries are not
// stored, so the structure pass and the value pass produce the same pattern.
func (s *DenseSystem) ConvertToMatrixForm(dst sparse.Setter, f, b []float64, includeCompliance, _, skipContactTangents bool) {
	n := s.CountActiveVariables()
	m := s.CountActiveConstraints(true, skipContactTangents)

	if dst != nil {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if v := s.G.At(i, j); v != 0 {
					dst.Set(i, j, v)
				}
			}
		}
		for q := 0; q < m; q++ {
			row := s.constraintRow(q, skipContactTangents)
			for j := 0; j < n; j++ {
				if v := s.A.At(row, j); v != 0 {
					dst.Set(n+q, j, v)
					dst.Set(j, n+q, -v)
				}
			}
			if includeCompliance && s.ComplianceDiag != nil {
				if v := s.ComplianceDiag[row]; v != 0 {
					dst.Set(n+q, n+q, -v)
				}
			}
		}
	}

	if f != nil {
		for i := 0; i < n; i++ {
			f[i] = -s.C[i]
		}
	}
	if b != nil {
		for q := 0; q < m; q++ {
			b[q] = -s.B[s.constraintRow(q, skipContactTangents)]
		}
	}
}

// FromVectorToUnknowns copies the primal block into X and the Lagrangian block
// into Multipliers.
func (s *DenseSystem) FromVectorToUnknowns(v []float64) {
	n := s.CountActiveVariables()
	if cap(s.X) < n {
		s.X = make([]float64, n)
	}
	s.X = s.X[:n]
	copy(s.X, v[:n])

	l := len(v) - n
	if cap(s.Multipliers) < l {
		s.Multipliers = make([]float64, l)
	}
	s.Multipliers = s.Multipliers[:l]
	copy(s.Multipliers, v[n:])
}
