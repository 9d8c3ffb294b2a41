package quadprog

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/james-bowman/quadprog/sparse"
)

var _ LinearEngine = (*DenseEngine)(nil)

// DenseEngine is a LinearEngine backed by the dense LU factorization from
// gonum/mat.  It accepts any square matrix, symmetric or not, which makes it
// the engine of choice for the unsymmetric STANDARD KKT layout and a reliable
// reference for testing the sparse engines against.  The O(n³) factorization
// cost limits it to small and moderate systems.
type DenseEngine struct {
	a   *sparse.Matrix
	rhs []float64

	dense    *mat.Dense
	lu       mat.LU
	factored bool
}

// NewDenseEngine returns a DenseEngine ready for SetMatrix/SetRHS.
func NewDenseEngine() *DenseEngine {
	return &DenseEngine{}
}

// SetMatrix registers the matrix used by subsequent jobs.
func (e *DenseEngine) SetMatrix(a *sparse.Matrix) {
	e.a = a
	e.factored = false
}

// SetRHS registers the right-hand side buffer overwritten by Solve jobs.
func (e *DenseEngine) SetRHS(rhs []float64) {
	e.rhs = rhs
}

// Call runs the requested job.
func (e *DenseEngine) Call(job Job) error {
	switch job {
	case Analyze:
		return nil
	case Factorize, AnalyzeFactorize:
		return e.factorize()
	case Solve:
		return e.solve()
	case FactorizeSolve:
		if err := e.factorize(); err != nil {
			return err
		}
		return e.solve()
	case End:
		e.dense = nil
		e.factored = false
		return nil
	}
	return fmt.Errorf("quadprog: dense engine: unknown job %v", job)
}

func (e *DenseEngine) factorize() error {
	if e.a == nil {
		return ErrNoFactorization
	}
	r, c := e.a.Dims()
	if r != c {
		return fmt.Errorf("quadprog: dense engine: %v", mat.ErrShape)
	}
	if e.dense == nil {
		e.dense = mat.NewDense(r, c, nil)
	} else if dr, _ := e.dense.Dims(); dr != r {
		e.dense = mat.NewDense(r, c, nil)
	} else {
		e.dense.Zero()
	}
	e.a.DoNonZero(func(i, j int, v float64) {
		e.dense.Set(i, j, v)
	})
	e.lu.Factorize(e.dense)
	e.factored = true
	return nil
}

func (e *DenseEngine) solve() error {
	if !e.factored {
		return ErrNoFactorization
	}
	n := len(e.rhs)
	if r, _ := e.dense.Dims(); r != n {
		return fmt.Errorf("quadprog: dense engine: %v", mat.ErrShape)
	}
	b := mat.NewVecDense(n, nil)
	copy(b.RawVector().Data, e.rhs)
	var x mat.VecDense
	if err := e.lu.SolveVecTo(&x, false, b); err != nil {
		// An ill-conditioned but non-singular system still yields a usable
		// direction; exact singularity does not.
		c, ok := err.(mat.Condition)
		if !ok || math.IsInf(float64(c), 1) {
			return fmt.Errorf("quadprog: dense engine: %w", err)
		}
	}
	copy(e.rhs, x.RawVector().Data)
	return nil
}
