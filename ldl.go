package quadprog

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/james-bowman/quadprog/sparse"
)

var (
	_ LinearEngine     = (*LDLEngine)(nil)
	_ symmetryRequirer = (*LDLEngine)(nil)
)

// LDLEngine is a LinearEngine implementing a sparse LDLᵀ factorization for
// symmetric matrices.  Unlike a Cholesky factorization it tolerates negative
// pivots, which is exactly what the symmetric quasi-definite KKT form
// produces: the primal block is positive, the slack block negative, and the
// factorization proceeds without pivoting.
//
// The analysis phase computes the elimination tree and per-column counts from
// the structure alone; Factorize reruns only the numeric phase, so a solver
// refreshing values inside a locked sparsity pattern pays no symbolic cost
// after the first call.
type LDLEngine struct {
	a   *sparse.Matrix
	rhs []float64

	n      int
	parent []int // elimination tree
	count  []int // per-column non-zero counts of L

	lp []int     // column pointers of L
	li []int     // row indices of L
	lx []float64 // values of L
	d  []float64 // diagonal of D

	// workspaces for the numeric phase
	y       []float64
	pattern []int
	flag    []int
	next    []int // insertion cursor per column of L

	analyzed bool
	factored bool
}

// NewLDLEngine returns an LDLEngine ready for SetMatrix/SetRHS.
func NewLDLEngine() *LDLEngine {
	return &LDLEngine{}
}

// RequiresSymmetric reports that the engine factors symmetric matrices only.
// Both triangles of the matrix must be stored; the engine reads the lower one
// (row k up to the diagonal), which by symmetry is column k of the upper one.
func (e *LDLEngine) RequiresSymmetric() bool {
	return true
}

// SetMatrix registers the matrix used by subsequent jobs.  Changing the matrix
// invalidates the previous analysis.
func (e *LDLEngine) SetMatrix(a *sparse.Matrix) {
	e.a = a
	e.analyzed = false
	e.factored = false
}

// SetRHS registers the right-hand side buffer overwritten by Solve jobs.
func (e *LDLEngine) SetRHS(rhs []float64) {
	e.rhs = rhs
}

// Call runs the requested job.
func (e *LDLEngine) Call(job Job) error {
	switch job {
	case Analyze:
		return e.analyze()
	case Factorize:
		return e.factorize()
	case AnalyzeFactorize:
		if err := e.analyze(); err != nil {
			return err
		}
		return e.factorize()
	case Solve:
		return e.solve()
	case FactorizeSolve:
		if err := e.factorize(); err != nil {
			return err
		}
		return e.solve()
	case End:
		e.release()
		return nil
	}
	return fmt.Errorf("quadprog: ldl engine: unknown job %v", job)
}

func (e *LDLEngine) release() {
	e.lp, e.li, e.lx, e.d = nil, nil, nil, nil
	e.parent, e.count = nil, nil
	e.y, e.pattern, e.flag, e.next = nil, nil, nil, nil
	e.analyzed = false
	e.factored = false
}

// analyze builds the elimination tree and the column counts of L from the
// structure of the registered matrix.  Row k of the stored matrix doubles as
// column k of the upper triangle by symmetry.
func (e *LDLEngine) analyze() error {
	if e.a == nil {
		return ErrNoFactorization
	}
	r, c := e.a.Dims()
	if r != c {
		return fmt.Errorf("quadprog: ldl engine: %v", mat.ErrShape)
	}
	e.n = r
	n := r

	if cap(e.parent) < n {
		e.parent = make([]int, n)
		e.count = make([]int, n)
		e.flag = make([]int, n)
		e.pattern = make([]int, n)
		e.next = make([]int, n)
		e.y = make([]float64, n)
		e.d = make([]float64, n)
		e.lp = make([]int, n+1)
	}
	e.parent = e.parent[:n]
	e.count = e.count[:n]
	e.flag = e.flag[:n]
	e.d = e.d[:n]
	e.lp = e.lp[:n+1]

	for k := 0; k < n; k++ {
		e.parent[k] = -1
		e.count[k] = 0
		e.flag[k] = k
		e.a.DoNonZeroInRange(k, k+1, 0, k, func(_, j int, _ float64) {
			// climb the tree from j toward the root, attaching k
			for i := j; e.flag[i] != k; i = e.parent[i] {
				if e.parent[i] == -1 {
					e.parent[i] = k
				}
				e.count[i]++
				e.flag[i] = k
			}
		})
	}

	e.lp[0] = 0
	for k := 0; k < n; k++ {
		e.lp[k+1] = e.lp[k] + e.count[k]
	}
	nz := e.lp[n]
	if cap(e.li) < nz {
		e.li = make([]int, nz)
		e.lx = make([]float64, nz)
	}
	e.li = e.li[:nz]
	e.lx = e.lx[:nz]

	e.analyzed = true
	e.factored = false
	return nil
}

// factorize runs the up-looking numeric phase: for each row k the sparse
// triangular system against the rows already factored is solved along the
// elimination-tree reach of the row's structure.
func (e *LDLEngine) factorize() error {
	if !e.analyzed {
		if err := e.analyze(); err != nil {
			return err
		}
	}
	n := e.n
	for i := 0; i < n; i++ {
		e.y[i] = 0
	}

	for k := 0; k < n; k++ {
		// scatter row k of the lower triangle (column k of the upper one by
		// symmetry) into the dense workspace and compute its reach in
		// topological order
		top := n
		e.y[k] = 0
		e.flag[k] = k
		e.next[k] = e.lp[k]
		e.a.DoNonZeroInRange(k, k+1, 0, k+1, func(_, j int, v float64) {
			e.y[j] = v
			depth := 0
			for i := j; e.flag[i] != k; i = e.parent[i] {
				e.pattern[depth] = i
				depth++
				e.flag[i] = k
			}
			for depth > 0 {
				depth--
				top--
				e.pattern[top] = e.pattern[depth]
			}
		})

		dk := e.y[k]
		e.y[k] = 0
		for s := top; s < n; s++ {
			i := e.pattern[s]
			yi := e.y[i]
			e.y[i] = 0
			for p := e.lp[i]; p < e.next[i]; p++ {
				e.y[e.li[p]] -= e.lx[p] * yi
			}
			lki := yi / e.d[i]
			dk -= lki * yi
			e.li[e.next[i]] = k
			e.lx[e.next[i]] = lki
			e.next[i]++
		}
		if dk == 0 {
			return fmt.Errorf("%w (pivot %d)", ErrZeroPivot, k)
		}
		e.d[k] = dk
	}

	e.factored = true
	return nil
}

// solve overwrites the registered right-hand side with the solution of
// L D Lᵀ x = b via forward substitution, diagonal scaling and backward
// substitution.
func (e *LDLEngine) solve() error {
	if !e.factored {
		return ErrNoFactorization
	}
	x := e.rhs
	if len(x) != e.n {
		return fmt.Errorf("quadprog: ldl engine: %v", mat.ErrShape)
	}

	for j := 0; j < e.n; j++ {
		xj := x[j]
		for p := e.lp[j]; p < e.lp[j+1]; p++ {
			x[e.li[p]] -= e.lx[p] * xj
		}
	}
	for j := 0; j < e.n; j++ {
		x[j] /= e.d[j]
	}
	for j := e.n - 1; j >= 0; j-- {
		sum := x[j]
		for p := e.lp[j]; p < e.lp[j+1]; p++ {
			sum -= e.lx[p] * x[e.li[p]]
		}
		x[j] = sum
	}
	return nil
}
