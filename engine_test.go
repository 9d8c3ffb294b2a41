package quadprog

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/james-bowman/quadprog/sparse"
)

// quasiDefinite builds the symmetric matrix [G Aᵀ; A -D] that the augmented
// KKT layout hands to a symmetric engine.
func quasiDefinite() *sparse.Matrix {
	m := sparse.New(3, 3, 0)
	// G
	m.Set(0, 0, 4)
	m.Set(0, 1, 1)
	m.Set(1, 0, 1)
	m.Set(1, 1, 3)
	// A = [1 2]
	m.Set(2, 0, 1)
	m.Set(2, 1, 2)
	m.Set(0, 2, 1)
	m.Set(1, 2, 2)
	// -D
	m.Set(2, 2, -2)
	return m
}

func residual(m *sparse.Matrix, x, b []float64) float64 {
	r, _ := m.Dims()
	ax := make([]float64, r)
	m.MulVec(ax, x)
	var worst float64
	for i := range ax {
		if d := math.Abs(ax[i] - b[i]); d > worst {
			worst = d
		}
	}
	return worst
}

func TestEnginesAgreeOnQuasiDefiniteSystem(t *testing.T) {
	engines := map[string]LinearEngine{
		"ldl":   NewLDLEngine(),
		"dense": NewDenseEngine(),
	}

	b := []float64{1, 2, 3}
	solutions := map[string][]float64{}

	for name, e := range engines {
		m := quasiDefinite()
		rhs := append([]float64(nil), b...)
		e.SetMatrix(m)
		e.SetRHS(rhs)

		require.NoError(t, e.Call(Analyze), name)
		require.NoError(t, e.Call(Factorize), name)
		require.NoError(t, e.Call(Solve), name)

		require.Less(t, residual(m, rhs, b), 1e-10, "%s: solution does not satisfy the system", name)
		solutions[name] = rhs
	}

	for i := range b {
		require.InDelta(t, solutions["dense"][i], solutions["ldl"][i], 1e-10)
	}
}

func TestEngineRefactorizeAfterValueRefresh(t *testing.T) {
	for _, name := range []string{"ldl", "dense"} {
		var e LinearEngine
		if name == "ldl" {
			e = NewLDLEngine()
		} else {
			e = NewDenseEngine()
		}

		m := quasiDefinite()
		m.SetPatternLock(true)
		rhs := []float64{1, 0, -1}
		e.SetMatrix(m)
		e.SetRHS(rhs)
		require.NoError(t, e.Call(AnalyzeFactorize), name)
		require.NoError(t, e.Call(Solve), name)

		// refresh a diagonal value inside the locked pattern, the way the
		// solver refreshes the slack block every iteration
		m.Set(2, 2, -5)
		b := []float64{2, 2, 2}
		copy(rhs, b)
		require.NoError(t, e.Call(FactorizeSolve), name)
		require.Less(t, residual(m, rhs, b), 1e-10, name)

		require.NoError(t, e.Call(End), name)
	}
}

func TestLDLZeroPivot(t *testing.T) {
	e := NewLDLEngine()
	m := sparse.New(2, 2, 0)
	m.Set(0, 0, 0)
	m.Set(1, 1, 1)
	e.SetMatrix(m)
	e.SetRHS(make([]float64, 2))

	err := e.Call(AnalyzeFactorize)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrZeroPivot))
}

func TestEngineSolveBeforeFactorize(t *testing.T) {
	for _, e := range []LinearEngine{NewLDLEngine(), NewDenseEngine()} {
		e.SetRHS(make([]float64, 3))
		err := e.Call(Solve)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrNoFactorization))
	}
}

func TestLDLIndefiniteDiagonal(t *testing.T) {
	// negative pivots must factor cleanly; a Cholesky would fail here
	e := NewLDLEngine()
	m := sparse.New(2, 2, 0)
	m.Set(0, 0, 1)
	m.Set(0, 1, 1)
	m.Set(1, 0, 1)
	m.Set(1, 1, -1)
	rhs := []float64{1, -1}
	e.SetMatrix(m)
	e.SetRHS(rhs)
	require.NoError(t, e.Call(AnalyzeFactorize))
	require.NoError(t, e.Call(Solve))
	require.InDelta(t, 0.0, rhs[0], 1e-12)
	require.InDelta(t, 1.0, rhs[1], 1e-12)
}
