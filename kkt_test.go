package quadprog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testSystem() *DenseSystem {
	return &DenseSystem{
		G: mat.NewDense(2, 2, []float64{4, 1, 1, 3}),
		A: mat.NewDense(1, 2, []float64{1, 2}),
		C: []float64{-1, -2},
		B: []float64{0.5},

		ComplianceDiag: []float64{0.25},
	}
}

func assembled(t *testing.T, s *Solver, sys SystemDescriptor) *mat.Dense {
	t.Helper()
	n := sys.CountActiveVariables()
	m := sys.CountActiveConstraints(true, s.skipContactTangents)
	s.resetDimensions(n, m)
	s.loadPattern(sys, s.layout.dim(n, m))
	s.layout.assemble(s, sys)

	dim := s.layout.dim(n, m)
	d := mat.NewDense(dim, dim, nil)
	s.big.DoNonZero(func(i, j int, v float64) {
		d.Set(i, j, v)
	})
	return d
}

func TestAugmentedAssemblyUnsymmetric(t *testing.T) {
	s := New(WithEngine(NewDenseEngine()), WithCompliance())
	s.layout = augmented{}
	require.False(t, s.sym)

	got := assembled(t, s, testSystem())

	// [ G  -Aᵀ ] with the compliance diagonal carried positively in the
	// [ A   +E ] bottom-right block before the slack refresh
	want := mat.NewDense(3, 3, []float64{
		4, 1, -1,
		1, 3, -2,
		1, 2, 0.25,
	})
	require.True(t, mat.EqualApprox(want, got, 1e-15), "assembled:\n%v", mat.Formatted(got))
	require.InDelta(t, 0.25, s.eDiag[0], 1e-15)

	// the slack refresh overwrites the bottom-right diagonal
	s.y = []float64{2}
	s.lam = []float64{4}
	s.layout.refresh(s)
	require.InDelta(t, 2.0/4+0.25, s.big.At(2, 2), 1e-15)
}

func TestAugmentedAssemblySymmetric(t *testing.T) {
	s := New(WithCompliance()) // default LDL engine requires symmetry
	s.layout = augmented{}
	require.True(t, s.sym)

	got := assembled(t, s, testSystem())

	// [ G   Aᵀ ] the -Aᵀ block is flipped and the bottom-right block keeps
	// [ A   -E ] its negative sign, completing the quasi-definite form
	want := mat.NewDense(3, 3, []float64{
		4, 1, 1,
		1, 3, 2,
		1, 2, -0.25,
	})
	require.True(t, mat.EqualApprox(want, got, 1e-15), "assembled:\n%v", mat.Formatted(got))
	require.InDelta(t, 0.25, s.eDiag[0], 1e-15)

	s.y = []float64{2}
	s.lam = []float64{4}
	s.layout.refresh(s)
	require.InDelta(t, -(2.0/4+0.25), s.big.At(2, 2), 1e-15)
}

func TestStandardAssembly(t *testing.T) {
	s := New(WithKKT(KKTStandard), WithCompliance())
	s.layout = standard{}
	require.False(t, s.sym)

	got := assembled(t, s, testSystem())

	s.y = []float64{3}
	s.lam = []float64{5}
	s.layout.refresh(s)
	refreshed := mat.NewDense(4, 4, nil)
	s.big.DoNonZero(func(i, j int, v float64) {
		refreshed.Set(i, j, v)
	})

	// [ G   0  -Aᵀ ]
	// [ A  -I    E ]
	// [ 0   Λ    Y ]
	want := mat.NewDense(4, 4, []float64{
		4, 1, 0, -1,
		1, 3, 0, -2,
		1, 2, -1, 0.25,
		0, 0, 5, 3,
	})
	require.True(t, mat.EqualApprox(want, refreshed, 1e-15),
		"assembled:\n%v\nrefreshed:\n%v", mat.Formatted(got), mat.Formatted(refreshed))
}

func TestApplyBlockOperations(t *testing.T) {
	sys := testSystem()
	for _, tc := range []struct {
		desc string
		s    *Solver
	}{
		{"augmented/symmetric", New(WithCompliance())},
		{"augmented/unsymmetric", New(WithEngine(NewDenseEngine()), WithCompliance())},
		{"standard", New(WithKKT(KKTStandard), WithCompliance())},
	} {
		s := tc.s
		switch s.method {
		case KKTStandard:
			s.layout = standard{}
		default:
			s.layout = augmented{}
		}
		assembled(t, s, sys)
		s.y = []float64{2}
		s.lam = []float64{4}
		s.layout.refresh(s)

		v := []float64{3, -1}
		dst := make([]float64, 2)

		s.layout.applyG(s, dst, v)
		require.InDelta(t, 4*3+1*-1, dst[0], 1e-14, tc.desc)
		require.InDelta(t, 1*3+3*-1, dst[1], 1e-14, tc.desc)

		av := make([]float64, 1)
		s.layout.applyA(s, av, v)
		require.InDelta(t, 1*3+2*-1, av[0], 1e-14, tc.desc)

		atv := make([]float64, 2)
		s.layout.applyAT(s, atv, []float64{2})
		require.InDelta(t, 1*2, atv[0], 1e-14, tc.desc)
		require.InDelta(t, 2*2, atv[1], 1e-14, tc.desc)

		ev := make([]float64, 1)
		s.layout.applyE(s, ev, []float64{8})
		require.InDelta(t, 0.25*8, ev[0], 1e-12, tc.desc)
	}
}
