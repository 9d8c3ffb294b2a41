package quadprog

import (
	"github.com/james-bowman/quadprog/sparse"
)

// KKTMethod selects the form in which the perturbed KKT system is assembled
// and handed to the linear engine.
type KKTMethod int

const (
	// KKTAugmented assembles the (n+m) × (n+m) augmented system obtained by
	// eliminating the slack update.  This is the default.
	KKTAugmented KKTMethod = iota
	// KKTStandard assembles the full (n+2m) × (n+2m) unsymmetric system with
	// the complementarity stripe kept explicit.
	KKTStandard
	// KKTNormal would condense the system to n × n normal equations; it is
	// not implemented and Solve reports ErrUnsupportedLayout.
	KKTNormal
)

func (k KKTMethod) String() string {
	switch k {
	case KKTAugmented:
		return "Augmented"
	case KKTStandard:
		return "Standard"
	case KKTNormal:
		return "Normal"
	}
	return "Unknown"
}

// kktLayout dispatches the layout-dependent pieces of the iteration: how the
// system matrix is assembled and refreshed, how the right-hand side is built
// from the residuals, how the step is read back out, and how the G, A, Aᵀ and
// E blocks are applied to vectors without materialising them separately.
type kktLayout interface {
	dim(n, m int) int
	learn(s *Solver, sys SystemDescriptor, l *sparse.PatternLearner)
	assemble(s *Solver, sys SystemDescriptor)
	refresh(s *Solver)
	fillRHS(s *Solver)
	// extract reads the step out of the solved right-hand side and reports
	// whether the slack step was part of the solution vector.
	extract(s *Solver) (dyProvided bool)
	applyG(s *Solver, dst, v []float64)
	applyA(s *Solver, dst, v []float64)
	applyAT(s *Solver, dst, v []float64)
	applyE(s *Solver, dst, v []float64)
}

// augmented is the (n+m) layout
//
//	[ G        -Aᵀ       ]
//	[ A    diag(y/λ)+E   ]
//
// whose slack diagonal is refreshed every iteration.  When the engine requires
// a symmetric matrix the -Aᵀ block is flipped to +Aᵀ and the bottom-right
// block carries a negative sign, yielding the symmetric quasi-definite form;
// the extracted dual step is negated to compensate.
type augmented struct{}

// brSign is the sign carried by the bottom-right block: negative in the
// symmetric quasi-definite form, positive otherwise.
func (augmented) brSign(s *Solver) float64 {
	if s.sym {
		return -1
	}
	return 1
}

func (augmented) dim(n, m int) int {
	return n + m
}

func (augmented) learn(s *Solver, sys SystemDescriptor, l *sparse.PatternLearner) {
	sys.ConvertToMatrixForm(l, nil, nil, s.compliance, false, s.skipContactTangents)
	for i := 0; i < s.m; i++ {
		l.Set(s.n+i, s.n+i, 1)
	}
}

func (a augmented) assemble(s *Solver, sys SystemDescriptor) {
	n, m := s.n, s.m
	sys.ConvertToMatrixForm(s.big, nil, nil, s.compliance, false, s.skipContactTangents)

	negate := func(_, _ int, v float64) float64 { return -v }
	if s.sym {
		s.big.UpdateNonZeroInRange(0, n, n, n+m, negate)
	} else {
		s.big.UpdateNonZeroInRange(n, n+m, n, n+m, negate)
	}

	sign := a.brSign(s)
	for i := 0; i < m; i++ {
		s.eDiag[i] = sign * s.big.At(n+i, n+i)
	}
}

func (a augmented) refresh(s *Solver) {
	sign := a.brSign(s)
	for i := 0; i < s.m; i++ {
		s.big.Set(s.n+i, s.n+i, sign*(s.y[i]/s.lam[i]+s.eDiag[i]))
	}
}

func (augmented) fillRHS(s *Solver) {
	for i := 0; i < s.n; i++ {
		s.rhs[i] = -s.rd[i]
	}
	for i := 0; i < s.m; i++ {
		s.rhs[s.n+i] = -s.rp[i] - s.rpd[i]/s.lam[i]
	}
}

func (augmented) extract(s *Solver) bool {
	copy(s.dx, s.rhs[:s.n])
	sign := 1.0
	if s.sym {
		sign = -1
	}
	for i := 0; i < s.m; i++ {
		s.dlam[i] = sign * s.rhs[s.n+i]
	}
	return false
}

func (augmented) applyG(s *Solver, dst, v []float64) {
	s.big.MulVecClipped(dst, v, 0, s.n, 0, s.n, 0, 0)
}

func (augmented) applyA(s *Solver, dst, v []float64) {
	s.big.MulVecClipped(dst, v, s.n, s.n+s.m, 0, s.n, 0, -s.n)
}

func (augmented) applyAT(s *Solver, dst, v []float64) {
	s.big.MulVecClipped(dst, v, 0, s.n, s.n, s.n+s.m, 0, 0)
	if !s.sym {
		for i := 0; i < s.n; i++ {
			dst[i] = -dst[i]
		}
	}
}

func (a augmented) applyE(s *Solver, dst, v []float64) {
	if !s.compliance {
		for i := 0; i < s.m; i++ {
			dst[i] = 0
		}
		return
	}
	// The off-diagonal compliance entries live in the bottom-right block
	// with the block's sign; the diagonal slot is shared with the slack
	// refresh, so its contribution comes from the captured eDiag instead.
	sign := a.brSign(s)
	s.big.MulVecClipped(dst, v, s.n, s.n+s.m, s.n, s.n+s.m, 0, -s.n)
	for i := 0; i < s.m; i++ {
		dii := s.big.At(s.n+i, s.n+i)
		dst[i] = sign*(dst[i]-dii*v[i]) + s.eDiag[i]*v[i]
	}
}

// standard is the (n+2m) layout
//
//	[ G    0    -Aᵀ ]
//	[ A   -I     E  ]
//	[ 0    Λ     Y  ]
//
// with the complementarity stripe refreshed every iteration.  It is
// unsymmetric by construction and therefore rejected by engines that require
// symmetry.
type standard struct{}

func (standard) dim(n, m int) int {
	return n + 2*m
}

// standardTarget remaps a descriptor assembly of the (n+m) block structure
// into the (n+2m) standard layout: the -Aᵀ block shifts past the slack
// columns and the compliance block changes sign to couple the duals in the
// constraint rows.
type standardTarget struct {
	n, m int
	dst  sparse.Setter
}

func (t standardTarget) Dims() (r, c int) {
	return t.n + t.m, t.n + t.m
}

func (t standardTarget) Set(i, j int, v float64) {
	switch {
	case j < t.n:
		t.dst.Set(i, j, v)
	case i < t.n:
		t.dst.Set(i, j+t.m, v)
	default:
		t.dst.Set(i, j+t.m, -v)
	}
}

func (t standardTarget) Accumulate(i, j int, v float64) {
	switch {
	case j < t.n:
		t.dst.Accumulate(i, j, v)
	case i < t.n:
		t.dst.Accumulate(i, j+t.m, v)
	default:
		t.dst.Accumulate(i, j+t.m, -v)
	}
}

func (standard) learn(s *Solver, sys SystemDescriptor, l *sparse.PatternLearner) {
	n, m := s.n, s.m
	sys.ConvertToMatrixForm(standardTarget{n: n, m: m, dst: l}, nil, nil, s.compliance, false, s.skipContactTangents)
	for i := 0; i < m; i++ {
		l.Set(n+i, n+i, 1)
		l.Set(n+m+i, n+i, 1)
		l.Set(n+m+i, n+m+i, 1)
	}
}

func (standard) assemble(s *Solver, sys SystemDescriptor) {
	n, m := s.n, s.m
	sys.ConvertToMatrixForm(standardTarget{n: n, m: m, dst: s.big}, nil, nil, s.compliance, false, s.skipContactTangents)
	for i := 0; i < m; i++ {
		s.big.Set(n+i, n+i, -1)
	}
}

func (standard) refresh(s *Solver) {
	n, m := s.n, s.m
	for i := 0; i < m; i++ {
		s.big.Set(n+m+i, n+i, s.lam[i])
		s.big.Set(n+m+i, n+m+i, s.y[i])
	}
}

func (standard) fillRHS(s *Solver) {
	n, m := s.n, s.m
	for i := 0; i < n; i++ {
		s.rhs[i] = -s.rd[i]
	}
	for i := 0; i < m; i++ {
		s.rhs[n+i] = -s.rp[i]
		s.rhs[n+m+i] = -s.rpd[i]
	}
}

func (standard) extract(s *Solver) bool {
	n, m := s.n, s.m
	copy(s.dx, s.rhs[:n])
	copy(s.dy, s.rhs[n:n+m])
	copy(s.dlam, s.rhs[n+m:])
	return true
}

func (standard) applyG(s *Solver, dst, v []float64) {
	s.big.MulVecClipped(dst, v, 0, s.n, 0, s.n, 0, 0)
}

func (standard) applyA(s *Solver, dst, v []float64) {
	s.big.MulVecClipped(dst, v, s.n, s.n+s.m, 0, s.n, 0, -s.n)
}

func (standard) applyAT(s *Solver, dst, v []float64) {
	n, m := s.n, s.m
	s.big.MulVecClipped(dst, v, 0, n, n+m, n+2*m, 0, 0)
	for i := 0; i < n; i++ {
		dst[i] = -dst[i]
	}
}

func (standard) applyE(s *Solver, dst, v []float64) {
	n, m := s.n, s.m
	if !s.compliance {
		for i := 0; i < m; i++ {
			dst[i] = 0
		}
		return
	}
	s.big.MulVecClipped(dst, v, n, n+m, n+m, n+2*m, 0, -n)
}
