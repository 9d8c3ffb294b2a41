package quadprog

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/james-bowman/quadprog/sparse"
)

// infeasibleSentinel bounds the residual norms tolerated after the
// starting-point phase; anything beyond it means the repair failed.
const infeasibleSentinel = 1e30

// warmStartFloor keeps a reused iterate strictly interior without destroying
// the information a good warm start carries.
const warmStartFloor = 1e-10

// Solver is a primal-dual predictor-corrector interior-point solver for the
// convex quadratic program
//
//	minimize ½ xᵀGx + cᵀx  subject to  Ax ≥ b
//
// as produced by multibody contact problems.  Each outer iteration assembles a
// perturbed KKT system into a sparse matrix whose pattern is learned once and
// locked, hands it to a LinearEngine, and advances the primal, dual and slack
// iterates by damped Newton steps following Mehrotra's predictor-corrector
// scheme.
//
// A Solver owns its KKT matrix and all dense workspaces; iterations allocate
// nothing.  It is not safe for concurrent use.
type Solver struct {
	method              KKTMethod
	iterMax             int
	rpTol, rdTol, muTol float64
	equalStep           bool
	adaptiveEta         bool
	onlyPredict         bool
	warmStart           bool
	compliance          bool
	skipContactTangents bool
	engine              LinearEngine
	log                 *zap.Logger

	n, m   int
	sym    bool
	layout kktLayout

	big   *sparse.Matrix
	rhs   []float64
	eDiag []float64

	x, dx, c, rd, vectn          []float64
	y, lam, dy, dlam, b, rp, rpd []float64
	vectm                        []float64
	sol                          []float64

	patternReady bool
	analyzed     bool
	haveState    bool
	converged    bool
	iterations   int
	engineSolves int
}

// New returns a Solver with the given options applied.  The defaults are the
// augmented KKT layout backed by an LDLEngine, an iteration cap of 50 and
// tolerances 1e-8 on the scaled residuals and 1e-10 on complementarity.
func New(opts ...Option) *Solver {
	s := &Solver{
		method:  KKTAugmented,
		iterMax: 50,
		rpTol:   1e-8,
		rdTol:   1e-8,
		muTol:   1e-10,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.engine == nil {
		if s.method == KKTAugmented {
			s.engine = NewLDLEngine()
		} else {
			s.engine = NewDenseEngine()
		}
	}
	s.sym = requiresSymmetric(s.engine)
	return s
}

// Iterations returns the number of outer iterations of the last Solve.
func (s *Solver) Iterations() int {
	return s.iterations
}

// EngineSolves returns the number of linear-engine solves performed so far.
func (s *Solver) EngineSolves() int {
	return s.engineSolves
}

// Converged reports whether the last Solve met all termination tolerances.
func (s *Solver) Converged() bool {
	return s.converged
}

// Solve runs the interior-point iteration on the system produced by the
// descriptor and returns the objective value at the final iterate.  The
// solution, primal variables followed by the negated duals, is written back
// through the descriptor.  ErrNotConverged still carries a valid (degraded)
// iterate; engine failures abort the call but leave the solver reusable.
func (s *Solver) Solve(sys SystemDescriptor) (float64, error) {
	switch s.method {
	case KKTAugmented:
		s.layout = augmented{}
	case KKTStandard:
		if s.sym {
			return 0, ErrEngineLayout
		}
		s.layout = standard{}
	default:
		return 0, ErrUnsupportedLayout
	}

	n := sys.CountActiveVariables()
	m := sys.CountActiveConstraints(true, s.skipContactTangents)
	resized := n != s.n || m != s.m || s.big == nil
	if resized {
		s.resetDimensions(n, m)
	}
	dim := s.layout.dim(n, m)

	sys.ConvertToMatrixForm(nil, s.c, s.b, s.compliance, false, s.skipContactTangents)
	floats.Scale(-1, s.c)
	floats.Scale(-1, s.b)

	if !s.patternReady {
		s.loadPattern(sys, dim)
	} else {
		s.big.Reset(dim, dim, 0)
	}
	s.layout.assemble(s, sys)
	if s.big.LockBroken() {
		// The descriptor produced coordinates outside the learned pattern;
		// relearn so the engine's analysis matches the structure.
		s.loadPattern(sys, dim)
		s.layout.assemble(s, sys)
	}

	s.engine.SetRHS(s.rhs)
	s.iterations = 0
	s.converged = false

	if m == 0 {
		return s.solveUnconstrained(sys)
	}

	if err := s.startingPoint(); err != nil {
		return 0, err
	}

	fn, fm := float64(n), float64(m)
	mu := floats.Dot(s.y, s.lam) / fm
	rpNorm := floats.Norm(s.rp, 2)
	rdNorm := floats.Norm(s.rd, 2)

	for {
		if mu < s.muTol && rpNorm/fm < s.rpTol && rdNorm/fn < s.rdTol {
			s.converged = true
			break
		}
		if s.iterations >= s.iterMax {
			break
		}
		s.iterations++

		// predictor: pure affine direction, sigma = 0
		for i := 0; i < m; i++ {
			s.rpd[i] = s.y[i] * s.lam[i]
		}
		s.layout.refresh(s)
		s.layout.fillRHS(s)
		if err := s.solveKKT(true); err != nil {
			return 0, err
		}
		if !s.layout.extract(s) {
			s.computeDy()
		}

		var sigma, alphaP, alphaD float64
		if s.onlyPredict {
			alphaP, alphaD = s.stepLengths(s.eta(mu))
		} else {
			affP, affD := s.stepLengths(1)
			var muPred float64
			for i := 0; i < m; i++ {
				muPred += (s.y[i] + affP*s.dy[i]) * (s.lam[i] + affD*s.dlam[i])
			}
			muPred /= fm
			ratio := muPred / mu
			sigma = ratio * ratio * ratio

			// corrector: same matrix, recentered right-hand side
			for i := 0; i < m; i++ {
				s.rpd[i] += s.dy[i]*s.dlam[i] - sigma*mu
			}
			s.layout.fillRHS(s)
			if err := s.solveKKT(false); err != nil {
				return 0, err
			}
			if !s.layout.extract(s) {
				s.computeDy()
			}
			alphaP, alphaD = s.stepLengths(s.eta(mu))
		}

		floats.AddScaled(s.x, alphaP, s.dx)
		floats.AddScaled(s.y, alphaP, s.dy)
		floats.AddScaled(s.lam, alphaD, s.dlam)

		// residual recurrences: rp shrinks along the step, rd picks up the
		// curvature term when the primal and dual step lengths differ
		floats.Scale(1-alphaP, s.rp)
		s.layout.applyG(s, s.vectn, s.dx)
		floats.Scale(1-alphaD, s.rd)
		floats.AddScaled(s.rd, alphaP-alphaD, s.vectn)

		mu = floats.Dot(s.y, s.lam) / fm
		rpNorm = floats.Norm(s.rp, 2)
		rdNorm = floats.Norm(s.rd, 2)

		s.log.Debug("interior-point iteration",
			zap.Int("iter", s.iterations),
			zap.Float64("mu", mu),
			zap.Float64("sigma", sigma),
			zap.Float64("alphaP", alphaP),
			zap.Float64("alphaD", alphaD),
			zap.Float64("rpNorm", rpNorm),
			zap.Float64("rdNorm", rdNorm),
		)
	}

	s.haveState = true
	obj := s.emit(sys)
	if !s.converged {
		s.log.Warn("iteration cap reached",
			zap.Int("iterMax", s.iterMax),
			zap.Float64("mu", mu),
			zap.Float64("rpNorm", rpNorm),
			zap.Float64("rdNorm", rdNorm),
		)
		return obj, ErrNotConverged
	}
	return obj, nil
}

// resetDimensions rebuilds every workspace for an n-variable, m-constraint
// problem.  All prior state, including the learned pattern and any warm-start
// iterate, is dropped.
func (s *Solver) resetDimensions(n, m int) {
	s.n, s.m = n, m
	dim := s.layout.dim(n, m)

	s.big = sparse.New(dim, dim, 0)
	s.rhs = make([]float64, dim)
	s.eDiag = make([]float64, m)

	s.x = make([]float64, n)
	s.dx = make([]float64, n)
	s.c = make([]float64, n)
	s.rd = make([]float64, n)
	s.vectn = make([]float64, n)

	s.y = make([]float64, m)
	s.lam = make([]float64, m)
	s.dy = make([]float64, m)
	s.dlam = make([]float64, m)
	s.b = make([]float64, m)
	s.rp = make([]float64, m)
	s.rpd = make([]float64, m)
	s.vectm = make([]float64, m)

	if s.skipContactTangents {
		s.sol = make([]float64, n+3*m)
	} else {
		s.sol = make([]float64, n+m)
	}

	s.patternReady = false
	s.haveState = false
}

// loadPattern runs the structure pass of the descriptor assembly through a
// learner and locks the resulting pattern into the KKT matrix.
func (s *Solver) loadPattern(sys SystemDescriptor, dim int) {
	learner := sparse.NewPatternLearner(dim, dim)
	s.layout.learn(s, sys, learner)
	s.big.SetPatternLock(false)
	s.big.Reset(dim, dim, 0)
	s.big.LoadPattern(learner)
	s.big.SetPatternLock(true)
	s.engine.SetMatrix(s.big)
	s.patternReady = true
	s.analyzed = false
}

// startingPoint establishes a strictly interior iterate.  Without a usable
// warm start it follows Nocedal §16.1: unit primal and dual guesses, one
// affine solve, then a componentwise clamp pushing slack and duals away from
// the boundary.
func (s *Solver) startingPoint() error {
	if s.warmStart && s.haveState {
		for i := 0; i < s.m; i++ {
			s.y[i] = math.Max(math.Abs(s.y[i]), warmStartFloor)
			s.lam[i] = math.Max(math.Abs(s.lam[i]), warmStartFloor)
		}
		s.computeResiduals()
	} else {
		for i := 0; i < s.n; i++ {
			s.x[i] = 1
		}
		for i := 0; i < s.m; i++ {
			s.lam[i] = 1
		}
		s.layout.applyA(s, s.y, s.x)
		floats.Sub(s.y, s.b)
		s.computeResiduals()

		for i := 0; i < s.m; i++ {
			s.rpd[i] = s.y[i] * s.lam[i]
		}
		s.layout.refresh(s)
		s.layout.fillRHS(s)
		if err := s.solveKKT(true); err != nil {
			return err
		}
		if !s.layout.extract(s) {
			s.computeDy()
		}
		for i := 0; i < s.m; i++ {
			s.y[i] = math.Max(math.Abs(s.y[i]+s.dy[i]), 1)
			s.lam[i] = math.Max(math.Abs(s.lam[i]+s.dlam[i]), 1)
		}
		s.computeResiduals()
	}

	rpNorm := floats.Norm(s.rp, 2)
	rdNorm := floats.Norm(s.rd, 2)
	if math.IsNaN(rpNorm) || math.IsNaN(rdNorm) ||
		rpNorm > infeasibleSentinel || rdNorm > infeasibleSentinel {
		return ErrInfeasibleStart
	}
	return nil
}

// computeResiduals evaluates rd = Gx - Aᵀλ + c and rp = Ax - y - b from
// scratch.
func (s *Solver) computeResiduals() {
	s.layout.applyG(s, s.vectn, s.x)
	s.layout.applyAT(s, s.rd, s.lam)
	for i := 0; i < s.n; i++ {
		s.rd[i] = s.vectn[i] - s.rd[i] + s.c[i]
	}
	s.layout.applyA(s, s.rp, s.x)
	for i := 0; i < s.m; i++ {
		s.rp[i] -= s.y[i] + s.b[i]
	}
	if s.compliance {
		s.layout.applyE(s, s.vectm, s.lam)
		floats.Add(s.rp, s.vectm)
	}
}

// computeDy recovers the slack step Δy = AΔx + rp (+ EΔλ with compliance)
// for layouts whose solution vector does not carry it.
func (s *Solver) computeDy() {
	s.layout.applyA(s, s.dy, s.dx)
	floats.Add(s.dy, s.rp)
	if s.compliance {
		s.layout.applyE(s, s.vectm, s.dlam)
		floats.Add(s.dy, s.vectm)
	}
}

// solveKKT drives the engine's job state machine: analysis runs only when the
// pattern is new, a refactorization only when the matrix values changed since
// the last solve.
func (s *Solver) solveKKT(refactor bool) error {
	var err error
	switch {
	case !s.analyzed:
		if err = s.engine.Call(AnalyzeFactorize); err == nil {
			err = s.engine.Call(Solve)
			s.analyzed = true
		}
	case refactor:
		err = s.engine.Call(FactorizeSolve)
	default:
		err = s.engine.Call(Solve)
	}
	if err != nil {
		return fmt.Errorf("quadprog: linear engine: %w", err)
	}
	s.engineSolves++
	return nil
}

// stepLengths returns the damped primal and dual step lengths keeping y and
// lam componentwise non-negative.
func (s *Solver) stepLengths(eta float64) (alphaP, alphaD float64) {
	alphaP = newtonStepLength(s.y, s.dy, eta)
	alphaD = newtonStepLength(s.lam, s.dlam, eta)
	if s.equalStep {
		alphaP = math.Min(alphaP, alphaD)
		alphaD = alphaP
	}
	return alphaP, alphaD
}

// newtonStepLength finds the largest alpha in (0, 1] such that v + alpha*dv
// stays componentwise non-negative, scaled by eta.
func newtonStepLength(v, dv []float64, eta float64) float64 {
	alpha := 1.0
	for i, d := range dv {
		if d < 0 {
			if a := -v[i] / d; a < alpha {
				alpha = a
			}
		}
	}
	return eta * alpha
}

// eta returns the step damping factor.
func (s *Solver) eta(mu float64) float64 {
	if s.adaptiveEta {
		return math.Exp(-mu*float64(s.m))*0.1 + 0.9
	}
	return 0.95
}

// solveUnconstrained handles m == 0: the KKT system degenerates to Gx = -c
// and a single factor-and-solve finishes the job.
func (s *Solver) solveUnconstrained(sys SystemDescriptor) (float64, error) {
	for i := 0; i < s.n; i++ {
		s.rhs[i] = -s.c[i]
	}
	if err := s.solveKKT(true); err != nil {
		return 0, err
	}
	copy(s.x, s.rhs)
	s.converged = true
	s.haveState = true
	return s.emit(sys), nil
}

// emit writes the solution vector, x followed by the negated duals (padded to
// contact triplets when the tangents were skipped), hands it to the
// descriptor and returns the objective value.
func (s *Solver) emit(sys SystemDescriptor) float64 {
	n, m := s.n, s.m
	copy(s.sol[:n], s.x)
	if s.skipContactTangents {
		for i := 0; i < m; i++ {
			s.sol[n+3*i] = -s.lam[i]
			s.sol[n+3*i+1] = 0
			s.sol[n+3*i+2] = 0
		}
	} else {
		for i := 0; i < m; i++ {
			s.sol[n+i] = -s.lam[i]
		}
	}
	sys.FromVectorToUnknowns(s.sol)

	s.layout.applyG(s, s.vectn, s.x)
	return 0.5*floats.Dot(s.x, s.vectn) + floats.Dot(s.c, s.x)
}
