package quadprog

import (
	"go.uber.org/zap"
)

// Option configures a Solver.
type Option func(*Solver)

// WithKKT selects the KKT layout the solver assembles.  The layout is fixed
// for the lifetime of the solver.
func WithKKT(method KKTMethod) Option {
	return func(s *Solver) { s.method = method }
}

// WithEngine supplies the linear engine used on the KKT systems.  The default
// is an LDLEngine for the augmented layout and a DenseEngine otherwise.
func WithEngine(e LinearEngine) Option {
	return func(s *Solver) { s.engine = e }
}

// WithIterationLimit caps the number of outer iterations.
func WithIterationLimit(n int) Option {
	return func(s *Solver) { s.iterMax = n }
}

// WithTolerances sets the termination thresholds on the primal residual, the
// dual residual and the complementarity measure.
func WithTolerances(rp, rd, mu float64) Option {
	return func(s *Solver) {
		s.rpTol = rp
		s.rdTol = rd
		s.muTol = mu
	}
}

// WithEqualStepLengths forces a common primal and dual step length, the
// smaller of the two.
func WithEqualStepLengths() Option {
	return func(s *Solver) { s.equalStep = true }
}

// WithAdaptiveEta replaces the fixed step damping 0.95 with
// exp(-mu*m)*0.1 + 0.9, which approaches 1 as the iterates near the solution.
func WithAdaptiveEta() Option {
	return func(s *Solver) { s.adaptiveEta = true }
}

// WithPredictorOnly skips the corrector solve, stepping along the damped
// affine direction.  Mostly useful for benchmarking the corrector's value.
func WithPredictorOnly() Option {
	return func(s *Solver) { s.onlyPredict = true }
}

// WithWarmStart reuses the previous iterate as the starting point when the
// problem sizes are unchanged since the last call.
func WithWarmStart() Option {
	return func(s *Solver) { s.warmStart = true }
}

// WithCompliance includes the descriptor's compliance block in the assembled
// system and in the slack update.
func WithCompliance() Option {
	return func(s *Solver) { s.compliance = true }
}

// WithSkipContactTangents strips the friction-tangent rows of contact
// triplets during assembly and re-pads the emitted multipliers with zeroed
// tangent components.
func WithSkipContactTangents() Option {
	return func(s *Solver) { s.skipContactTangents = true }
}

// WithLogger attaches a logger receiving per-iteration debug records and a
// warning on non-convergence.  The default logger discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Solver) { s.log = l }
}
