package quadprog

import "errors"

var (
	// ErrNotConverged indicates the iteration cap was reached before the
	// termination tolerances were met.  The solution emitted alongside it is
	// the best iterate found and the solver remains usable.
	ErrNotConverged = errors.New("quadprog: iteration cap reached before tolerances were met")

	// ErrInfeasibleStart indicates the residuals diverged during the
	// starting-point phase, so no meaningful iterate exists for this call.
	ErrInfeasibleStart = errors.New("quadprog: residuals diverged during the starting-point phase")

	// ErrUnsupportedLayout indicates the selected KKT layout is not
	// implemented.
	ErrUnsupportedLayout = errors.New("quadprog: KKT layout not implemented")

	// ErrEngineLayout indicates the configured linear engine cannot factor
	// the selected KKT layout (a symmetric factorization was asked to handle
	// an unsymmetric form).
	ErrEngineLayout = errors.New("quadprog: linear engine cannot factor the selected KKT layout")

	// ErrZeroPivot indicates the factorization hit a zero pivot: the KKT
	// matrix is singular to working precision.
	ErrZeroPivot = errors.New("quadprog: factorization hit a zero pivot")

	// ErrNoFactorization indicates a solve was requested before a matrix was
	// factorized.
	ErrNoFactorization = errors.New("quadprog: solve requested before factorization")
)
