/*
Package quadprog solves the convex quadratic programs arising from multibody-dynamics contact problems,

	minimize ½ xᵀGx + cᵀx  subject to  Ax ≥ b,

with a primal-dual predictor-corrector interior-point method.  Each iteration perturbs and re-solves a KKT system assembled into a sparse matrix from the companion sparse package; the direct solver working on that system is pluggable behind the LinearEngine interface, with a dense LU engine (backed by gonum) and a sparse LDLᵀ engine provided in-tree.

The problem data enters through the SystemDescriptor interface, which a multibody system implements to report its active variable and constraint counts, assemble the block structure [G, -Aᵀ; A, -E] and convert solutions back to its own unknowns.  DenseSystem is a ready-made descriptor over dense matrices for programs that do not come out of a multibody assembly.

The KKT system can be laid out in augmented (n+m, the default) or standard (n+2m) form.  With the augmented layout only a diagonal changes between iterations, so the sparsity pattern is learned once, locked, and refreshed in place; the linear engine then skips its symbolic analysis on every solve after the first.
*/
package quadprog
