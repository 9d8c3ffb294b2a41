/*
Package sparse provides a Compressed Sparse Row (CSR) matrix engine tuned for the repeated assembly patterns of multibody simulation.  Conventional CSR storage is excellent for arithmetic but poor for incremental construction: inserting an element mid-row moves the whole tail of the index and value arrays.  The Matrix type in this package tolerates gaps - spare, uninitialised slots distributed between rows - so that elements arriving in roughly sorted order land in amortised-constant time, and a matrix assembled with the same sparsity pattern every timestep never moves memory at all.

The workflow mirrors the creational/operational split common to sparse matrix libraries.  A PatternLearner accumulates coordinates during a dry assembly run; LoadPattern turns the learned pattern into a compressed Matrix; SetPatternLock records the caller's promise that the pattern is stable, after which Reset becomes a cheap value-only clear.  Compress, Prune and Trim recover the dense packing when the construction phase is over.

Matrix implements the Matrix interface defined within the gonum/mat package and so may be used interchangeably with the matrix types defined there.  A single orientation flag provides the row-major/column-major duality: the transpose of a row-major matrix is a column-major view over the same storage.
*/
package sparse
