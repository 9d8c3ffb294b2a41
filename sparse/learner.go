package sparse

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

var _ Setter = (*PatternLearner)(nil)

// PatternLearner accumulates the structure of a matrix without storing any
// values.  It plays the creational role that coordinate formats usually fill:
// an assembly routine runs once against a PatternLearner to discover the
// sparsity pattern, the pattern is loaded into a Matrix via LoadPattern, and
// subsequent assemblies write values straight into the locked structure.
//
// Value-bearing calls are no-ops for the values themselves; only the
// coordinates are recorded.  Duplicate insertions are tolerated and removed
// when the pattern is read back.
type PatternLearner struct {
	rows, cols int
	rowMajor   bool
	lists      [][]int
}

// NewPatternLearner returns a learner for the pattern of a row-major r * c
// matrix.
func NewPatternLearner(r, c int) *PatternLearner {
	return newPatternLearner(r, c, true)
}

// NewPatternLearnerColMajor returns a learner for the pattern of a
// column-major r * c matrix.
func NewPatternLearnerColMajor(r, c int) *PatternLearner {
	return newPatternLearner(r, c, false)
}

func newPatternLearner(r, c int, rowMajor bool) *PatternLearner {
	if r < 0 {
		panic(mat.ErrRowAccess)
	}
	if c < 0 {
		panic(mat.ErrColAccess)
	}
	l := r
	if !rowMajor {
		l = c
	}
	return &PatternLearner{
		rows:     r,
		cols:     c,
		rowMajor: rowMajor,
		lists:    make([][]int, l),
	}
}

// Dims returns the logical shape of the matrix being learned.
func (l *PatternLearner) Dims() (r, c int) {
	return l.rows, l.cols
}

// Set records the coordinate (i, j); the value is discarded.
func (l *PatternLearner) Set(i, j int, _ float64) {
	if uint(i) >= uint(l.rows) {
		panic(mat.ErrRowAccess)
	}
	if uint(j) >= uint(l.cols) {
		panic(mat.ErrColAccess)
	}
	li, ti := i, j
	if !l.rowMajor {
		li, ti = j, i
	}
	l.lists[li] = append(l.lists[li], ti)
}

// Accumulate records the coordinate (i, j); the value is discarded.
func (l *PatternLearner) Accumulate(i, j int, v float64) {
	l.Set(i, j, v)
}

// NNZ returns the number of distinct coordinates recorded so far.
func (l *PatternLearner) NNZ() int {
	_, nnz := l.Pattern()
	return nnz
}

// Pattern sorts each per-leading-dimension list ascending, removes duplicate
// coordinates in place and returns the lists together with the total number
// of distinct entries.
func (l *PatternLearner) Pattern() (lists [][]int, nnz int) {
	for r, list := range l.lists {
		if len(list) == 0 {
			continue
		}
		sort.Ints(list)
		p := 1
		for k := 1; k < len(list); k++ {
			if list[k] != list[k-1] {
				list[p] = list[k]
				p++
			}
		}
		l.lists[r] = list[:p]
		nnz += p
	}
	return l.lists, nnz
}
