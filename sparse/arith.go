package sparse

import (
	"gonum.org/v1/gonum/mat"
)

// MulVec computes dst = M * x where x and dst are dense slices.  MulVec will
// panic with mat.ErrShape if the slice lengths do not match the matrix
// dimensions.  dst must not alias x.
func (m *Matrix) MulVec(dst, x []float64) {
	if len(x) != m.cols || len(dst) != m.rows {
		panic(mat.ErrShape)
	}
	m.MulVecClipped(dst, x, 0, m.rows, 0, m.cols, 0, 0)
}

// MulVecClipped computes the product of the rectangular submatrix selected by
// the half-open windows [rowStart, rowEnd) and [colStart, colEnd):
//
//	dst[yOffset+i] = sum over stored (i, j), j in window, of M(i,j) * x[xOffset+j-colStart]
//
// for every row i in the window.  Entries outside the clipping windows are
// skipped, so a block of a larger matrix can be applied without materialising
// it separately.  The destination entries covered by the row window are
// overwritten; an empty window leaves dst untouched.
func (m *Matrix) MulVecClipped(dst, x []float64, rowStart, rowEnd, colStart, colEnd, xOffset, yOffset int) {
	if rowStart < 0 || colStart < 0 || rowEnd > m.rows || colEnd > m.cols {
		panic(mat.ErrShape)
	}
	if rowEnd <= rowStart || colEnd <= colStart {
		return
	}
	if yOffset+rowStart < 0 || yOffset+rowEnd > len(dst) {
		panic(mat.ErrShape)
	}
	if xOffset < 0 || xOffset+colEnd-colStart > len(x) {
		panic(mat.ErrShape)
	}

	if m.rowMajor {
		for i := rowStart; i < rowEnd; i++ {
			var v float64
			for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
				if j := m.ind[k]; j >= colStart && j < colEnd {
					v += m.data[k] * x[xOffset+j-colStart]
				}
			}
			dst[yOffset+i] = v
		}
		return
	}

	for i := rowStart; i < rowEnd; i++ {
		dst[yOffset+i] = 0
	}
	for j := colStart; j < colEnd; j++ {
		xv := x[xOffset+j-colStart]
		if xv == 0 {
			continue
		}
		for k := m.indptr[j]; k < m.indptr[j+1]; k++ {
			if i := m.ind[k]; i >= rowStart && i < rowEnd {
				dst[yOffset+i] += m.data[k] * xv
			}
		}
	}
}

// DoNonZero calls the function fn for each of the initialised elements of the
// receiver.  The function fn takes a row/column index and the element value of
// the receiver at (i, j).
func (m *Matrix) DoNonZero(fn func(i, j int, v float64)) {
	m.DoNonZeroInRange(0, m.rows, 0, m.cols, fn)
}

// DoNonZeroInRange calls fn for each initialised element within the half-open
// row window [rowStart, rowEnd) and column window [colStart, colEnd).
func (m *Matrix) DoNonZeroInRange(rowStart, rowEnd, colStart, colEnd int, fn func(i, j int, v float64)) {
	m.visit(rowStart, rowEnd, colStart, colEnd, func(i, j int, p *float64) {
		fn(i, j, *p)
	})
}

// DoNonZeroMatching calls fn for each initialised element satisfying the
// supplied predicate.
func (m *Matrix) DoNonZeroMatching(pred func(i, j int, v float64) bool, fn func(i, j int, v float64)) {
	m.visit(0, m.rows, 0, m.cols, func(i, j int, p *float64) {
		if pred(i, j, *p) {
			fn(i, j, *p)
		}
	})
}

// UpdateNonZero replaces each initialised element with fn(i, j, v).  The
// sparsity pattern is unchanged: fn returning zero stores an explicit zero.
func (m *Matrix) UpdateNonZero(fn func(i, j int, v float64) float64) {
	m.UpdateNonZeroInRange(0, m.rows, 0, m.cols, fn)
}

// UpdateNonZeroInRange replaces each initialised element within the half-open
// row and column windows with fn(i, j, v), keeping the pattern unchanged.
func (m *Matrix) UpdateNonZeroInRange(rowStart, rowEnd, colStart, colEnd int, fn func(i, j int, v float64) float64) {
	m.visit(rowStart, rowEnd, colStart, colEnd, func(i, j int, p *float64) {
		*p = fn(i, j, *p)
	})
}

func (m *Matrix) visit(rowStart, rowEnd, colStart, colEnd int, fn func(i, j int, p *float64)) {
	leadStart, leadEnd, trailStart, trailEnd := rowStart, rowEnd, colStart, colEnd
	if !m.rowMajor {
		leadStart, leadEnd, trailStart, trailEnd = colStart, colEnd, rowStart, rowEnd
	}
	if leadStart < 0 {
		leadStart = 0
	}
	if leadEnd > m.lead() {
		leadEnd = m.lead()
	}
	for l := leadStart; l < leadEnd; l++ {
		for k := m.indptr[l]; k < m.indptr[l+1]; k++ {
			t := m.ind[k]
			if t == hole || t < trailStart || t >= trailEnd {
				continue
			}
			if m.rowMajor {
				fn(l, t, &m.data[k])
			} else {
				fn(t, l, &m.data[k])
			}
		}
	}
}
