package sparse

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// hole marks a reserved but uninitialised slot in the trailing index array.
// Slots carrying hole are spare capacity inside a row and are invisible to
// element access and iteration.
const hole = -1

// defaultMaxShifts bounds how many subsequent rows an insertion will borrow a
// spare slot from before giving up and reallocating the arena.
const defaultMaxShifts = 8

var (
	_ Sparser     = (*Matrix)(nil)
	_ Setter      = (*Matrix)(nil)
	_ mat.Matrix  = (*Matrix)(nil)
	_ mat.Mutable = (*Matrix)(nil)
)

// Matrix is a Compressed Sparse Row (CSR) format sparse matrix tuned for
// in-place incremental construction.  Unlike a conventional CSR triplet, the
// index and data arrays may contain gaps: spare slots distributed between rows
// that absorb new elements without moving the whole tail of the arrays.  This
// makes repeated assembly of matrices with a roughly stable sparsity pattern
// (the common case when the same mechanical system is assembled every timestep)
// amortised-constant per element.
//
// A single orientation flag selects between row-major (CSR) and column-major
// (CSC) storage; all methods transparently swap the roles of the leading and
// trailing dimensions, so there is one code path for both layouts.
//
// Matrix implements the Matrix interface from gonum/mat and may be used with
// any of the gonum functions that accept mat.Matrix parameters.
type Matrix struct {
	rows, cols int
	rowMajor   bool

	// indptr[i] is the offset into ind/data where leading dimension i begins.
	// The physical arrays always tile exactly: len(ind) == indptr[lead].
	indptr []int
	ind    []int
	data   []float64

	// nnz counts initialised slots; it equals indptr[lead] only when the
	// matrix holds no gaps.
	nnz int

	locked     bool
	lockBroken bool
	maxShifts  int
}

// New creates a new row-major Matrix with the logical size r * c and capacity
// reserved for nnzHint elements.  The spare capacity is distributed uniformly
// between the rows.
func New(r, c, nnzHint int) *Matrix {
	return newMatrix(r, c, nnzHint, true)
}

// NewColMajor creates a new column-major Matrix with the logical size r * c
// and capacity reserved for nnzHint elements.
func NewColMajor(r, c, nnzHint int) *Matrix {
	return newMatrix(r, c, nnzHint, false)
}

func newMatrix(r, c, nnzHint int, rowMajor bool) *Matrix {
	if r < 0 {
		panic(mat.ErrRowAccess)
	}
	if c < 0 {
		panic(mat.ErrColAccess)
	}
	m := &Matrix{
		rows:      r,
		cols:      c,
		rowMajor:  rowMajor,
		maxShifts: defaultMaxShifts,
	}
	m.alloc(nnzHint)
	return m
}

// lead returns the extent of the leading (compressed) dimension.
func (m *Matrix) lead() int {
	if m.rowMajor {
		return m.rows
	}
	return m.cols
}

// alloc rebuilds the backing arrays with capacity for hint elements, all
// uninitialised, spread evenly across the leading dimension.
func (m *Matrix) alloc(hint int) {
	if hint < 0 {
		hint = 0
	}
	l := m.lead()
	m.indptr = make([]int, l+1)
	distributeRange(m.indptr, 0, hint)
	m.ind = make([]int, hint)
	for i := range m.ind {
		m.ind[i] = hole
	}
	m.data = make([]float64, hint)
	m.nnz = 0
	m.lockBroken = false
}

// distributeRange fills v with len(v) equally spaced integers running from
// start to end, both endpoints included.  It is used to build the leading
// index after a pattern load or a reallocation.
func distributeRange(v []int, start, end int) {
	n := len(v)
	if n == 0 {
		return
	}
	if n == 1 {
		v[0] = start
		return
	}
	span := end - start
	for i := range v {
		v[i] = start + span*i/(n-1)
	}
}

// SetMaxShifts bounds how many subsequent rows an insertion may borrow a
// spare slot from before reallocating.  Larger values trade insertion cost
// for fewer reallocations on nearly-full arenas.
func (m *Matrix) SetMaxShifts(n int) {
	if n < 0 {
		n = 0
	}
	m.maxShifts = n
}

// Dims returns the size of the matrix as the number of rows and columns.
func (m *Matrix) Dims() (r, c int) {
	return m.rows, m.cols
}

// IsRowMajor reports the storage orientation of the receiver.
func (m *Matrix) IsRowMajor() bool {
	return m.rowMajor
}

// NNZ returns the Number of Non Zero (initialised) elements in the matrix.
// This equals indptr[lead] only when the matrix is compressed.
func (m *Matrix) NNZ() int {
	return m.nnz
}

// IsCompressed reports whether the matrix currently holds no gaps.
func (m *Matrix) IsCompressed() bool {
	return m.nnz == m.indptr[m.lead()]
}

// T returns a transposed view over the same backing storage with the
// orientation flag flipped: transposing a row-major matrix yields a
// column-major one and vice versa.  The view is for reading; mutating the
// matrix through it is undefined.
func (m *Matrix) T() mat.Matrix {
	return &Matrix{
		rows:      m.cols,
		cols:      m.rows,
		rowMajor:  !m.rowMajor,
		indptr:    m.indptr,
		ind:       m.ind,
		data:      m.data,
		nnz:       m.nnz,
		maxShifts: m.maxShifts,
	}
}

func (m *Matrix) checkBounds(i, j int) {
	if uint(i) >= uint(m.rows) {
		panic(mat.ErrRowAccess)
	}
	if uint(j) >= uint(m.cols) {
		panic(mat.ErrColAccess)
	}
}

// index maps logical (row, col) coordinates onto (leading, trailing) indexes
// according to the storage orientation.
func (m *Matrix) index(i, j int) (li, ti int) {
	if m.rowMajor {
		return i, j
	}
	return j, i
}

// At returns the element of the matrix located at row i and column j.  At will
// panic if i or j fall outside the dimensions of the matrix.  At never mutates
// the receiver.
func (m *Matrix) At(i, j int) float64 {
	m.checkBounds(i, j)
	li, ti := m.index(i, j)

	for k := m.indptr[li]; k < m.indptr[li+1]; k++ {
		if m.ind[k] == ti {
			return m.data[k]
		}
	}
	return 0
}

// Set stores v at (i, j), replacing any existing element and creating a slot
// for the element if it is not part of the current sparsity pattern.  Unlike
// purely compressed formats, explicit zeros are stored: a slot once created
// stays part of the pattern so that later value passes can refresh it in
// place.
func (m *Matrix) Set(i, j int, v float64) {
	m.data[m.slot(i, j)] = v
}

// Accumulate adds v to the element at (i, j), creating the slot if absent.
func (m *Matrix) Accumulate(i, j int, v float64) {
	m.data[m.slot(i, j)] += v
}

// Element returns a mutable handle on the element at (i, j), creating the slot
// if absent.  The handle is invalidated by any operation that moves storage
// (element creation, Compress, Prune, Trim, Reset, LoadPattern).
func (m *Matrix) Element(i, j int) *float64 {
	return &m.data[m.slot(i, j)]
}

// slot returns the physical index holding element (i, j), inserting a new slot
// when the element is not yet part of the pattern.
func (m *Matrix) slot(i, j int) int {
	m.checkBounds(i, j)
	li, ti := m.index(i, j)

	for k := m.indptr[li]; k < m.indptr[li+1]; k++ {
		if m.ind[k] == ti {
			return k
		}
	}
	return m.insert(li, ti)
}

// insert creates a slot for trailing index ti inside leading dimension li and
// returns its physical position.  The search order is: a spare slot within the
// row itself, a spare slot within the next maxShifts rows (shifting elements
// one position toward the hole and updating the leading index of every row
// crossed), and finally a reallocation that redistributes spare capacity
// uniformly across all rows.
func (m *Matrix) insert(li, ti int) int {
	if m.locked {
		m.lockBroken = true
	}

	lo, hi := m.indptr[li], m.indptr[li+1]

	// pos is the physical index keeping the initialised entries of the row
	// sorted: everything initialised before pos is < ti.
	pos := lo
	for k := lo; k < hi; k++ {
		if m.ind[k] != hole && m.ind[k] < ti {
			pos = k + 1
		}
	}

	// A hole at or after the insertion point within the row.
	for k := pos; k < hi; k++ {
		if m.ind[k] == hole {
			for q := k; q > pos; q-- {
				m.ind[q] = m.ind[q-1]
				m.data[q] = m.data[q-1]
			}
			return m.fill(pos, ti)
		}
	}

	// A hole before the insertion point within the row: slide the entries in
	// between one position down.
	for k := pos - 1; k >= lo; k-- {
		if m.ind[k] == hole {
			for q := k; q < pos-1; q++ {
				m.ind[q] = m.ind[q+1]
				m.data[q] = m.data[q+1]
			}
			return m.fill(pos-1, ti)
		}
	}

	// Borrow a hole from one of the next maxShifts rows, shifting the block in
	// between one position toward it.  Every row boundary crossed moves with
	// the block.
	rmax := li + m.maxShifts
	if rmax > m.lead()-1 {
		rmax = m.lead() - 1
	}
	if rmax >= li {
		limit := m.indptr[rmax+1]
		for k := hi; k < limit; k++ {
			if m.ind[k] != hole {
				continue
			}
			for q := k; q > pos; q-- {
				m.ind[q] = m.ind[q-1]
				m.data[q] = m.data[q-1]
			}
			for r := li + 1; r <= m.lead() && m.indptr[r] <= k; r++ {
				m.indptr[r]++
			}
			return m.fill(pos, ti)
		}
	}

	// No spare slot within reach: grow the arena and retry.  After the
	// redistribution every row owns at least one hole.
	newCap := 2 * len(m.ind)
	if min := m.nnz + m.lead(); newCap < min {
		newCap = min
	}
	m.copyAndDistribute(newCap)
	return m.insert(li, ti)
}

// fill initialises slot k with trailing index ti and a zero value.
func (m *Matrix) fill(k, ti int) int {
	m.ind[k] = ti
	m.data[k] = 0
	m.nnz++
	return k
}

// copyAndDistribute re-emits every row into a larger arena of capacity newCap,
// packing the initialised entries at the front of each row and distributing
// the spare capacity uniformly between rows.
func (m *Matrix) copyAndDistribute(newCap int) {
	l := m.lead()
	newInd := make([]int, newCap)
	for i := range newInd {
		newInd[i] = hole
	}
	newData := make([]float64, newCap)
	newPtr := make([]int, l+1)

	extra := newCap - m.nnz
	base, rem := extra/l, extra%l

	p := 0
	for r := 0; r < l; r++ {
		newPtr[r] = p
		for k := m.indptr[r]; k < m.indptr[r+1]; k++ {
			if m.ind[k] != hole {
				newInd[p] = m.ind[k]
				newData[p] = m.data[k]
				p++
			}
		}
		p += base
		if r < rem {
			p++
		}
	}
	newPtr[l] = p

	m.indptr = newPtr
	m.ind = newInd
	m.data = newData
}

// Reset prepares the matrix for a fresh assembly of an r * c system.  When the
// sparsity pattern lock is engaged and the shape is unchanged the pattern is
// kept and only the values are zeroed, which is the fast path for repeated
// assembly.  Otherwise the matrix reallocates with capacity for nnzHint
// elements.  A broken lock promise forces a compression before the values are
// reused.
func (m *Matrix) Reset(r, c, nnzHint int) {
	if m.locked && r == m.rows && c == m.cols {
		if m.lockBroken {
			m.Compress()
			m.lockBroken = false
		}
		for i := range m.data {
			m.data[i] = 0
		}
		return
	}
	if r < 0 {
		panic(mat.ErrRowAccess)
	}
	if c < 0 {
		panic(mat.ErrColAccess)
	}
	m.rows, m.cols = r, c
	m.alloc(nnzHint)
}

// Compress removes all gaps in place, packing the initialised entries to the
// front of each row while preserving their order, and reports whether the
// matrix was already compressed.  After Compress, indptr[lead] == NNZ().
func (m *Matrix) Compress() bool {
	if m.IsCompressed() {
		return true
	}
	l := m.lead()
	p := 0
	for r := 0; r < l; r++ {
		lo, hi := m.indptr[r], m.indptr[r+1]
		m.indptr[r] = p
		for k := lo; k < hi; k++ {
			if m.ind[k] != hole {
				m.ind[p] = m.ind[k]
				m.data[p] = m.data[k]
				p++
			}
		}
	}
	m.indptr[l] = p
	m.ind = m.ind[:p]
	m.data = m.data[:p]
	return false
}

// Prune compresses the matrix, additionally dropping every entry whose
// magnitude does not exceed threshold.  The matrix is compressed afterwards.
func (m *Matrix) Prune(threshold float64) {
	l := m.lead()
	p := 0
	for r := 0; r < l; r++ {
		lo, hi := m.indptr[r], m.indptr[r+1]
		m.indptr[r] = p
		for k := lo; k < hi; k++ {
			if m.ind[k] == hole {
				continue
			}
			if math.Abs(m.data[k]) <= threshold {
				m.nnz--
				if m.locked {
					m.lockBroken = true
				}
				continue
			}
			m.ind[p] = m.ind[k]
			m.data[p] = m.data[k]
			p++
		}
	}
	m.indptr[l] = p
	m.ind = m.ind[:p]
	m.data = m.data[:p]
}

// Trim reallocates the backing arrays so their capacity exactly matches their
// length, releasing any spare capacity beyond the current gaps.
func (m *Matrix) Trim() {
	ind := make([]int, len(m.ind))
	copy(ind, m.ind)
	data := make([]float64, len(m.data))
	copy(data, m.data)
	indptr := make([]int, len(m.indptr))
	copy(indptr, m.indptr)
	m.ind = ind
	m.data = data
	m.indptr = indptr
}

// SetPatternLock conveys the caller's promise that the set of stored (row,
// col) coordinates will not change between assemblies.  While the lock is
// engaged, Reset keeps the structure and only zeroes the values.  A structural
// write under the lock records the broken promise; LockBroken reports it and
// the next Reset triggers a compression.
func (m *Matrix) SetPatternLock(on bool) {
	m.locked = on
	if !on {
		m.lockBroken = false
	}
}

// LockBroken reports whether a structural write has violated an engaged
// sparsity pattern lock.
func (m *Matrix) LockBroken() bool {
	return m.lockBroken
}

// LoadPattern rebuilds the matrix structure from a learned sparsity pattern.
// All values are zeroed, every slot is initialised and the matrix is
// compressed after this call.  LoadPattern panics with mat.ErrShape if the
// learner's shape or orientation differs from the receiver's.
func (m *Matrix) LoadPattern(l *PatternLearner) {
	lr, lc := l.Dims()
	if lr != m.rows || lc != m.cols || l.rowMajor != m.rowMajor {
		panic(mat.ErrShape)
	}

	lists, nnz := l.Pattern()
	lead := m.lead()

	m.indptr = make([]int, lead+1)
	m.ind = make([]int, nnz)
	m.data = make([]float64, nnz)

	p := 0
	for r := 0; r < lead; r++ {
		m.indptr[r] = p
		p += copy(m.ind[p:], lists[r])
	}
	m.indptr[lead] = p
	m.nnz = p
	m.lockBroken = false
}
