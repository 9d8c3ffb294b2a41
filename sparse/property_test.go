package sparse

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/exp/rand"
)

type cell struct {
	i, j int
	v    float64
}

// randomCells derives a reproducible insertion sequence from a seed,
// including duplicate coordinates whose later values win.
func randomCells(seed uint64, r, c int) []cell {
	rnd := rand.New(rand.NewSource(seed))
	n := rnd.Intn(3*r*c) + 1
	cells := make([]cell, n)
	for k := range cells {
		cells[k] = cell{
			i: rnd.Intn(r),
			j: rnd.Intn(c),
			v: rnd.Float64()*2 - 1,
		}
	}
	return cells
}

func buildFromCells(cells []cell, r, c int, rowMajor bool) (*Matrix, map[[2]int]float64) {
	var m *Matrix
	if rowMajor {
		m = New(r, c, 0)
	} else {
		m = NewColMajor(r, c, 0)
	}
	ref := make(map[[2]int]float64)
	for _, cl := range cells {
		m.Set(cl.i, cl.j, cl.v)
		ref[[2]int{cl.i, cl.j}] = cl.v
	}
	return m, ref
}

func TestMatrixProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	dims := gen.IntRange(1, 9)
	seeds := gen.UInt64()
	orientations := gen.Bool()

	properties.Property("a full scan reproduces the inserted pattern and values", prop.ForAll(
		func(seed uint64, r, c int, rowMajor bool) bool {
			m, ref := buildFromCells(randomCells(seed, r, c), r, c, rowMajor)

			seen := make(map[[2]int]float64)
			m.DoNonZero(func(i, j int, v float64) {
				seen[[2]int{i, j}] = v
			})
			if len(seen) != len(ref) || m.NNZ() != len(ref) {
				return false
			}
			for k, v := range ref {
				if seen[k] != v {
					return false
				}
			}
			return true
		},
		seeds, dims, dims, orientations,
	))

	properties.Property("iteration order is lexicographic after Compress", prop.ForAll(
		func(seed uint64, r, c int) bool {
			m, _ := buildFromCells(randomCells(seed, r, c), r, c, true)
			m.Compress()

			prevI, prevJ := -1, -1
			ok := true
			m.DoNonZero(func(i, j int, v float64) {
				if i < prevI || (i == prevI && j <= prevJ) {
					ok = false
				}
				prevI, prevJ = i, j
			})
			return ok
		},
		seeds, dims, dims,
	))

	properties.Property("rows stay strictly ascending through arbitrary insertion", prop.ForAll(
		func(seed uint64, r, c int) bool {
			m, _ := buildFromCells(randomCells(seed, r, c), r, c, true)
			for l := 0; l < r; l++ {
				last := -1
				for k := m.indptr[l]; k < m.indptr[l+1]; k++ {
					if m.ind[k] == hole {
						continue
					}
					if m.ind[k] <= last {
						return false
					}
					last = m.ind[k]
				}
			}
			return true
		},
		seeds, dims, dims,
	))

	properties.Property("NNZ accounting matches initialised slots and compressed length", prop.ForAll(
		func(seed uint64, r, c int) bool {
			m, ref := buildFromCells(randomCells(seed, r, c), r, c, true)

			initialised := 0
			for _, ti := range m.ind {
				if ti != hole {
					initialised++
				}
			}
			if m.NNZ() != initialised || m.NNZ() != len(ref) {
				return false
			}
			m.Compress()
			return m.indptr[m.lead()] == m.NNZ()
		},
		seeds, dims, dims,
	))

	properties.Property("mat-vec agrees with the dense reference", prop.ForAll(
		func(seed uint64, r, c int, rowMajor bool) bool {
			m, ref := buildFromCells(randomCells(seed, r, c), r, c, rowMajor)

			rnd := rand.New(rand.NewSource(seed ^ 0x9e3779b97f4a7c15))
			x := make([]float64, c)
			for i := range x {
				x[i] = rnd.Float64()*2 - 1
			}

			want := make([]float64, r)
			for k, v := range ref {
				want[k[0]] += v * x[k[1]]
			}

			got := make([]float64, r)
			m.MulVec(got, x)
			for i := range want {
				if math.Abs(got[i]-want[i]) > 1e-12*(1+math.Abs(want[i])) {
					return false
				}
			}
			return true
		},
		seeds, dims, dims, orientations,
	))

	properties.Property("clipping to the full range equals the plain mat-vec", prop.ForAll(
		func(seed uint64, r, c int, rowMajor bool) bool {
			m, _ := buildFromCells(randomCells(seed, r, c), r, c, rowMajor)

			rnd := rand.New(rand.NewSource(seed ^ 0xdeadbeef))
			x := make([]float64, c)
			for i := range x {
				x[i] = rnd.Float64()
			}

			full := make([]float64, r)
			m.MulVec(full, x)
			clipped := make([]float64, r)
			m.MulVecClipped(clipped, x, 0, r, 0, c, 0, 0)
			for i := range full {
				if full[i] != clipped[i] {
					return false
				}
			}
			return true
		},
		seeds, dims, dims, orientations,
	))

	properties.TestingRun(t)
}
