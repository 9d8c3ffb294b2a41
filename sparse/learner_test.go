package sparse

import (
	"testing"
)

func TestPatternLearnerSortsAndDeduplicates(t *testing.T) {
	l := NewPatternLearner(3, 4)
	coords := [][2]int{
		{0, 3}, {0, 1}, {0, 3}, {0, 1},
		{2, 0}, {2, 2}, {2, 0},
	}
	for _, rc := range coords {
		l.Accumulate(rc[0], rc[1], 42)
	}

	lists, nnz := l.Pattern()
	if nnz != 4 {
		t.Fatalf("expected NNZ 4 but received %d", nnz)
	}

	expected := [][]int{{1, 3}, nil, {0, 2}}
	for r := range expected {
		if len(lists[r]) != len(expected[r]) {
			t.Fatalf("row %d: expected %v but received %v", r, expected[r], lists[r])
		}
		for i := range expected[r] {
			if lists[r][i] != expected[r][i] {
				t.Errorf("row %d: expected %v but received %v", r, expected[r], lists[r])
				break
			}
		}
	}

	// Pattern is idempotent
	if _, nnz2 := l.Pattern(); nnz2 != 4 {
		t.Errorf("second Pattern call changed NNZ to %d", nnz2)
	}
	if l.NNZ() != 4 {
		t.Errorf("expected NNZ 4 but received %d", l.NNZ())
	}
}

func TestPatternLearnerColMajor(t *testing.T) {
	l := NewPatternLearnerColMajor(2, 3)
	l.Set(1, 2, 0)
	l.Set(0, 2, 0)
	l.Set(0, 0, 0)

	lists, nnz := l.Pattern()
	if nnz != 3 {
		t.Fatalf("expected NNZ 3 but received %d", nnz)
	}
	// leading dimension is columns; lists hold row indices
	if len(lists[0]) != 1 || lists[0][0] != 0 {
		t.Errorf("col 0: expected [0] but received %v", lists[0])
	}
	if len(lists[2]) != 2 || lists[2][0] != 0 || lists[2][1] != 1 {
		t.Errorf("col 2: expected [0 1] but received %v", lists[2])
	}

	m := NewColMajor(2, 3, 0)
	m.LoadPattern(l)
	if m.NNZ() != 3 {
		t.Errorf("expected NNZ 3 after LoadPattern but received %d", m.NNZ())
	}
}

func TestLoadPatternOrientationMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on orientation mismatch")
		}
	}()
	l := NewPatternLearnerColMajor(2, 2)
	m := New(2, 2, 0)
	m.LoadPattern(l)
}
