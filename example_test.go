package quadprog_test

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/james-bowman/quadprog"
)

func ExampleSolver() {
	// minimize ½‖x‖² - x₁ - x₂ subject to x ≥ 0
	sys := &quadprog.DenseSystem{
		G: mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		A: mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		C: []float64{-1, -1},
		B: []float64{0, 0},
	}

	solver := quadprog.New()
	obj, err := solver.Solve(sys)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("x = [%.3f %.3f] objective = %.3f\n", sys.X[0], sys.X[1], obj)
	// Output: x = [1.000 1.000] objective = -1.000
}
