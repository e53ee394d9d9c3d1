package learn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// SelfCheck verifies the optimizer backend works before any file is touched.
// It minimizes (a-3)^2 + (b+1)^2 and expects to land on (3, -1).
func SelfCheck() error {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return (x[0]-3)*(x[0]-3) + (x[1]+1)*(x[1]+1)
		},
		Grad: func(grad, x []float64) {
			grad[0] = 2 * (x[0] - 3)
			grad[1] = 2 * (x[1] + 1)
		},
	}

	res, err := optimize.Minimize(problem, []float64{0, 0}, nil, &optimize.LBFGS{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingDependency, err)
	}
	if math.Abs(res.X[0]-3) > 1e-6 || math.Abs(res.X[1]+1) > 1e-6 {
		return fmt.Errorf("%w: expected (3, -1), got (%.6f, %.6f)", ErrMissingDependency, res.X[0], res.X[1])
	}
	return nil
}
