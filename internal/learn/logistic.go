// Package learn fits L2-regularized binary logistic regression on sparse
// document-term matrices and estimates its accuracy with stratified k-fold
// cross-validation.
package learn

import (
	"errors"
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

var (
	ErrShapeMismatch     = errors.New("learn: label count does not match matrix rows")
	ErrNonBinaryLabels   = errors.New("learn: labels must be 0 or 1")
	ErrSingleClass       = errors.New("learn: labels contain a single class")
	ErrMissingDependency = errors.New("learn: numerical backend unavailable")
	errNoSolution        = errors.New("learn: optimizer returned no solution")
	errNonFiniteSolution = errors.New("learn: optimizer produced non-finite coefficients")
)

// Params are the solver settings.
type Params struct {
	C       float64 // inverse regularization strength
	MaxIter int
	Tol     float64 // stop when the gradient infinity norm falls below Tol
	Memory  int     // L-BFGS history size
}

func DefaultParams() Params {
	return Params{C: 1.0, MaxIter: 1000, Tol: 1e-4, Memory: 10}
}

type LogisticRegression struct {
	Coef       []float64
	Intercept  float64
	Iterations int
	Converged  bool
	Status     string
}

// Fit minimizes mean log-loss plus ||w||^2 / (2*C*n) with L-BFGS starting from
// zero. The intercept is not penalized. Row i of x is labeled y[i].
func Fit(x *sparse.CSR, y []int, p Params) (*LogisticRegression, error) {
	rows, cols := x.Dims()
	if len(y) != rows {
		return nil, fmt.Errorf("%w: %d labels for %d rows", ErrShapeMismatch, len(y), rows)
	}
	if err := checkLabels(y); err != nil {
		return nil, err
	}
	if p.C <= 0 {
		return nil, fmt.Errorf("learn: C must be positive, got %v", p.C)
	}

	obj := &objective{x: x, y: y, cols: cols, alpha: 1 / (p.C * float64(rows))}

	problem := optimize.Problem{
		Func: obj.value,
		Grad: obj.gradient,
	}
	settings := &optimize.Settings{
		GradientThreshold: p.Tol,
		MajorIterations:   p.MaxIter,
	}
	method := &optimize.LBFGS{Store: p.Memory}

	res, err := optimize.Minimize(problem, make([]float64, cols+1), settings, method)
	if res == nil {
		if err == nil {
			err = errNoSolution
		}
		return nil, fmt.Errorf("learn: minimize: %w", err)
	}
	if !isFinite(res.X) {
		return nil, errNonFiniteSolution
	}

	return &LogisticRegression{
		Coef:       append([]float64(nil), res.X[:cols]...),
		Intercept:  res.X[cols],
		Iterations: res.Stats.MajorIterations,
		Converged:  err == nil && res.Status != optimize.IterationLimit && res.Status != optimize.Failure,
		Status:     res.Status.String(),
	}, nil
}

func checkLabels(y []int) error {
	var pos, neg int
	for i, label := range y {
		switch label {
		case 0:
			neg++
		case 1:
			pos++
		default:
			return fmt.Errorf("%w: label %d at row %d", ErrNonBinaryLabels, label, i)
		}
	}
	if pos == 0 || neg == 0 {
		return fmt.Errorf("%w: %d positive, %d negative", ErrSingleClass, pos, neg)
	}
	return nil
}

// Decision returns intercept + coef . row for every row of x.
func (m *LogisticRegression) Decision(x *sparse.CSR) []float64 {
	rows, _ := x.Dims()
	out := make([]float64, rows)
	for i := range out {
		out[i] = m.Intercept + rowDot(x, i, m.Coef)
	}
	return out
}

// Predict labels a row 1 when its decision value is positive.
func (m *LogisticRegression) Predict(x *sparse.CSR) []int {
	decision := m.Decision(x)
	out := make([]int, len(decision))
	for i, d := range decision {
		if d > 0 {
			out[i] = 1
		}
	}
	return out
}

// Accuracy is the fraction of rows predicted as labeled.
func (m *LogisticRegression) Accuracy(x *sparse.CSR, y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	pred := m.Predict(x)
	var hit int
	for i := range y {
		if pred[i] == y[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(y))
}

func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

type objective struct {
	x     *sparse.CSR
	y     []int
	cols  int
	alpha float64
}

// margin returns s*z for row i, where s is +1 for label 1 and -1 for label 0.
func (o *objective) margin(params []float64, i int) (m, sign float64) {
	sign = -1
	if o.y[i] == 1 {
		sign = 1
	}
	z := params[o.cols] + rowDot(o.x, i, params[:o.cols])
	return sign * z, sign
}

func (o *objective) value(params []float64) float64 {
	var loss float64
	for i := range o.y {
		m, _ := o.margin(params, i)
		loss += logLoss(m)
	}
	n := float64(len(o.y))
	w := params[:o.cols]
	return loss/n + 0.5*o.alpha*floats.Dot(w, w)
}

func (o *objective) gradient(grad, params []float64) {
	for j := range grad {
		grad[j] = 0
	}
	n := float64(len(o.y))
	for i := range o.y {
		m, sign := o.margin(params, i)
		// d/dz log(1+exp(-s*z)) = -s * sigmoid(-m)
		g := -sign * Sigmoid(-m) / n
		addScaledRow(grad[:o.cols], g, o.x, i)
		grad[o.cols] += g
	}
	floats.AddScaled(grad[:o.cols], o.alpha, params[:o.cols])
}

// logLoss computes log(1 + exp(-m)) without overflow.
func logLoss(m float64) float64 {
	if m > 0 {
		return math.Log1p(math.Exp(-m))
	}
	return -m + math.Log1p(math.Exp(m))
}

func isFinite(v []float64) bool {
	for _, x := range v {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return false
		}
	}
	return true
}
