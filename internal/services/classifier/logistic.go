package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1 + e^z) without overflow.
func softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}

type fitResult struct {
	weights   []float64
	intercept float64
	status    string
}

// fitLogistic minimises the L2-regularised log loss
// 0.5*|w|^2 + C * sum(softplus(z) - y*z) with an unpenalised intercept.
// Parameters are laid out as [intercept, w...].
func fitLogistic(X [][]float64, y []float64, c float64, maxIter int) (fitResult, error) {
	if len(X) == 0 {
		return fitResult{}, fmt.Errorf("fit: no rows")
	}
	dim := len(X[0])

	linear := func(params, x []float64) float64 {
		return params[0] + floats.Dot(params[1:], x)
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			w := params[1:]
			loss := 0.5 * floats.Dot(w, w)
			for i, x := range X {
				z := linear(params, x)
				loss += c * (softplus(z) - y[i]*z)
			}
			return loss
		},
		Grad: func(grad, params []float64) {
			for j := range grad {
				grad[j] = 0
			}
			copy(grad[1:], params[1:])
			for i, x := range X {
				r := c * (sigmoid(linear(params, x)) - y[i])
				grad[0] += r
				floats.AddScaled(grad[1:], r, x)
			}
		},
	}

	x0 := make([]float64, dim+1)
	settings := &optimize.Settings{
		GradientThreshold: 1e-8,
		MajorIterations:   maxIter,
	}
	res, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if res == nil {
		return fitResult{}, fmt.Errorf("fit: %w", err)
	}
	for _, v := range res.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fitResult{}, fmt.Errorf("fit: non-finite parameters (status %s)", res.Status)
		}
	}

	// Line-search precision failures near the optimum still leave a usable
	// minimiser; the status is kept on the model.
	status := res.Status.String()
	if err != nil {
		status = fmt.Sprintf("%s: %v", status, err)
	}

	weights := make([]float64, dim)
	copy(weights, res.X[1:])
	return fitResult{weights: weights, intercept: res.X[0], status: status}, nil
}
