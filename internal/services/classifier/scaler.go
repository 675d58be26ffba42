package classifier

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardises columns to zero mean and unit population variance.
type Scaler struct {
	Means  []float64 `json:"means"`
	Scales []float64 `json:"scales"`
}

// FitScaler learns per-column moments. Constant columns get scale 1.
func FitScaler(X [][]float64) Scaler {
	if len(X) == 0 {
		return Scaler{}
	}
	cols := len(X[0])
	s := Scaler{Means: make([]float64, cols), Scales: make([]float64, cols)}
	col := make([]float64, len(X))
	n := float64(len(X))
	for j := 0; j < cols; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		mean, variance := stat.MeanVariance(col, nil)
		if len(X) < 2 || math.IsNaN(variance) {
			variance = 0
		}
		sd := math.Sqrt(variance * (n - 1) / n)
		if sd == 0 {
			sd = 1
		}
		s.Means[j] = mean
		s.Scales[j] = sd
	}
	return s
}

// Transform returns a standardised copy of x.
func (s Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Means[j]) / s.Scales[j]
	}
	return out
}
