package classifier

import (
	"fmt"
	"math"
	"sort"
	"time"

	"SentiDash/internal/domain/models"
	"SentiDash/internal/services/labels"
	"SentiDash/pkg/util"
)

const (
	DefaultMinRows        = 20
	DefaultTestFraction   = 0.2
	DefaultRegularization = 1.0
	DefaultMaxIterations  = 500
)

type options struct {
	features     FeatureSet
	minRows      int
	testFraction float64
	c            float64
	maxIter      int
	fingerprint  string
}

// Option configures Train.
type Option func(*options)

// WithFeatureSet replaces DefaultFeatureSet.
func WithFeatureSet(fs FeatureSet) Option {
	return func(o *options) {
		if len(fs) > 0 {
			o.features = append(FeatureSet(nil), fs...)
		}
	}
}

// WithMinRows sets the minimum number of trainable rows.
func WithMinRows(n int) Option {
	return func(o *options) {
		if n >= 2 {
			o.minRows = n
		}
	}
}

// WithTestFraction sets the chronological holdout share. Zero evaluates in-sample.
func WithTestFraction(f float64) Option {
	return func(o *options) {
		if f >= 0 && f < 1 {
			o.testFraction = f
		}
	}
}

// WithRegularization sets the inverse L2 strength C.
func WithRegularization(c float64) Option {
	return func(o *options) {
		if c > 0 {
			o.c = c
		}
	}
}

// WithMaxIterations bounds the optimiser.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIter = n
		}
	}
}

// WithFingerprint stamps the model with the data/config key it was trained for.
func WithFingerprint(fp string) Option {
	return func(o *options) { o.fingerprint = fp }
}

// Model is a fitted logistic regression over standardised features.
type Model struct {
	Features       FeatureSet            `json:"features"`
	Scaler         Scaler                `json:"scaler"`
	Weights        []float64             `json:"weights"`
	Intercept      float64               `json:"intercept"`
	TrainRows      int                   `json:"train_rows"`
	TestRows       int                   `json:"test_rows"`
	TrainAccuracy  float64               `json:"train_accuracy"`
	TestAccuracy   float64               `json:"test_accuracy"`
	Evaluation     models.EvaluationKind `json:"evaluation"`
	TrainedThrough time.Time             `json:"trained_through"`
	Fingerprint    string                `json:"fingerprint"`
	Status         string                `json:"status"`
}

// Train fits a model on the trainable subset of rows in date order. The last
// ceil(TestFraction*n) rows are held out for evaluation.
func Train(rows []models.LabeledRow, opts ...Option) (*Model, error) {
	o := options{
		features:     DefaultFeatureSet,
		minRows:      DefaultMinRows,
		testFraction: DefaultTestFraction,
		c:            DefaultRegularization,
		maxIter:      DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.features.Validate(); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	data := labels.Trainable(rows)
	sort.SliceStable(data, func(i, j int) bool { return data[i].Row.Date.Before(data[j].Row.Date) })
	n := len(data)
	if n < o.minRows {
		return nil, fmt.Errorf("train: %w", &models.InsufficientDataError{Have: n, Need: o.minRows})
	}
	if err := checkClasses(data); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	nTest := 0
	if o.testFraction > 0 {
		nTest = int(math.Ceil(o.testFraction * float64(n)))
		if nTest >= n {
			nTest = n - 1
		}
	}
	train, test := data[:n-nTest], data[n-nTest:]
	if err := checkClasses(train); err != nil {
		return nil, fmt.Errorf("train: training slice: %w", err)
	}

	X, y, err := matrix(train, o.features)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	scaler := FitScaler(X)
	Xs := make([][]float64, len(X))
	for i, x := range X {
		Xs[i] = scaler.Transform(x)
	}

	fit, err := fitLogistic(Xs, y, o.c, o.maxIter)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	m := &Model{
		Features:       o.features,
		Scaler:         scaler,
		Weights:        fit.weights,
		Intercept:      fit.intercept,
		TrainRows:      len(train),
		TestRows:       len(test),
		Evaluation:     models.EvaluationInSample,
		TrainedThrough: train[len(train)-1].Row.Date,
		Fingerprint:    o.fingerprint,
		Status:         fit.status,
	}
	if m.TrainAccuracy, err = Evaluate(m, train); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	if len(test) > 0 {
		if m.TestAccuracy, err = Evaluate(m, test); err != nil {
			return nil, fmt.Errorf("train: %w", err)
		}
		m.Evaluation = models.EvaluationHoldout
	} else {
		m.TestAccuracy = m.TrainAccuracy
	}
	return m, nil
}

func checkClasses(rows []models.LabeledRow) error {
	if len(rows) == 0 {
		return nil
	}
	first := rows[0].Target.Bool
	for _, r := range rows[1:] {
		if r.Target.Bool != first {
			return nil
		}
	}
	return &models.DegenerateLabelError{Rows: len(rows), Class: first}
}

func matrix(rows []models.LabeledRow, fs FeatureSet) ([][]float64, []float64, error) {
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		x, err := Vectorize(r.Row, fs)
		if err != nil {
			return nil, nil, err
		}
		X[i] = x
		if r.Target.Bool {
			y[i] = 1
		}
	}
	return X, y, nil
}

// ProbabilityUp returns P(next close > close) for a row.
func (m *Model) ProbabilityUp(row models.FeatureRow) (float64, error) {
	x, err := Vectorize(row, m.Features)
	if err != nil {
		return 0, err
	}
	xs := m.Scaler.Transform(x)
	z := m.Intercept
	for j, w := range m.Weights {
		z += w * xs[j]
	}
	return sigmoid(z), nil
}

// Predict makes the forward-looking call for the day after row.
func (m *Model) Predict(row models.FeatureRow) (models.Prediction, error) {
	p, err := m.ProbabilityUp(row)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("predict: %w", err)
	}
	dir := models.DirectionFromBool(p > 0.5)
	return models.Prediction{
		AsOf:        util.Day(row.Date),
		TargetDate:  util.NextDay(row.Date),
		Direction:   dir,
		Label:       dir.String(),
		Probability: p,
	}, nil
}

// Accuracy is the headline score: holdout when available, else in-sample.
func (m *Model) Accuracy() float64 {
	if m.Evaluation == models.EvaluationHoldout {
		return m.TestAccuracy
	}
	return m.TrainAccuracy
}

// Coefficients returns the standardised weights, largest first.
func (m *Model) Coefficients() []models.Coefficient {
	out := make([]models.Coefficient, len(m.Features))
	for i, name := range m.Features {
		out[i] = models.Coefficient{Feature: name, Coefficient: m.Weights[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Coefficient > out[j].Coefficient })
	return out
}

// Evaluate returns the share of rows with a defined target that the model
// classifies correctly.
func Evaluate(m *Model, rows []models.LabeledRow) (float64, error) {
	var total, correct int
	for _, r := range rows {
		if !r.Target.Valid {
			continue
		}
		p, err := m.ProbabilityUp(r.Row)
		if err != nil {
			return 0, fmt.Errorf("evaluate: %w", err)
		}
		total++
		if (p > 0.5) == r.Target.Bool {
			correct++
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("evaluate: %w", &models.InsufficientDataError{Have: 0, Need: 1})
	}
	return float64(correct) / float64(total), nil
}
