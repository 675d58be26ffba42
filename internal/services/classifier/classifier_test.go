package classifier

import (
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentiDash/internal/domain/models"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func featureRow(i int, ret float64) models.FeatureRow {
	s := models.SentimentFear
	if ret > 0 {
		s = models.SentimentGreed
	}
	return models.FeatureRow{
		Date:             base.AddDate(0, 0, i),
		Close:            100,
		FGIValue:         50,
		FGISentiment:     s,
		DailyReturn:      sql.NullFloat64{Float64: ret, Valid: true},
		Volatility7d:     sql.NullFloat64{Float64: 2 + float64(i%3), Valid: true},
		FGIValueLag1:     sql.NullInt64{Int64: 50, Valid: true},
		FGISentimentLag1: models.SentimentNeutral,
	}
}

// separable returns n rows whose target is the sign of the daily return.
func separable(n int) []models.LabeledRow {
	rows := make([]models.LabeledRow, n)
	for i := range rows {
		ret := float64(1 + i%5)
		if i%2 == 1 {
			ret = -ret
		}
		rows[i] = models.LabeledRow{
			Row:    featureRow(i, ret),
			Target: sql.NullBool{Bool: ret > 0, Valid: true},
		}
	}
	return rows
}

func TestTrainSeparable(t *testing.T) {
	m, err := Train(separable(60))
	require.NoError(t, err)

	assert.Equal(t, models.EvaluationHoldout, m.Evaluation)
	assert.Equal(t, 48, m.TrainRows)
	assert.Equal(t, 12, m.TestRows)
	assert.Equal(t, 1.0, m.TrainAccuracy)
	assert.Equal(t, 1.0, m.TestAccuracy)
	assert.Equal(t, m.TestAccuracy, m.Accuracy())
	assert.Equal(t, base.AddDate(0, 0, 47), m.TrainedThrough)

	coefs := m.Coefficients()
	require.Len(t, coefs, 3)
	for i := 1; i < len(coefs); i++ {
		assert.GreaterOrEqual(t, coefs[i-1].Coefficient, coefs[i].Coefficient)
	}
	for _, c := range coefs {
		if c.Feature == FeatureDailyReturn {
			assert.Greater(t, c.Coefficient, 0.0)
		}
	}
}

func TestPredict(t *testing.T) {
	m, err := Train(separable(60))
	require.NoError(t, err)

	up, err := m.Predict(featureRow(100, 4))
	require.NoError(t, err)
	assert.Equal(t, models.DirectionUp, up.Direction)
	assert.Equal(t, "up", up.Label)
	assert.Greater(t, up.Probability, 0.5)
	assert.Equal(t, base.AddDate(0, 0, 100), up.AsOf)
	assert.Equal(t, base.AddDate(0, 0, 101), up.TargetDate)

	down, err := m.Predict(featureRow(101, -4))
	require.NoError(t, err)
	assert.Equal(t, models.DirectionDown, down.Direction)
	assert.Less(t, down.Probability, 0.5)
}

func TestPredictFeatureMissing(t *testing.T) {
	m, err := Train(separable(60))
	require.NoError(t, err)

	row := featureRow(100, 1)
	row.DailyReturn = sql.NullFloat64{}
	_, err = m.Predict(row)

	var missing *models.FeatureMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FeatureDailyReturn, missing.Feature)
	assert.Equal(t, row.Date, missing.Date)
}

func TestTrainInsufficientData(t *testing.T) {
	_, err := Train(separable(10))

	var insufficient *models.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 10, insufficient.Have)
	assert.Equal(t, DefaultMinRows, insufficient.Need)
}

func TestTrainSkipsUntrainableRows(t *testing.T) {
	rows := separable(25)
	for i := 0; i < 10; i++ {
		rows[i].Target = sql.NullBool{}
	}
	_, err := Train(rows)

	var insufficient *models.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 15, insufficient.Have)
}

func TestTrainDegenerate(t *testing.T) {
	rows := separable(30)
	for i := range rows {
		rows[i].Target.Bool = true
	}
	_, err := Train(rows)

	var degenerate *models.DegenerateLabelError
	require.ErrorAs(t, err, &degenerate)
	assert.True(t, degenerate.Class)
	assert.Equal(t, 30, degenerate.Rows)
}

func TestTrainDegenerateTrainingSlice(t *testing.T) {
	rows := separable(30)
	for i := 0; i < 24; i++ {
		rows[i].Target.Bool = false
	}
	_, err := Train(rows)

	var degenerate *models.DegenerateLabelError
	require.ErrorAs(t, err, &degenerate)
	assert.False(t, degenerate.Class)
	assert.Equal(t, 24, degenerate.Rows)
}

func TestTrainInSample(t *testing.T) {
	m, err := Train(separable(40), WithTestFraction(0))
	require.NoError(t, err)

	assert.Equal(t, models.EvaluationInSample, m.Evaluation)
	assert.Equal(t, 40, m.TrainRows)
	assert.Zero(t, m.TestRows)
	assert.Equal(t, m.TrainAccuracy, m.Accuracy())
}

func TestTrainDeterministic(t *testing.T) {
	a, err := Train(separable(60), WithFingerprint("fp"))
	require.NoError(t, err)
	b, err := Train(separable(60), WithFingerprint("fp"))
	require.NoError(t, err)

	assert.Equal(t, a.Weights, b.Weights)
	assert.Equal(t, a.Intercept, b.Intercept)
	assert.Equal(t, "fp", a.Fingerprint)
}

func TestTrainRejectsUnknownFeature(t *testing.T) {
	_, err := Train(separable(60), WithFeatureSet(FeatureSet{"rsi_14"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rsi_14")

	_, err = Train(separable(60), WithFeatureSet(FeatureSet{FeatureFGIValue, FeatureFGIValue}))
	require.Error(t, err)
}

func TestTrainCustomFeatureSet(t *testing.T) {
	fs := FeatureSet{FeatureDailyReturn, FeatureFGIValueLag1, FeatureSentimentLag1}
	m, err := Train(separable(60), WithFeatureSet(fs))
	require.NoError(t, err)
	assert.Equal(t, fs, m.Features)
	assert.Len(t, m.Weights, 3)
}

func TestEvaluateEmpty(t *testing.T) {
	m, err := Train(separable(60))
	require.NoError(t, err)

	_, err = Evaluate(m, nil)
	var insufficient *models.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}

func TestModelSurvivesJSON(t *testing.T) {
	m, err := Train(separable(60))
	require.NoError(t, err)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	var decoded Model
	require.NoError(t, json.Unmarshal(raw, &decoded))

	row := featureRow(70, 3)
	want, err := m.ProbabilityUp(row)
	require.NoError(t, err)
	got, err := decoded.ProbabilityUp(row)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestEncodeSentimentOrder(t *testing.T) {
	for i, s := range models.Sentiments {
		v, ok := EncodeSentiment(s)
		require.True(t, ok)
		assert.Equal(t, float64(i), v)
	}
	_, ok := EncodeSentiment("")
	assert.False(t, ok)
}

func TestScaler(t *testing.T) {
	s := FitScaler([][]float64{{1, 5}, {2, 5}, {3, 5}, {4, 5}})

	assert.InDelta(t, 2.5, s.Means[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Scales[0], 1e-12)
	assert.Equal(t, 1.0, s.Scales[1])
	assert.Equal(t, []float64{0, 0}, s.Transform([]float64{2.5, 5}))
}
