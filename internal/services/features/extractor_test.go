package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentiDash/internal/domain/models"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func series(closes []float64) ([]models.PricePoint, []models.SentimentPoint) {
	prices := make([]models.PricePoint, len(closes))
	sents := make([]models.SentimentPoint, len(closes))
	for i, c := range closes {
		d := day0.AddDate(0, 0, i)
		prices[i] = models.PricePoint{Date: d, Open: c, High: c, Low: c, Close: c, Volume: 1}
		sents[i] = models.SentimentPoint{Date: d, Value: 10 + i, Sentiment: models.Sentiments[i%len(models.Sentiments)]}
	}
	return prices, sents
}

func TestBuildFeaturesPercentReturns(t *testing.T) {
	prices, sents := series([]float64{100, 110, 99, 99, 120})
	table, err := BuildFeatures(prices, sents)
	require.NoError(t, err)
	require.Len(t, table.Rows, 5)

	assert.False(t, table.Rows[0].DailyReturn.Valid)
	want := []float64{10.0, -10.0, 0.0, 21.2121}
	for i, w := range want {
		r := table.Rows[i+1].DailyReturn
		require.True(t, r.Valid)
		assert.InDelta(t, w, r.Float64, 1e-4)
	}
}

func TestBuildFeaturesVolatilityWindow(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i%3)*5
	}
	prices, sents := series(closes)
	table, err := BuildFeatures(prices, sents)
	require.NoError(t, err)

	// The std needs seven returns and row 0 has none, so the first seven
	// rows are undefined, not six. Row 7 is the first with a full window.
	for i, r := range table.Rows {
		if i < DefaultVolatilityWindow {
			assert.False(t, r.Volatility7d.Valid, "row %d", i)
		} else {
			assert.True(t, r.Volatility7d.Valid, "row %d", i)
		}
	}
	assert.Len(t, table.Modeling(), 20-DefaultVolatilityWindow)
	assert.Equal(t, DefaultVolatilityWindow, table.Window)
}

func TestBuildFeaturesVolatilityValues(t *testing.T) {
	prices, sents := series([]float64{100, 110, 99, 99, 120})
	table, err := BuildFeatures(prices, sents, WithVolatilityWindow(2))
	require.NoError(t, err)

	assert.False(t, table.Rows[1].Volatility7d.Valid)
	assert.InDelta(t, math.Sqrt(200), table.Rows[2].Volatility7d.Float64, 1e-9)
	assert.InDelta(t, math.Sqrt(50), table.Rows[3].Volatility7d.Float64, 1e-9)
}

func TestBuildFeaturesLagMatchesPreviousRow(t *testing.T) {
	prices, sents := series([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	table, err := BuildFeatures(prices, sents)
	require.NoError(t, err)

	assert.False(t, table.Rows[0].FGIValueLag1.Valid)
	assert.False(t, table.Rows[0].FGISentimentLag1.Valid())
	for i := 1; i < len(table.Rows); i++ {
		assert.Equal(t, table.Rows[i-1].FGISentiment, table.Rows[i].FGISentimentLag1)
		assert.Equal(t, int64(table.Rows[i-1].FGIValue), table.Rows[i].FGIValueLag1.Int64)
	}
}

func TestBuildFeaturesGapStartsNewRun(t *testing.T) {
	prices, sents := series([]float64{100, 101, 102, 103, 104, 105})
	// drop day 3 from sentiment: the inner join leaves a gap
	sents = append(sents[:3], sents[4:]...)

	table, err := BuildFeatures(prices, sents)
	require.NoError(t, err)
	require.Len(t, table.Rows, 5)

	afterGap := table.Rows[3]
	assert.Equal(t, day0.AddDate(0, 0, 4), afterGap.Date)
	assert.False(t, afterGap.DailyReturn.Valid)
	assert.False(t, afterGap.FGIValueLag1.Valid)
	assert.True(t, table.Rows[4].DailyReturn.Valid)
}

func TestBuildFeaturesSortsInput(t *testing.T) {
	prices, sents := series([]float64{100, 110, 99})
	prices[0], prices[2] = prices[2], prices[0]
	sents[0], sents[1] = sents[1], sents[0]

	table, err := BuildFeatures(prices, sents)
	require.NoError(t, err)
	for i := 1; i < len(table.Rows); i++ {
		assert.True(t, table.Rows[i-1].Date.Before(table.Rows[i].Date))
	}
	assert.InDelta(t, 10.0, table.Rows[1].DailyReturn.Float64, 1e-9)
}

func TestBuildFeaturesNoOverlap(t *testing.T) {
	prices, _ := series([]float64{100, 110})
	_, sents := series([]float64{1, 2})
	for i := range sents {
		sents[i].Date = sents[i].Date.AddDate(1, 0, 0)
	}
	_, err := BuildFeatures(prices, sents)
	var alignErr *models.DataAlignmentError
	require.ErrorAs(t, err, &alignErr)
	assert.Equal(t, 2, alignErr.PriceRows)
}

func TestBuildFeaturesDuplicateDate(t *testing.T) {
	prices, sents := series([]float64{100, 110})
	prices = append(prices, prices[1])
	_, err := BuildFeatures(prices, sents)
	assert.True(t, errors.Is(err, ErrDuplicateDate))
}

func TestBuildFeaturesIsDeterministic(t *testing.T) {
	prices, sents := series([]float64{100, 103, 97, 99, 120, 118, 121, 125, 119, 130})
	a, err := BuildFeatures(prices, sents)
	require.NoError(t, err)
	b, err := BuildFeatures(prices, sents)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
