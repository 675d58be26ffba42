package features

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"SentiDash/internal/domain/models"
	"SentiDash/pkg/util"
)

const (
	// DefaultVolatilityWindow is the number of trailing daily returns in volatility_7d.
	DefaultVolatilityWindow = 7

	// ReturnUnit documents the unit of daily_return across the system.
	ReturnUnit = "percent"
)

// ErrDuplicateDate is returned when one input series repeats a date.
var ErrDuplicateDate = errors.New("duplicate date")

// Option configures BuildFeatures.
type Option func(*builder)

type builder struct {
	window int
}

// WithVolatilityWindow overrides the rolling volatility window (minimum 2).
func WithVolatilityWindow(n int) Option {
	return func(b *builder) {
		if n >= 2 {
			b.window = n
		}
	}
}

// BuildFeatures inner-joins prices and sentiment on date and derives returns,
// rolling volatility and lag-1 sentiment. The returned table is the superset
// (undefined fields kept); use Modeling() for the rows fit for training.
func BuildFeatures(prices []models.PricePoint, sentiment []models.SentimentPoint, opts ...Option) (*models.FeatureTable, error) {
	b := &builder{window: DefaultVolatilityWindow}
	for _, opt := range opts {
		opt(b)
	}

	rows, err := Join(prices, sentiment)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &models.DataAlignmentError{PriceRows: len(prices), SentimentRows: len(sentiment)}
	}

	var run []float64
	for i := range rows {
		if i == 0 || !util.IsNextDay(rows[i-1].Date, rows[i].Date) {
			run = run[:0]
			continue
		}
		prev := rows[i-1]
		rows[i].FGIValueLag1 = sql.NullInt64{Int64: int64(prev.FGIValue), Valid: true}
		rows[i].FGISentimentLag1 = prev.FGISentiment

		r, ok := PercentReturn(prev.Close, rows[i].Close)
		if !ok {
			run = run[:0]
			continue
		}
		rows[i].DailyReturn = sql.NullFloat64{Float64: r, Valid: true}
		run = append(run, r)
		if sigma, ok := RollingVolatility(run, b.window); ok {
			rows[i].Volatility7d = sql.NullFloat64{Float64: sigma, Valid: true}
		}
	}

	return &models.FeatureTable{Rows: rows, Window: b.window}, nil
}

// Join returns one row per date present in both series, sorted ascending.
func Join(prices []models.PricePoint, sentiment []models.SentimentPoint) ([]models.FeatureRow, error) {
	byDate := make(map[string]models.SentimentPoint, len(sentiment))
	for _, s := range sentiment {
		key := util.FormatDate(s.Date)
		if _, dup := byDate[key]; dup {
			return nil, fmt.Errorf("sentiment %s: %w", key, ErrDuplicateDate)
		}
		byDate[key] = s
	}

	sorted := make([]models.PricePoint, len(prices))
	copy(sorted, prices)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]models.FeatureRow, 0, len(sorted))
	seen := make(map[string]struct{}, len(sorted))
	for _, p := range sorted {
		key := util.FormatDate(p.Date)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("price %s: %w", key, ErrDuplicateDate)
		}
		seen[key] = struct{}{}

		s, ok := byDate[key]
		if !ok {
			continue
		}
		out = append(out, models.FeatureRow{
			Date:         util.Day(p.Date),
			Open:         p.Open,
			High:         p.High,
			Low:          p.Low,
			Close:        p.Close,
			Volume:       p.Volume,
			FGIValue:     s.Value,
			FGISentiment: s.Sentiment,
		})
	}
	return out, nil
}

// PercentReturn computes (cur/prev - 1) * 100. It is undefined for
// non-positive prices.
func PercentReturn(prev, cur float64) (float64, bool) {
	if prev <= 0 || cur <= 0 {
		return 0, false
	}
	return (cur/prev - 1) * 100, true
}

// RollingVolatility returns the sample standard deviation of the last
// window returns, or false until window returns are available.
func RollingVolatility(returns []float64, window int) (float64, bool) {
	if window < 2 || len(returns) < window {
		return 0, false
	}
	sigma := stat.StdDev(returns[len(returns)-window:], nil)
	if math.IsNaN(sigma) {
		return 0, false
	}
	return sigma, true
}
