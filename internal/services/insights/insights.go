package insights

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"SentiDash/internal/domain/models"
)

// SentimentStats describes next-day-style return behaviour following one
// sentiment category (grouped by the previous day's label).
type SentimentStats struct {
	Sentiment  models.Sentiment `json:"sentiment"`
	Count      int              `json:"count"`
	MeanReturn float64          `json:"mean_return"`
	StdReturn  float64          `json:"std_return"`
	WinRate    float64          `json:"win_rate"`
}

// SentimentSummary groups defined daily returns by lagged sentiment, in
// ordinal order. Categories with no rows are omitted.
func SentimentSummary(rows []models.FeatureRow) []SentimentStats {
	groups := make(map[models.Sentiment][]float64, len(models.Sentiments))
	for _, r := range rows {
		if !r.DailyReturn.Valid || !r.FGISentimentLag1.Valid() {
			continue
		}
		groups[r.FGISentimentLag1] = append(groups[r.FGISentimentLag1], r.DailyReturn.Float64)
	}

	out := make([]SentimentStats, 0, len(groups))
	for _, s := range models.Sentiments {
		rets := groups[s]
		if len(rets) == 0 {
			continue
		}
		st := SentimentStats{Sentiment: s, Count: len(rets), MeanReturn: stat.Mean(rets, nil)}
		if len(rets) > 1 {
			st.StdReturn = stat.StdDev(rets, nil)
		}
		wins := 0
		for _, v := range rets {
			if v > 0 {
				wins++
			}
		}
		st.WinRate = float64(wins) / float64(len(rets))
		out = append(out, st)
	}
	return out
}

// Correlation columns, in matrix order.
var CorrelationColumns = []string{"close", "fgi_value", "fgi_value_lag1", "daily_return", "volatility_7d"}

// Matrix is a square correlation matrix labelled by Columns. Undefined
// entries (constant columns) are null.
type Matrix struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
	Rows    int          `json:"rows"`
}

// CorrelationMatrix computes Pearson correlations over the rows where every
// column is defined.
func CorrelationMatrix(rows []models.FeatureRow) Matrix {
	cols := make([][]float64, len(CorrelationColumns))
	for _, r := range rows {
		if !r.DailyReturn.Valid || !r.Volatility7d.Valid || !r.FGIValueLag1.Valid {
			continue
		}
		vals := []float64{r.Close, float64(r.FGIValue), float64(r.FGIValueLag1.Int64), r.DailyReturn.Float64, r.Volatility7d.Float64}
		for j, v := range vals {
			cols[j] = append(cols[j], v)
		}
	}

	m := Matrix{Columns: CorrelationColumns, Values: make([][]*float64, len(cols)), Rows: len(cols[0])}
	for i := range cols {
		m.Values[i] = make([]*float64, len(cols))
		for j := range cols {
			if m.Rows < 2 {
				continue
			}
			c := stat.Correlation(cols[i], cols[j], nil)
			if math.IsNaN(c) || math.IsInf(c, 0) {
				continue
			}
			m.Values[i][j] = &c
		}
	}
	return m
}

// Report bundles the dashboard's exploratory views.
type Report struct {
	Sentiment   []SentimentStats `json:"sentiment"`
	Correlation Matrix           `json:"correlation"`
}

// Build computes both views over the same rows.
func Build(rows []models.FeatureRow) Report {
	return Report{Sentiment: SentimentSummary(rows), Correlation: CorrelationMatrix(rows)}
}
