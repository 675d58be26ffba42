package models

import (
	"database/sql"
	"time"
)

// FeatureRow is one joined day with its derived features. Derived fields
// only ever look at this row's date and earlier.
type FeatureRow struct {
	Date         time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	FGIValue     int
	FGISentiment Sentiment

	// DailyReturn is a percentage change of Close against the previous
	// calendar day, never a fraction.
	DailyReturn      sql.NullFloat64
	Volatility7d     sql.NullFloat64
	FGIValueLag1     sql.NullInt64
	FGISentimentLag1 Sentiment
}

// Complete reports whether every derived field is defined.
func (r FeatureRow) Complete() bool {
	return r.DailyReturn.Valid && r.Volatility7d.Valid && r.FGIValueLag1.Valid && r.FGISentimentLag1.Valid()
}

// FeatureTable is the superset table, sorted ascending by date.
type FeatureTable struct {
	Rows   []FeatureRow
	Window int
}

// Modeling returns the rows with all derived fields defined.
func (t *FeatureTable) Modeling() []FeatureRow {
	if t == nil {
		return nil
	}
	out := make([]FeatureRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.Complete() {
			out = append(out, r)
		}
	}
	return out
}

// Latest returns the most recent row.
func (t *FeatureTable) Latest() (FeatureRow, bool) {
	if t == nil || len(t.Rows) == 0 {
		return FeatureRow{}, false
	}
	return t.Rows[len(t.Rows)-1], true
}

// Between returns rows with from <= date <= to. Zero bounds are open.
func (t *FeatureTable) Between(from, to time.Time) []FeatureRow {
	if t == nil {
		return nil
	}
	out := make([]FeatureRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		if !from.IsZero() && r.Date.Before(from) {
			continue
		}
		if !to.IsZero() && r.Date.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// LabeledRow pairs a feature row with its next-day direction target.
type LabeledRow struct {
	Row    FeatureRow
	Target sql.NullBool
}
