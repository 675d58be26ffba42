package labels

import (
	"database/sql"
	"time"

	"SentiDash/internal/domain/models"
	"SentiDash/pkg/util"
)

// Direction is the single definition of an up day: the next close is
// strictly greater than today's close.
func Direction(today, next float64) bool {
	return next > today
}

// WithLabels attaches the next-day target to every row. The target is
// undefined when the following row is not the next calendar day, and for
// the last row.
func WithLabels(rows []models.FeatureRow) []models.LabeledRow {
	out := make([]models.LabeledRow, len(rows))
	for i, r := range rows {
		out[i].Row = r
		if i+1 < len(rows) && util.IsNextDay(r.Date, rows[i+1].Date) {
			out[i].Target = sql.NullBool{Bool: Direction(r.Close, rows[i+1].Close), Valid: true}
		}
	}
	return out
}

// Trainable keeps rows with complete features and a defined target.
func Trainable(rows []models.LabeledRow) []models.LabeledRow {
	out := make([]models.LabeledRow, 0, len(rows))
	for _, r := range rows {
		if r.Target.Valid && r.Row.Complete() {
			out = append(out, r)
		}
	}
	return out
}

// Realized applies Direction to the price series for date -> date+1.
// The second result is false while date+1 has no close yet.
func Realized(prices []models.PricePoint, date time.Time) (bool, bool) {
	return RealizedFrom(CloseIndex(prices), date)
}

// RealizedFrom is Realized over a prebuilt date -> close index.
func RealizedFrom(closes map[time.Time]float64, date time.Time) (bool, bool) {
	today, ok := closes[util.Day(date)]
	if !ok {
		return false, false
	}
	next, ok := closes[util.NextDay(date)]
	if !ok {
		return false, false
	}
	return Direction(today, next), true
}

// CloseIndex builds the date -> close lookup used by RealizedFrom.
func CloseIndex(prices []models.PricePoint) map[time.Time]float64 {
	closes := make(map[time.Time]float64, len(prices))
	for _, p := range prices {
		closes[util.Day(p.Date)] = p.Close
	}
	return closes
}
