package ledger

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentiDash/internal/domain/models"
	"SentiDash/internal/services/classifier"
	"SentiDash/internal/services/features"
	"SentiDash/internal/services/labels"
)

var day0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

type memStore struct {
	entries []models.LedgerEntry
}

func (m *memStore) Init(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) Append(_ context.Context, e models.LedgerEntry) error {
	for _, old := range m.entries {
		if old.RunDate.Equal(e.RunDate) {
			return &models.DuplicateEntryError{Existing: old}
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) ReadAll(context.Context) ([]models.LedgerEntry, error) {
	return append([]models.LedgerEntry(nil), m.entries...), nil
}

type fakeLocker struct {
	held   map[string]bool
	denied bool
}

func (f *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.denied || f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) Unlock(_ context.Context, key string) error {
	delete(f.held, key)
	return nil
}

func series(days int) ([]models.PricePoint, []models.SentimentPoint) {
	prices := make([]models.PricePoint, days)
	sent := make([]models.SentimentPoint, days)
	for i := 0; i < days; i++ {
		d := day0.AddDate(0, 0, i)
		c := 100 + 8*math.Sin(float64(i)*1.3) + float64(i)*0.2
		prices[i] = models.PricePoint{Date: d, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10}
		v := 10 + (i*17)%80
		sent[i] = models.SentimentPoint{Date: d, Value: v, Sentiment: models.Sentiments[v/21]}
	}
	return prices, sent
}

func trained(t *testing.T, prices []models.PricePoint, sent []models.SentimentPoint) (*classifier.Model, *models.FeatureTable) {
	t.Helper()
	table, err := features.BuildFeatures(prices, sent)
	require.NoError(t, err)
	m, err := classifier.Train(labels.WithLabels(table.Rows), classifier.WithTestFraction(0))
	require.NoError(t, err)
	return m, table
}

func TestRecordUnknownUntilNextDayPriced(t *testing.T) {
	prices, sent := series(45)
	m, table := trained(t, prices, sent)
	store := &memStore{}

	entry, err := NewRecorder(store).Record(context.Background(), m, table, prices)
	require.NoError(t, err)

	assert.Equal(t, day0.AddDate(0, 0, 44), entry.RunDate)
	assert.Equal(t, models.OutcomeUnknown, entry.IsCorrect)
	assert.Equal(t, m.TrainAccuracy, entry.Accuracy)
	require.Len(t, store.entries, 1)
}

func TestRecordResolvesWhenNextDayPriced(t *testing.T) {
	prices, sent := series(46)
	m, table := trained(t, prices, sent[:45])

	pred, entry, err := Prepare(m, table, prices)
	require.NoError(t, err)

	up, ok := labels.Realized(prices, entry.RunDate)
	require.True(t, ok)
	assert.Equal(t, models.OutcomeFrom(pred.Direction, up), entry.IsCorrect)
	assert.True(t, entry.IsCorrect.Resolved())
}

func TestRecordRejectsDuplicate(t *testing.T) {
	prices, sent := series(45)
	m, table := trained(t, prices, sent)
	store := &memStore{}
	rec := NewRecorder(store)

	first, err := rec.Record(context.Background(), m, table, prices)
	require.NoError(t, err)
	_, err = rec.Record(context.Background(), m, table, prices)

	var dup *models.DuplicateEntryError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first, dup.Existing)
	assert.Len(t, store.entries, 1)
}

func TestRecordFeatureMissingWritesNothing(t *testing.T) {
	prices, sent := series(45)
	m, table := trained(t, prices, sent)
	table.Rows[len(table.Rows)-1].DailyReturn.Valid = false
	store := &memStore{}

	_, err := NewRecorder(store).Record(context.Background(), m, table, prices)

	var missing *models.FeatureMissingError
	require.ErrorAs(t, err, &missing)
	assert.Empty(t, store.entries)
}

func TestRecordEmptyTable(t *testing.T) {
	prices, sent := series(45)
	m, _ := trained(t, prices, sent)

	_, err := NewRecorder(&memStore{}).Record(context.Background(), m, &models.FeatureTable{}, prices)
	var insufficient *models.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)
}

func TestCommitWithLocker(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{}}
	store := &memStore{}
	rec := NewRecorder(store, WithLocker(locker, time.Second))
	entry := models.LedgerEntry{RunDate: day0, IsCorrect: models.OutcomeUnknown}

	require.NoError(t, rec.Commit(context.Background(), entry))
	assert.Empty(t, locker.held)

	locker.denied = true
	err := rec.Commit(context.Background(), models.LedgerEntry{RunDate: day0.AddDate(0, 0, 1)})
	assert.True(t, errors.Is(err, ErrLocked))
	assert.Len(t, store.entries, 1)
}

func TestHistoryResolvesAgainstPrices(t *testing.T) {
	prices := []models.PricePoint{
		{Date: day0, Close: 100},
		{Date: day0.AddDate(0, 0, 1), Close: 105},
		{Date: day0.AddDate(0, 0, 2), Close: 101},
	}
	store := &memStore{entries: []models.LedgerEntry{
		{RunDate: day0.AddDate(0, 0, 2), PredictedDirection: models.DirectionUp, IsCorrect: models.OutcomeUnknown},
		{RunDate: day0.AddDate(0, 0, 1), PredictedDirection: models.DirectionUp, IsCorrect: models.OutcomeUnknown},
		{RunDate: day0, PredictedDirection: models.DirectionUp, IsCorrect: models.OutcomeIncorrect},
	}}

	report, err := History(context.Background(), store, prices)
	require.NoError(t, err)
	require.Len(t, report.Entries, 3)

	assert.Equal(t, day0, report.Entries[0].RunDate)
	assert.Equal(t, models.OutcomeCorrect, report.Entries[0].Resolved)
	assert.Equal(t, models.OutcomeIncorrect, report.Entries[1].Resolved)
	assert.Equal(t, models.OutcomeUnknown, report.Entries[2].Resolved)

	assert.Equal(t, models.LedgerSummary{Total: 3, Resolved: 2, Correct: 1, HitRate: 0.5}, report.Summary)
}
