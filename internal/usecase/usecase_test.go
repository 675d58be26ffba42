package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentiDash/internal/domain/models"
	"SentiDash/internal/domain/service"
	"SentiDash/internal/services/ledger"
	"SentiDash/pkg/cache"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

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

type fakeSource struct {
	mu     sync.Mutex
	series models.Series
	loads  int
	err    error
}

func newSource(days int, fp string) *fakeSource {
	p, s := series(days)
	return &fakeSource{series: models.Series{Prices: p, Sentiment: s, Fingerprint: fp}}
}

func (f *fakeSource) Load(context.Context) (*models.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	s := f.series
	return &s, nil
}

func (f *fakeSource) set(days int, fp string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, s := series(days)
	f.series = models.Series{Prices: p, Sentiment: s, Fingerprint: fp}
}

type memStore struct {
	mu      sync.Mutex
	entries []models.LedgerEntry
}

func (m *memStore) Init(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) Append(_ context.Context, e models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, old := range m.entries {
		if old.RunDate.Equal(e.RunDate) {
			return &models.DuplicateEntryError{Existing: old}
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) ReadAll(context.Context) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LedgerEntry(nil), m.entries...), nil
}

type countingMetrics struct {
	mu     sync.Mutex
	runs   map[string]int
	errors map[string]int
	stages map[string]int
	preds  int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{runs: map[string]int{}, errors: map[string]int{}, stages: map[string]int{}}
}

func (c *countingMetrics) RecordRun(s string) {
	c.mu.Lock()
	c.runs[s]++
	c.mu.Unlock()
}

func (c *countingMetrics) RecordStage(s string, _ float64) {
	c.mu.Lock()
	c.stages[s]++
	c.mu.Unlock()
}

func (c *countingMetrics) RecordError(k string) {
	c.mu.Lock()
	c.errors[k]++
	c.mu.Unlock()
}

func (c *countingMetrics) RecordAccuracy(string, float64) {}

func (c *countingMetrics) RecordPrediction(models.Direction, float64) {
	c.mu.Lock()
	c.preds++
	c.mu.Unlock()
}

type fixture struct {
	src     *fakeSource
	store   *memStore
	metrics *countingMetrics
	events  []*models.PredictionEvent
	p       *Pipeline
}

func newFixture(t *testing.T, days int) *fixture {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	f := &fixture{src: newSource(days, "fp-1"), store: &memStore{}, metrics: newCountingMetrics()}
	collect := service.NotifierFunc(func(_ context.Context, ev *models.PredictionEvent) error {
		f.events = append(f.events, ev)
		return nil
	})
	f.p = NewPipeline(
		NewLoader(f.src, 7, nil),
		NewModelCache(mem, DefaultTrainConfig(), time.Hour, nil),
		ledger.NewRecorder(f.store),
		f.store,
		WithNotifiers(collect),
		WithMetrics(f.metrics),
	)
	return f
}

func TestLoaderRefreshOnlyOnFingerprintChange(t *testing.T) {
	src := newSource(30, "a")
	ld := NewLoader(src, 7, nil)
	ctx := context.Background()

	require.NoError(t, ld.Init(ctx))
	first, err := ld.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first.Fingerprint)
	assert.Len(t, first.Table.Rows, 30)

	changed, err := ld.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	same, _ := ld.Snapshot(ctx)
	assert.Same(t, first, same)

	src.set(31, "b")
	changed, err = ld.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	next, _ := ld.Snapshot(ctx)
	assert.Equal(t, "b", next.Fingerprint)
	assert.Len(t, next.Table.Rows, 31)
}

func TestLoaderInvalidateForcesReload(t *testing.T) {
	src := newSource(30, "a")
	ld := NewLoader(src, 7, nil)
	ctx := context.Background()

	_, err := ld.Snapshot(ctx)
	require.NoError(t, err)
	_, err = ld.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.loads)

	ld.Invalidate()
	_, err = ld.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.loads)
}

func TestLoaderKeepsSnapshotOnFailedRefresh(t *testing.T) {
	src := newSource(30, "a")
	ld := NewLoader(src, 7, nil)
	ctx := context.Background()
	require.NoError(t, ld.Init(ctx))

	src.err = errors.New("disk gone")
	_, err := ld.Refresh(ctx)
	require.Error(t, err)

	snap, err := ld.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", snap.Fingerprint)
}

func TestModelCacheKeyedByFingerprint(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	mc := NewModelCache(mem, DefaultTrainConfig(), time.Hour, nil)
	ctx := context.Background()

	src := newSource(60, "a")
	ld := NewLoader(src, 7, nil)
	snap, err := ld.Snapshot(ctx)
	require.NoError(t, err)

	m1, hit, err := mc.Get(ctx, snap)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, mc.Key("a"), m1.Fingerprint)

	m2, hit, err := mc.Get(ctx, snap)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, m1.Weights, m2.Weights)

	src.set(61, "b")
	_, err = ld.Refresh(ctx)
	require.NoError(t, err)
	snap, _ = ld.Snapshot(ctx)
	m3, hit, err := mc.Get(ctx, snap)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, mc.Key("b"), m3.Fingerprint)
}

func TestTrainConfigHashDiffers(t *testing.T) {
	a := DefaultTrainConfig()
	b := DefaultTrainConfig()
	b.TestFraction = 0
	assert.Equal(t, a.Hash(), DefaultTrainConfig().Hash())
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestPipelineRunRecordsAndNotifies(t *testing.T) {
	f := newFixture(t, 60)

	res, err := f.p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "fp-1", res.Fingerprint)
	assert.Equal(t, day0.AddDate(0, 0, 59), res.Entry.RunDate)
	assert.Equal(t, day0.AddDate(0, 0, 60), res.Prediction.TargetDate)
	assert.Equal(t, models.OutcomeUnknown, res.Entry.IsCorrect)
	assert.Equal(t, models.EvaluationHoldout, res.Evaluation)
	require.Len(t, f.store.entries, 1)
	require.Len(t, f.events, 1)
	assert.True(t, f.events[0].Recorded)
	assert.Equal(t, res.RunID, f.events[0].RunID)
	assert.Equal(t, 1, f.metrics.runs["ok"])
	assert.Equal(t, 1, f.metrics.preds)
}

func TestPipelineSecondRunIsDuplicate(t *testing.T) {
	f := newFixture(t, 60)
	ctx := context.Background()

	_, err := f.p.Run(ctx)
	require.NoError(t, err)
	_, err = f.p.Run(ctx)

	var dup *models.DuplicateEntryError
	require.ErrorAs(t, err, &dup)
	assert.Len(t, f.store.entries, 1)
	assert.Len(t, f.events, 1)
	assert.Equal(t, 1, f.metrics.errors["duplicate_entry"])
	assert.Equal(t, "duplicate_entry", ErrorKind(err))
}

func TestPipelineConcurrentRunsRecordOnce(t *testing.T) {
	f := newFixture(t, 60)
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.p.Run(context.Background())
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, f.store.entries, 1)
}

func TestPipelineInsufficientData(t *testing.T) {
	f := newFixture(t, 15)

	_, err := f.p.Run(context.Background())

	var short *models.InsufficientDataError
	require.ErrorAs(t, err, &short)
	assert.Empty(t, f.store.entries)
	assert.Empty(t, f.events)
	assert.Equal(t, 1, f.metrics.errors["insufficient_data"])
}

func TestPipelineNotifierFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t, 60)
	f.p.AddNotifier(service.NotifierFunc(func(context.Context, *models.PredictionEvent) error {
		return errors.New("broker down")
	}))

	_, err := f.p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.store.entries, 1)
	assert.Equal(t, 1, f.metrics.errors["notify"])
}

func TestPipelineFeaturesQuery(t *testing.T) {
	f := newFixture(t, 60)
	ctx := context.Background()

	all, err := f.p.Features(ctx, FeatureQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 60)

	modeling, err := f.p.Features(ctx, FeatureQuery{Modeling: true})
	require.NoError(t, err)
	for _, r := range modeling {
		assert.True(t, r.Complete())
	}
	assert.Less(t, len(modeling), len(all))

	last, err := f.p.Features(ctx, FeatureQuery{Limit: 5})
	require.NoError(t, err)
	require.Len(t, last, 5)
	assert.Equal(t, day0.AddDate(0, 0, 59), last[4].Date)

	window, err := f.p.Features(ctx, FeatureQuery{From: day0.AddDate(0, 0, 10), To: day0.AddDate(0, 0, 12)})
	require.NoError(t, err)
	assert.Len(t, window, 3)
}

func TestPipelineModelAndLatestPrediction(t *testing.T) {
	f := newFixture(t, 60)
	ctx := context.Background()

	rep, err := f.p.Model(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationHoldout, rep.Evaluation)
	require.NotNil(t, rep.TestAccuracy)
	assert.Equal(t, *rep.TestAccuracy, rep.Accuracy)
	assert.Len(t, rep.Coefficients, 3)

	pred, err := f.p.LatestPrediction(ctx)
	require.NoError(t, err)
	assert.Equal(t, day0.AddDate(0, 0, 59), pred.AsOf)
	assert.Empty(t, f.store.entries)
}

func TestPipelineHistoryResolves(t *testing.T) {
	f := newFixture(t, 60)
	ctx := context.Background()
	f.store.entries = []models.LedgerEntry{
		{RunDate: day0.AddDate(0, 0, 10), PredictedDirection: models.DirectionUp, IsCorrect: models.OutcomeUnknown},
		{RunDate: day0.AddDate(0, 0, 59), PredictedDirection: models.DirectionDown, IsCorrect: models.OutcomeUnknown},
	}

	rep, err := f.p.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rep.Entries, 2)
	assert.True(t, rep.Entries[0].Resolved.Resolved())
	assert.Equal(t, models.OutcomeUnknown, rep.Entries[1].Resolved)
	assert.Equal(t, 2, rep.Summary.Total)
	assert.Equal(t, 1, rep.Summary.Resolved)

	limited, err := f.p.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited.Entries, 1)
}

func TestPipelineRefresh(t *testing.T) {
	f := newFixture(t, 60)
	ctx := context.Background()

	changed, err := f.p.Refresh(ctx, false)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = f.p.Refresh(ctx, false)
	require.NoError(t, err)
	assert.False(t, changed)
	changed, err = f.p.Refresh(ctx, true)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestPipelineInsights(t *testing.T) {
	f := newFixture(t, 60)
	rep, err := f.p.Insights(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, rep.Sentiment)
	assert.NotEmpty(t, rep.Correlation.Columns)
}

type fakeFGI struct {
	points []models.SentimentPoint
	err    error
	limit  int
}

func (f *fakeFGI) Fetch(_ context.Context, limit int) ([]models.SentimentPoint, error) {
	f.limit = limit
	return f.points, f.err
}

type fakePrices struct {
	points []models.PricePoint
	err    error
	from   time.Time
}

func (f *fakePrices) Fetch(_ context.Context, from, _ time.Time) ([]models.PricePoint, error) {
	f.from = from
	return f.points, f.err
}

type memSink struct {
	prices    []models.PricePoint
	sentiment []models.SentimentPoint
}

func (m *memSink) WritePrices(_ context.Context, p []models.PricePoint) error {
	m.prices = p
	return nil
}

func (m *memSink) WriteSentiment(_ context.Context, s []models.SentimentPoint) error {
	m.sentiment = s
	return nil
}

func TestAcquirerFetchAll(t *testing.T) {
	p, s := series(10)
	fgi := &fakeFGI{points: s}
	px := &fakePrices{points: p}
	sink := &memSink{}

	res, err := NewAcquirer(fgi, px, sink, day0, 1000, nil).FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, res.Prices)
	assert.Equal(t, 10, res.Sentiment)
	assert.Equal(t, 1000, fgi.limit)
	assert.Equal(t, day0, px.from)
	assert.Len(t, sink.prices, 10)
	assert.Len(t, sink.sentiment, 10)
}

func TestAcquirerWritesNothingOnFailure(t *testing.T) {
	p, _ := series(10)
	sink := &memSink{}

	_, err := NewAcquirer(&fakeFGI{err: errors.New("503")}, &fakePrices{points: p}, sink, day0, 0, nil).
		FetchAll(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch sentiment")
	assert.Nil(t, sink.prices)
	assert.Nil(t, sink.sentiment)
}
