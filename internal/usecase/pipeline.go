package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"SentiDash/internal/domain/models"
	drepo "SentiDash/internal/domain/repository"
	"SentiDash/internal/domain/service"
	"SentiDash/internal/services/insights"
	"SentiDash/internal/services/ledger"
	applogger "SentiDash/pkg/logger"
)

// RunResult describes one recorded pipeline run.
type RunResult struct {
	RunID         string                `json:"run_id"`
	Fingerprint   string                `json:"fingerprint"`
	Prediction    models.Prediction     `json:"prediction"`
	Entry         models.LedgerEntry    `json:"entry"`
	Evaluation    models.EvaluationKind `json:"evaluation"`
	TrainAccuracy float64               `json:"train_accuracy"`
	TestAccuracy  float64               `json:"test_accuracy"`
	CacheHit      bool                  `json:"cache_hit"`
	Duration      time.Duration         `json:"duration"`
}

// ModelReport is the display view of the current model.
type ModelReport struct {
	Evaluation     models.EvaluationKind `json:"evaluation"`
	Accuracy       float64               `json:"accuracy"`
	TrainAccuracy  float64               `json:"train_accuracy"`
	TestAccuracy   *float64              `json:"test_accuracy"`
	TrainRows      int                   `json:"train_rows"`
	TestRows       int                   `json:"test_rows"`
	Features       []string              `json:"features"`
	Coefficients   []models.Coefficient  `json:"coefficients"`
	TrainedThrough time.Time             `json:"trained_through"`
	Fingerprint    string                `json:"fingerprint"`
	Status         string                `json:"status"`
}

// FeatureQuery selects rows of the feature table.
type FeatureQuery struct {
	From     time.Time
	To       time.Time
	Modeling bool
	Limit    int
}

type nopMetrics struct{}

func (nopMetrics) RecordRun(string)                           {}
func (nopMetrics) RecordStage(string, float64)                {}
func (nopMetrics) RecordError(string)                         {}
func (nopMetrics) RecordAccuracy(string, float64)             {}
func (nopMetrics) RecordPrediction(models.Direction, float64) {}

// Pipeline wires loading, training, recording and notification. Runs are
// serialised.
type Pipeline struct {
	loader    *Loader
	models    *ModelCache
	recorder  *ledger.Recorder
	store     drepo.LedgerStore
	notifiers []service.Notifier
	metrics   drepo.Metrics
	l         *applogger.Logger

	runMu sync.Mutex
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithNotifiers adds receivers of prediction events.
func WithNotifiers(n ...service.Notifier) PipelineOption {
	return func(p *Pipeline) {
		for _, x := range n {
			if x != nil {
				p.notifiers = append(p.notifiers, x)
			}
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m drepo.Metrics) PipelineOption {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.l = l
		}
	}
}

func NewPipeline(loader *Loader, mc *ModelCache, recorder *ledger.Recorder, store drepo.LedgerStore, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		loader:   loader,
		models:   mc,
		recorder: recorder,
		store:    store,
		metrics:  nopMetrics{},
		l:        applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddNotifier registers a receiver after construction.
func (p *Pipeline) AddNotifier(n service.Notifier) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	p.notifiers = append(p.notifiers, n)
}

// Run trains (or reuses) the model for the current snapshot, predicts from
// the latest row and records the prediction.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	l := p.l.With(applogger.String("run_id", runID))

	res, err := p.run(ctx, runID, l)
	if err != nil {
		p.metrics.RecordRun("error")
		p.metrics.RecordError(ErrorKind(err))
		l.Error("pipeline run failed", applogger.Error(err))
		return nil, err
	}
	res.Duration = time.Since(start)
	p.metrics.RecordRun("ok")
	l.Info("pipeline run recorded",
		applogger.String("as_of", res.Entry.RunDate.Format("2006-01-02")),
		applogger.String("direction", res.Prediction.Label),
		applogger.Float64("probability_up", res.Prediction.Probability),
		applogger.String("is_correct", string(res.Entry.IsCorrect)),
		applogger.Bool("cache_hit", res.CacheHit),
		applogger.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, l *applogger.Logger) (*RunResult, error) {
	snap, err := p.timed("load", func() (*Snapshot, error) { return p.loader.Snapshot(ctx) })
	if err != nil {
		return nil, err
	}

	t := time.Now()
	model, hit, err := p.models.Get(ctx, snap)
	p.metrics.RecordStage("train", time.Since(t).Seconds())
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	p.recordAccuracy(model.Evaluation, model.TrainAccuracy, model.TestAccuracy)

	pred, entry, err := ledger.Prepare(model, snap.Table, snap.Prices)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	p.metrics.RecordPrediction(pred.Direction, pred.Probability)

	t = time.Now()
	err = p.recorder.Commit(ctx, entry)
	p.metrics.RecordStage("record", time.Since(t).Seconds())
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	res := &RunResult{
		RunID:         runID,
		Fingerprint:   snap.Fingerprint,
		Prediction:    pred,
		Entry:         entry,
		Evaluation:    model.Evaluation,
		TrainAccuracy: model.TrainAccuracy,
		TestAccuracy:  model.TestAccuracy,
		CacheHit:      hit,
	}
	p.notify(ctx, &models.PredictionEvent{
		RunID:       runID,
		Fingerprint: snap.Fingerprint,
		Prediction:  pred,
		Entry:       entry,
		Recorded:    true,
		EmittedAt:   time.Now().UTC(),
	}, l)
	return res, nil
}

func (p *Pipeline) timed(stage string, fn func() (*Snapshot, error)) (*Snapshot, error) {
	t := time.Now()
	snap, err := fn()
	p.metrics.RecordStage(stage, time.Since(t).Seconds())
	return snap, err
}

func (p *Pipeline) recordAccuracy(kind models.EvaluationKind, train, test float64) {
	p.metrics.RecordAccuracy("train", train)
	if kind == models.EvaluationHoldout {
		p.metrics.RecordAccuracy("holdout", test)
	}
}

func (p *Pipeline) notify(ctx context.Context, ev *models.PredictionEvent, l *applogger.Logger) {
	for _, n := range p.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			p.metrics.RecordError("notify")
			l.Warn("prediction notification failed", applogger.Error(err))
		}
	}
}

// Snapshot returns the loader's current snapshot.
func (p *Pipeline) Snapshot(ctx context.Context) (*Snapshot, error) {
	return p.loader.Snapshot(ctx)
}

// Features returns rows of the current table, optionally only the rows
// usable for modeling, bounded by date and limited to the most recent.
func (p *Pipeline) Features(ctx context.Context, q FeatureQuery) ([]models.FeatureRow, error) {
	snap, err := p.loader.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	table := snap.Table
	if q.Modeling {
		table = &models.FeatureTable{Rows: table.Modeling(), Window: table.Window}
	}
	rows := table.Between(q.From, q.To)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[len(rows)-q.Limit:]
	}
	return rows, nil
}

// Model reports accuracy and coefficients of the model for the current data.
func (p *Pipeline) Model(ctx context.Context) (*ModelReport, error) {
	snap, err := p.loader.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	m, _, err := p.models.Get(ctx, snap)
	if err != nil {
		return nil, err
	}
	rep := &ModelReport{
		Evaluation:     m.Evaluation,
		Accuracy:       m.Accuracy(),
		TrainAccuracy:  m.TrainAccuracy,
		TrainRows:      m.TrainRows,
		TestRows:       m.TestRows,
		Features:       append([]string(nil), m.Features...),
		Coefficients:   m.Coefficients(),
		TrainedThrough: m.TrainedThrough,
		Fingerprint:    m.Fingerprint,
		Status:         m.Status,
	}
	if m.Evaluation == models.EvaluationHoldout {
		test := m.TestAccuracy
		rep.TestAccuracy = &test
	}
	return rep, nil
}

// LatestPrediction predicts from the latest row without recording it.
func (p *Pipeline) LatestPrediction(ctx context.Context) (models.Prediction, error) {
	snap, err := p.loader.Snapshot(ctx)
	if err != nil {
		return models.Prediction{}, err
	}
	m, _, err := p.models.Get(ctx, snap)
	if err != nil {
		return models.Prediction{}, err
	}
	pred, _, err := ledger.Prepare(m, snap.Table, snap.Prices)
	return pred, err
}

// History returns the ledger resolved against the current prices.
func (p *Pipeline) History(ctx context.Context, limit int) (models.LedgerReport, error) {
	snap, err := p.loader.Snapshot(ctx)
	if err != nil {
		return models.LedgerReport{}, err
	}
	rep, err := ledger.History(ctx, p.store, snap.Prices)
	if err != nil {
		return models.LedgerReport{}, err
	}
	if limit > 0 && len(rep.Entries) > limit {
		rep.Entries = rep.Entries[len(rep.Entries)-limit:]
	}
	return rep, nil
}

// Insights summarises returns by prior-day sentiment and correlations.
func (p *Pipeline) Insights(ctx context.Context) (insights.Report, error) {
	snap, err := p.loader.Snapshot(ctx)
	if err != nil {
		return insights.Report{}, err
	}
	return insights.Build(snap.Table.Modeling()), nil
}

// Refresh reloads the inputs. With invalidate the snapshot and cached
// models are dropped first.
func (p *Pipeline) Refresh(ctx context.Context, invalidate bool) (bool, error) {
	if invalidate {
		p.loader.Invalidate()
		if err := p.models.Purge(ctx); err != nil {
			p.l.Warn("model cache purge failed", applogger.Error(err))
		}
	}
	changed, err := p.loader.Refresh(ctx)
	if err != nil {
		p.metrics.RecordError(ErrorKind(err))
		return false, err
	}
	return changed, nil
}

// ErrorKind names the domain error class of err for metrics and responses.
func ErrorKind(err error) string {
	var (
		alignment  *models.DataAlignmentError
		short      *models.InsufficientDataError
		degenerate *models.DegenerateLabelError
		missing    *models.FeatureMissingError
		schema     *models.LedgerSchemaError
		duplicate  *models.DuplicateEntryError
	)
	switch {
	case errors.As(err, &alignment):
		return "data_alignment"
	case errors.As(err, &short):
		return "insufficient_data"
	case errors.As(err, &degenerate):
		return "degenerate_label"
	case errors.As(err, &missing):
		return "feature_missing"
	case errors.As(err, &schema):
		return "ledger_schema"
	case errors.As(err, &duplicate):
		return "duplicate_entry"
	case errors.Is(err, ledger.ErrLocked):
		return "locked"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
