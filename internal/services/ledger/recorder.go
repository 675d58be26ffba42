package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SentiDash/internal/domain/models"
	"SentiDash/internal/domain/repository"
	"SentiDash/internal/services/classifier"
	"SentiDash/internal/services/labels"
	"SentiDash/pkg/util"
)

// ErrLocked is returned when another writer holds the run date.
var ErrLocked = errors.New("ledger: run date locked by another writer")

const DefaultLockTTL = 30 * time.Second

// Locker is a cross-process mutex keyed by string.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Recorder appends predictions to a LedgerStore.
type Recorder struct {
	store   repository.LedgerStore
	locker  Locker
	lockTTL time.Duration
}

type Option func(*Recorder)

// WithLocker guards every append with a lock on "ledger:<run date>".
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(r *Recorder) {
		r.locker = l
		if ttl > 0 {
			r.lockTTL = ttl
		}
	}
}

func NewRecorder(store repository.LedgerStore, opts ...Option) *Recorder {
	r := &Recorder{store: store, lockTTL: DefaultLockTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prepare predicts from the latest row and builds the entry that would be
// stored. IsCorrect is known only once prices already contain the day after
// the run date.
func Prepare(model *classifier.Model, table *models.FeatureTable, prices []models.PricePoint) (models.Prediction, models.LedgerEntry, error) {
	latest, ok := table.Latest()
	if !ok {
		return models.Prediction{}, models.LedgerEntry{}, fmt.Errorf("prepare: %w", &models.InsufficientDataError{Have: 0, Need: 1})
	}
	pred, err := model.Predict(latest)
	if err != nil {
		return models.Prediction{}, models.LedgerEntry{}, fmt.Errorf("prepare: %w", err)
	}
	entry := models.LedgerEntry{
		RunDate:            pred.AsOf,
		PredictedDirection: pred.Direction,
		IsCorrect:          models.OutcomeUnknown,
		Accuracy:           model.TrainAccuracy,
	}
	if up, ok := labels.Realized(prices, pred.AsOf); ok {
		entry.IsCorrect = models.OutcomeFrom(pred.Direction, up)
	}
	return pred, entry, nil
}

// Commit appends entry. A run date that is already stored yields
// *models.DuplicateEntryError and the stored row is left as is.
func (r *Recorder) Commit(ctx context.Context, entry models.LedgerEntry) error {
	if r.locker != nil {
		key := "ledger:" + util.FormatDate(entry.RunDate)
		ok, err := r.locker.TryLock(ctx, key, r.lockTTL)
		if err != nil {
			return fmt.Errorf("ledger: lock %s: %w", key, err)
		}
		if !ok {
			return ErrLocked
		}
		defer func() { _ = r.locker.Unlock(context.WithoutCancel(ctx), key) }()
	}
	if err := r.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("ledger: append: %w", err)
	}
	return nil
}

// Record predicts from the latest row and appends the entry.
func (r *Recorder) Record(ctx context.Context, model *classifier.Model, table *models.FeatureTable, prices []models.PricePoint) (models.LedgerEntry, error) {
	_, entry, err := Prepare(model, table, prices)
	if err != nil {
		return models.LedgerEntry{}, err
	}
	if err := r.Commit(ctx, entry); err != nil {
		return models.LedgerEntry{}, err
	}
	return entry, nil
}
