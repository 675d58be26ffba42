package repository

import (
	"context"

	"SentiDash/internal/domain/models"
)

// SeriesSource reads the price and sentiment inputs together.
type SeriesSource interface {
	Load(ctx context.Context) (*models.Series, error)
}

// SeriesSink persists freshly acquired inputs.
type SeriesSink interface {
	WritePrices(ctx context.Context, prices []models.PricePoint) error
	WriteSentiment(ctx context.Context, points []models.SentimentPoint) error
}

// LedgerStore is the append-only prediction ledger. Append returns
// *models.DuplicateEntryError when the run date is already stored and
// ReadAll returns *models.LedgerSchemaError for an unreadable layout.
type LedgerStore interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, entry models.LedgerEntry) error
	ReadAll(ctx context.Context) ([]models.LedgerEntry, error)
	Close() error
}

type Publisher interface {
	Publish(ctx context.Context, event *models.PredictionEvent) error
	Close() error
}

type Metrics interface {
	RecordRun(status string)
	RecordStage(stage string, seconds float64)
	RecordError(kind string)
	RecordAccuracy(kind string, value float64)
	RecordPrediction(direction models.Direction, probability float64)
}
