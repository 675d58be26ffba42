package service

import (
	"context"

	"SentiDash/internal/domain/models"
)

// Notifier receives prediction events after a pipeline run. Failures are
// reported to the caller, which logs them without failing the run.
type Notifier interface {
	Notify(ctx context.Context, event *models.PredictionEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event *models.PredictionEvent) error

func (f NotifierFunc) Notify(ctx context.Context, event *models.PredictionEvent) error {
	return f(ctx, event)
}
