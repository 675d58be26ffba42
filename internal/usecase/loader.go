package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SentiDash/internal/domain/models"
	drepo "SentiDash/internal/domain/repository"
	"SentiDash/internal/services/features"
	applogger "SentiDash/pkg/logger"
)

// ErrNotLoaded is returned by Snapshot before the first successful load.
var ErrNotLoaded = errors.New("loader: no snapshot loaded")

// Snapshot is one consistent view of the inputs and the table built from them.
type Snapshot struct {
	Fingerprint string
	Prices      []models.PricePoint
	Sentiment   []models.SentimentPoint
	Table       *models.FeatureTable
	LoadedAt    time.Time
}

// Loader owns the current snapshot. It reloads only when asked to.
type Loader struct {
	src    drepo.SeriesSource
	window int
	l      *applogger.Logger

	mu   sync.RWMutex
	snap *Snapshot
}

func NewLoader(src drepo.SeriesSource, window int, l *applogger.Logger) *Loader {
	if window <= 0 {
		window = features.DefaultVolatilityWindow
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Loader{src: src, window: window, l: l}
}

// Init performs the first load.
func (ld *Loader) Init(ctx context.Context) error {
	_, err := ld.Refresh(ctx)
	return err
}

// Refresh re-reads the sources and rebuilds the table when their
// fingerprint changed. It reports whether the snapshot was replaced.
func (ld *Loader) Refresh(ctx context.Context) (bool, error) {
	series, err := ld.src.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loader: %w", err)
	}

	ld.mu.RLock()
	same := ld.snap != nil && ld.snap.Fingerprint == series.Fingerprint
	ld.mu.RUnlock()
	if same {
		return false, nil
	}

	table, err := features.BuildFeatures(series.Prices, series.Sentiment, features.WithVolatilityWindow(ld.window))
	if err != nil {
		return false, fmt.Errorf("loader: %w", err)
	}

	snap := &Snapshot{
		Fingerprint: series.Fingerprint,
		Prices:      series.Prices,
		Sentiment:   series.Sentiment,
		Table:       table,
		LoadedAt:    time.Now().UTC(),
	}

	ld.mu.Lock()
	ld.snap = snap
	ld.mu.Unlock()

	ld.l.Info("inputs loaded",
		applogger.String("fingerprint", shortFingerprint(snap.Fingerprint)),
		applogger.Int("prices", len(snap.Prices)),
		applogger.Int("sentiment", len(snap.Sentiment)),
		applogger.Int("rows", len(table.Rows)),
	)
	return true, nil
}

// Invalidate drops the snapshot so the next Snapshot call reloads.
func (ld *Loader) Invalidate() {
	ld.mu.Lock()
	ld.snap = nil
	ld.mu.Unlock()
}

// Snapshot returns the current snapshot, loading it first when there is none.
func (ld *Loader) Snapshot(ctx context.Context) (*Snapshot, error) {
	ld.mu.RLock()
	snap := ld.snap
	ld.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	if _, err := ld.Refresh(ctx); err != nil {
		return nil, err
	}

	ld.mu.RLock()
	defer ld.mu.RUnlock()
	if ld.snap == nil {
		return nil, ErrNotLoaded
	}
	return ld.snap, nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
