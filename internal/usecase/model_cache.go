package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"SentiDash/internal/domain/models"
	"SentiDash/internal/services/classifier"
	"SentiDash/internal/services/labels"
	"SentiDash/pkg/cache"
	applogger "SentiDash/pkg/logger"
)

// TrainConfig is everything besides the data that decides a fitted model.
type TrainConfig struct {
	Features       []string
	MinRows        int
	TestFraction   float64
	Regularization float64
	MaxIterations  int
}

// DefaultTrainConfig mirrors the classifier defaults.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Features:       classifier.DefaultFeatureSet,
		MinRows:        classifier.DefaultMinRows,
		TestFraction:   classifier.DefaultTestFraction,
		Regularization: classifier.DefaultRegularization,
		MaxIterations:  classifier.DefaultMaxIterations,
	}
}

// Hash identifies the configuration inside cache keys.
func (c TrainConfig) Hash() string {
	return cache.HashKey(fmt.Sprintf("%s|%d|%g|%g|%d",
		strings.Join(c.Features, ","), c.MinRows, c.TestFraction, c.Regularization, c.MaxIterations))
}

func (c TrainConfig) options(fingerprint string) []classifier.Option {
	return []classifier.Option{
		classifier.WithFeatureSet(c.Features),
		classifier.WithMinRows(c.MinRows),
		classifier.WithTestFraction(c.TestFraction),
		classifier.WithRegularization(c.Regularization),
		classifier.WithMaxIterations(c.MaxIterations),
		classifier.WithFingerprint(fingerprint),
	}
}

// ModelCache trains at most once per data fingerprint and configuration.
type ModelCache struct {
	cache cache.Service
	cfg   TrainConfig
	ttl   time.Duration
	l     *applogger.Logger

	mu sync.Mutex
}

func NewModelCache(c cache.Service, cfg TrainConfig, ttl time.Duration, l *applogger.Logger) *ModelCache {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ModelCache{cache: c, cfg: cfg, ttl: ttl, l: l}
}

// Key is model:<fingerprint>:<config hash>.
func (mc *ModelCache) Key(fingerprint string) string {
	return cache.GenerateKeyWithParams("model", fingerprint, mc.cfg.Hash())
}

// Config returns the training configuration.
func (mc *ModelCache) Config() TrainConfig { return mc.cfg }

// Get returns the model for snap, training and storing it on a miss. The
// second result reports a cache hit.
func (mc *ModelCache) Get(ctx context.Context, snap *Snapshot) (*classifier.Model, bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := mc.Key(snap.Fingerprint)
	var m classifier.Model
	err := mc.cache.Get(ctx, key, &m)
	switch {
	case err == nil && m.Fingerprint == key:
		return &m, true, nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		mc.l.Warn("model cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	model, err := classifier.Train(labeled(snap), mc.cfg.options(key)...)
	if err != nil {
		return nil, false, err
	}
	if err := mc.cache.Set(ctx, key, model, mc.ttl); err != nil {
		mc.l.Warn("model cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return model, false, nil
}

// Purge drops every cached model.
func (mc *ModelCache) Purge(ctx context.Context) error {
	return mc.cache.DeleteByPattern(ctx, cache.BuildPattern("model:"))
}

func labeled(snap *Snapshot) []models.LabeledRow {
	return labels.WithLabels(snap.Table.Rows)
}
