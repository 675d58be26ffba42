package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SentiDash/internal/domain/models"
	drepo "SentiDash/internal/domain/repository"
	applogger "SentiDash/pkg/logger"
)

type SentimentFetcher interface {
	Fetch(ctx context.Context, limit int) ([]models.SentimentPoint, error)
}

type PriceFetcher interface {
	Fetch(ctx context.Context, from, to time.Time) ([]models.PricePoint, error)
}

// AcquireResult counts what was written.
type AcquireResult struct {
	Prices    int       `json:"prices"`
	Sentiment int       `json:"sentiment"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

// Acquirer downloads both inputs and persists them through a sink.
type Acquirer struct {
	fgi    SentimentFetcher
	prices PriceFetcher
	sink   drepo.SeriesSink
	start  time.Time
	limit  int
	l      *applogger.Logger
	now    func() time.Time
}

func NewAcquirer(fgi SentimentFetcher, prices PriceFetcher, sink drepo.SeriesSink, start time.Time, limit int, l *applogger.Logger) *Acquirer {
	if l == nil {
		l = applogger.NewNop()
	}
	return &Acquirer{fgi: fgi, prices: prices, sink: sink, start: start, limit: limit, l: l, now: time.Now}
}

// FetchAll downloads both series concurrently and writes them only when
// both downloads succeeded.
func (a *Acquirer) FetchAll(ctx context.Context) (*AcquireResult, error) {
	to := a.now().UTC()

	var (
		wg         sync.WaitGroup
		sent       []models.SentimentPoint
		prices     []models.PricePoint
		sErr, pErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if sent, sErr = a.fgi.Fetch(ctx, a.limit); sErr != nil {
			sErr = fmt.Errorf("fetch sentiment: %w", sErr)
		}
	}()
	go func() {
		defer wg.Done()
		if prices, pErr = a.prices.Fetch(ctx, a.start, to); pErr != nil {
			pErr = fmt.Errorf("fetch prices: %w", pErr)
		}
	}()
	wg.Wait()
	if err := errors.Join(sErr, pErr); err != nil {
		return nil, err
	}

	if err := a.sink.WritePrices(ctx, prices); err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}
	if err := a.sink.WriteSentiment(ctx, sent); err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}

	a.l.Info("inputs acquired",
		applogger.Int("prices", len(prices)),
		applogger.Int("sentiment", len(sent)),
		applogger.Time("from", a.start),
		applogger.Time("to", to),
	)
	return &AcquireResult{Prices: len(prices), Sentiment: len(sent), From: a.start, To: to}, nil
}
