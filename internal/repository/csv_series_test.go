package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentiDash/internal/domain/models"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestParsePrices(t *testing.T) {
	got, err := ParsePrices(strings.NewReader("Date,Open,High,Low,Close,Volume\n2024-01-02,1,2,0.5,1.5,100\n2024-01-01T00:00:00Z,,,,1.25,\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got[0].Date)
	assert.Equal(t, 1.5, got[0].Close)
	assert.Equal(t, 100.0, got[0].Volume)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got[1].Date)
	assert.Equal(t, 1.25, got[1].Close)
}

func TestParsePricesErrors(t *testing.T) {
	_, err := ParsePrices(strings.NewReader("date,open\n2024-01-01,1\n"))
	assert.ErrorContains(t, err, "close")

	_, err = ParsePrices(strings.NewReader("date,close\nyesterday,1\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ParsePrices(strings.NewReader("date,close\n2024-01-01,abc\n"))
	assert.ErrorContains(t, err, "invalid close")

	_, err = ParsePrices(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseSentiment(t *testing.T) {
	got, err := ParseSentiment(strings.NewReader("date,fgi_value,fgi_sentiment\n2024-01-01,25,extreme fear\n2024-01-02,55,Greed\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.SentimentExtremeFear, got[0].Sentiment)
	assert.Equal(t, 55, got[1].Value)
}

func TestParseSentimentRejectsUnknownLabel(t *testing.T) {
	_, err := ParseSentiment(strings.NewReader("date,fgi_value,fgi_sentiment\n2024-01-01,25,Panic\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ParseSentiment(strings.NewReader("date,fgi_value,fgi_sentiment\n2024-01-01,101,Greed\n"))
	assert.Error(t, err)
}

func TestCSVSeriesRoundTripAndFingerprint(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSeries(filepath.Join(dir, "prices.csv"), filepath.Join(dir, "sentiment.csv"))
	ctx := context.Background()
	d := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.WritePrices(ctx, []models.PricePoint{{Date: d, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 9}}))
	require.NoError(t, s.WriteSentiment(ctx, []models.SentimentPoint{{Date: d, Value: 40, Sentiment: models.SentimentFear}}))

	first, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, first.Prices, 1)
	assert.Len(t, first.Sentiment, 1)
	assert.Equal(t, models.SentimentFear, first.Sentiment[0].Sentiment)

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, again.Fingerprint)

	require.NoError(t, s.WriteSentiment(ctx, []models.SentimentPoint{{Date: d, Value: 41, Sentiment: models.SentimentFear}}))
	changed, err := s.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, changed.Fingerprint)
}

func TestCSVSeriesMissingFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "prices.csv", "date,close\n2024-01-01,1\n")
	_, err := NewCSVSeries(p, filepath.Join(dir, "none.csv")).Load(context.Background())
	assert.ErrorContains(t, err, "read sentiment")
}
