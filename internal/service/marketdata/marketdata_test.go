package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentiDash/internal/domain/models"
)

var fastOpts = Options{Timeout: time.Second, Attempts: 3, Backoff: time.Millisecond}

func TestFearGreedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fng/", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Fear and Greed Index","data":[
			{"value":"72","value_classification":"Greed","timestamp":"1704153600"},
			{"value":"20","value_classification":"Extreme Fear","timestamp":"1704067200"}
		],"metadata":{"error":null}}`))
	}))
	defer srv.Close()

	got, err := NewFearGreedClient(srv.URL, fastOpts, nil).Fetch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got[0].Date)
	assert.Equal(t, models.SentimentExtremeFear, got[0].Sentiment)
	assert.Equal(t, 20, got[0].Value)
	assert.Equal(t, models.SentimentGreed, got[1].Sentiment)
}

func TestFearGreedRejectsUnknownLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"value":"50","value_classification":"Meh","timestamp":"1704067200"}],"metadata":{}}`))
	}))
	defer srv.Close()

	_, err := NewFearGreedClient(srv.URL, fastOpts, nil).Fetch(context.Background(), 1)
	assert.Error(t, err)
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"value":"50","value_classification":"Neutral","timestamp":"1704067200"}],"metadata":{}}`))
	}))
	defer srv.Close()

	got, err := NewFearGreedClient(srv.URL, fastOpts, nil).Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRetryGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewFearGreedClient(srv.URL, fastOpts, nil).Fetch(context.Background(), 1)
	assert.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestPriceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/BTC-USD", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1704067200,1704153600,1704240000,1704240060],
			"indicators":{"quote":[{
				"open":[100,101,null,103],
				"high":[110,111,null,113],
				"low":[90,91,null,93],
				"close":[105,106,null,108],
				"volume":[1,2,null,4]
			}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := NewPriceClient(srv.URL, "", fastOpts, nil).Fetch(context.Background(), from, from.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 105.0, got[0].Close)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), got[2].Date)
	assert.Equal(t, 108.0, got[2].Close)
}

func TestPriceFetchChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	_, err := NewPriceClient(srv.URL, "NOPE", fastOpts, nil).Fetch(context.Background(), time.Now().AddDate(0, 0, -5), time.Time{})
	assert.ErrorContains(t, err, "No data found")
}
