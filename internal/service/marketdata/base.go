package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"SentiDash/internal/service/ratelimit"
	xhttp "SentiDash/pkg/http"
	applogger "SentiDash/pkg/logger"
)

// Options tune the shared upstream client.
type Options struct {
	Timeout   time.Duration
	Attempts  int
	Backoff   time.Duration
	RPS       float64
	Burst     int
	UserAgent string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 200 * time.Millisecond
	}
	if o.UserAgent == "" {
		o.UserAgent = "sentidash/1.0"
	}
	return o
}

// httpBase centralizes client construction and JSON GET handling with
// rate limiting, a circuit breaker and bounded retry.
type httpBase struct {
	name     string
	baseURL  string
	client   *xhttp.Client
	limiter  *ratelimit.Limiter
	breaker  *gobreaker.CircuitBreaker
	attempts int
	backoff  time.Duration
	l        *applogger.Logger
}

func newHTTPBase(name, baseURL string, opts Options, l *applogger.Logger) *httpBase {
	opts = opts.withDefaults()
	st := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &httpBase{
		name:     name,
		baseURL:  baseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(opts.Timeout), xhttp.WithUserAgent(opts.UserAgent)),
		limiter:  ratelimit.New(opts.RPS, opts.Burst),
		breaker:  gobreaker.NewCircuitBreaker(st),
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		l:        l,
	}
}

// getJSON issues one GET through the limiter and breaker.
func (b *httpBase) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	if err := b.limiter.Wait(ctx, b.name); err != nil {
		return err
	}
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         b.baseURL + path,
			Headers:     map[string]string{"Accept": "application/json"},
			QueryParams: query,
		}, dest)
	})
	if err != nil {
		return fmt.Errorf("%s get %s: %w", b.name, path, err)
	}
	return nil
}

// getJSONWithRetry retries transient failures with linear backoff. An open
// breaker is not retried.
func (b *httpBase) getJSONWithRetry(ctx context.Context, path string, query url.Values, dest interface{}) error {
	var err error
	for i := 1; i <= b.attempts; i++ {
		err = b.getJSON(ctx, path, query, dest)
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || ctx.Err() != nil {
			return err
		}
		b.l.Warn("upstream request failed",
			applogger.String("source", b.name),
			applogger.Int("attempt", i),
			applogger.Error(err),
		)
		if i == b.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * b.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
