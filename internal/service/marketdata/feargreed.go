package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"SentiDash/internal/domain/models"
	applogger "SentiDash/pkg/logger"
	"SentiDash/pkg/util"
)

const DefaultFearGreedURL = "https://api.alternative.me"

// FearGreedClient reads the alternative.me Fear & Greed Index.
type FearGreedClient struct {
	base *httpBase
}

func NewFearGreedClient(baseURL string, opts Options, l *applogger.Logger) *FearGreedClient {
	if baseURL == "" {
		baseURL = DefaultFearGreedURL
	}
	return &FearGreedClient{base: newHTTPBase("alternative.me", baseURL, opts, l)}
}

type fngResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
	Metadata struct {
		Error *string `json:"error"`
	} `json:"metadata"`
}

// Fetch returns up to limit daily readings in ascending date order. A
// limit of 0 asks for the full history.
func (c *FearGreedClient) Fetch(ctx context.Context, limit int) ([]models.SentimentPoint, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("format", "json")

	var resp fngResponse
	if err := c.base.getJSONWithRetry(ctx, "/fng/", q, &resp); err != nil {
		return nil, err
	}
	if resp.Metadata.Error != nil && *resp.Metadata.Error != "" {
		return nil, fmt.Errorf("alternative.me: %s", *resp.Metadata.Error)
	}

	out := make([]models.SentimentPoint, 0, len(resp.Data))
	for _, d := range resp.Data {
		ts, err := strconv.ParseInt(d.Timestamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("alternative.me: invalid timestamp %q", d.Timestamp)
		}
		v, err := strconv.Atoi(d.Value)
		if err != nil {
			return nil, fmt.Errorf("alternative.me: invalid value %q", d.Value)
		}
		label, err := models.ParseSentiment(d.ValueClassification)
		if err != nil {
			return nil, fmt.Errorf("alternative.me: %w", err)
		}
		p := models.SentimentPoint{Date: util.Day(time.Unix(ts, 0)), Value: v, Sentiment: label}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("alternative.me %s: %w", util.FormatDate(p.Date), err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
