package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"SentiDash/internal/domain/models"
	applogger "SentiDash/pkg/logger"
	"SentiDash/pkg/util"
)

const (
	DefaultYahooURL = "https://query1.finance.yahoo.com"
	DefaultSymbol   = "BTC-USD"
)

// PriceClient reads daily candles from the Yahoo chart API.
type PriceClient struct {
	base   *httpBase
	symbol string
}

func NewPriceClient(baseURL, symbol string, opts Options, l *applogger.Logger) *PriceClient {
	if baseURL == "" {
		baseURL = DefaultYahooURL
	}
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return &PriceClient{base: newHTTPBase("yahoo", baseURL, opts, l), symbol: symbol}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch returns daily candles with from <= date < to. Days without a close
// are skipped; a zero to means now.
func (c *PriceClient) Fetch(ctx context.Context, from, to time.Time) ([]models.PricePoint, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(util.Day(from).Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	q.Set("interval", "1d")

	var resp chartResponse
	if err := c.base.getJSONWithRetry(ctx, "/v8/finance/chart/"+url.PathEscape(c.symbol), q, &resp); err != nil {
		return nil, err
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo %s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: empty chart for %s", c.symbol)
	}

	res := resp.Chart.Result[0]
	quote := res.Indicators.Quote[0]
	at := func(xs []*float64, i int) float64 {
		if i < len(xs) && xs[i] != nil {
			return *xs[i]
		}
		return 0
	}

	byDay := make(map[time.Time]int, len(res.Timestamp))
	out := make([]models.PricePoint, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		p := models.PricePoint{
			Date:   util.Day(time.Unix(ts, 0)),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  *quote.Close[i],
			Volume: at(quote.Volume, i),
		}
		// the live session can repeat the last day
		if j, ok := byDay[p.Date]; ok {
			out[j] = p
			continue
		}
		byDay[p.Date] = len(out)
		out = append(out, p)
	}
	return out, nil
}
