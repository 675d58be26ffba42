package models

// Requests for dashboard HTTP endpoints.

type FeaturesRequest struct {
	From     string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Modeling bool   `query:"modeling" json:"modeling"`
	Limit    int    `query:"limit" json:"limit" default:"5000" validate:"gte=1,lte=20000"`
}

type LedgerRequest struct {
	Limit int `query:"limit" json:"limit" default:"365" validate:"gte=1,lte=10000"`
}

type RefreshRequest struct {
	Invalidate bool `query:"invalidate" json:"invalidate"`
}

// FeatureRowResponse is the wire form of a FeatureRow. Undefined derived
// values are null.
type FeatureRowResponse struct {
	Date             string   `json:"date"`
	Open             float64  `json:"open"`
	High             float64  `json:"high"`
	Low              float64  `json:"low"`
	Close            float64  `json:"close"`
	Volume           float64  `json:"volume"`
	FGIValue         int      `json:"fgi_value"`
	FGISentiment     string   `json:"fgi_sentiment"`
	DailyReturn      *float64 `json:"daily_return"`
	Volatility7d     *float64 `json:"volatility_7d"`
	FGIValueLag1     *int64   `json:"fgi_value_lag1"`
	FGISentimentLag1 *string  `json:"fgi_sentiment_lag1"`
}

func NewFeatureRowResponse(r FeatureRow) FeatureRowResponse {
	out := FeatureRowResponse{
		Date:         r.Date.Format("2006-01-02"),
		Open:         r.Open,
		High:         r.High,
		Low:          r.Low,
		Close:        r.Close,
		Volume:       r.Volume,
		FGIValue:     r.FGIValue,
		FGISentiment: string(r.FGISentiment),
	}
	if r.DailyReturn.Valid {
		v := r.DailyReturn.Float64
		out.DailyReturn = &v
	}
	if r.Volatility7d.Valid {
		v := r.Volatility7d.Float64
		out.Volatility7d = &v
	}
	if r.FGIValueLag1.Valid {
		v := r.FGIValueLag1.Int64
		out.FGIValueLag1 = &v
	}
	if r.FGISentimentLag1.Valid() {
		v := string(r.FGISentimentLag1)
		out.FGISentimentLag1 = &v
	}
	return out
}

type FeaturesResponse struct {
	Rows       []FeatureRowResponse `json:"rows"`
	Window     int                  `json:"window"`
	ReturnUnit string               `json:"return_unit"`
}

type RefreshResponse struct {
	Changed     bool   `json:"changed"`
	Fingerprint string `json:"fingerprint"`
}
