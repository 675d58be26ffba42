package classifier

import (
	"fmt"

	"SentiDash/internal/domain/models"
)

// Feature names accepted in a FeatureSet.
const (
	FeatureSentiment     = "fgi_sentiment"
	FeatureSentimentLag1 = "fgi_sentiment_lag1"
	FeatureFGIValue      = "fgi_value"
	FeatureFGIValueLag1  = "fgi_value_lag1"
	FeatureDailyReturn   = "daily_return"
	FeatureVolatility    = "volatility_7d"
)

// FeatureSet is the ordered list of model inputs.
type FeatureSet []string

// DefaultFeatureSet is sentiment category, daily return and rolling volatility.
var DefaultFeatureSet = FeatureSet{FeatureSentiment, FeatureDailyReturn, FeatureVolatility}

type extractor func(models.FeatureRow) (float64, bool)

var extractors = map[string]extractor{
	FeatureSentiment: func(r models.FeatureRow) (float64, bool) {
		return EncodeSentiment(r.FGISentiment)
	},
	FeatureSentimentLag1: func(r models.FeatureRow) (float64, bool) {
		return EncodeSentiment(r.FGISentimentLag1)
	},
	FeatureFGIValue: func(r models.FeatureRow) (float64, bool) {
		return float64(r.FGIValue), true
	},
	FeatureFGIValueLag1: func(r models.FeatureRow) (float64, bool) {
		return float64(r.FGIValueLag1.Int64), r.FGIValueLag1.Valid
	},
	FeatureDailyReturn: func(r models.FeatureRow) (float64, bool) {
		return r.DailyReturn.Float64, r.DailyReturn.Valid
	},
	FeatureVolatility: func(r models.FeatureRow) (float64, bool) {
		return r.Volatility7d.Float64, r.Volatility7d.Valid
	},
}

// KnownFeatures lists every accepted feature name.
func KnownFeatures() []string {
	return []string{FeatureSentiment, FeatureSentimentLag1, FeatureFGIValue, FeatureFGIValueLag1, FeatureDailyReturn, FeatureVolatility}
}

// Validate rejects empty sets, unknown names and duplicates.
func (fs FeatureSet) Validate() error {
	if len(fs) == 0 {
		return fmt.Errorf("feature set is empty")
	}
	seen := make(map[string]struct{}, len(fs))
	for _, name := range fs {
		if _, ok := extractors[name]; !ok {
			return fmt.Errorf("unknown feature %q", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// EncodeSentiment is the stable ordinal encoding shared by training and prediction.
func EncodeSentiment(s models.Sentiment) (float64, bool) {
	o := s.Ordinal()
	return float64(o), o >= 0
}

// Vectorize extracts the feature set from a row in order.
func Vectorize(row models.FeatureRow, fs FeatureSet) ([]float64, error) {
	x := make([]float64, len(fs))
	for i, name := range fs {
		ext, ok := extractors[name]
		if !ok {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
		v, ok := ext(row)
		if !ok {
			return nil, &models.FeatureMissingError{Feature: name, Date: row.Date}
		}
		x[i] = v
	}
	return x, nil
}
