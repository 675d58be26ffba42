package models

import (
	"fmt"
	"strings"
	"time"
)

// PricePoint is one daily OHLCV bar. Date is midnight UTC of the trading day.
type PricePoint struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Sentiment is the categorical Fear & Greed classification.
type Sentiment string

const (
	SentimentExtremeFear  Sentiment = "Extreme Fear"
	SentimentFear         Sentiment = "Fear"
	SentimentNeutral      Sentiment = "Neutral"
	SentimentGreed        Sentiment = "Greed"
	SentimentExtremeGreed Sentiment = "Extreme Greed"
)

// Sentiments lists the vocabulary in ordinal order.
var Sentiments = []Sentiment{
	SentimentExtremeFear,
	SentimentFear,
	SentimentNeutral,
	SentimentGreed,
	SentimentExtremeGreed,
}

// ParseSentiment maps a label such as "extreme greed" or "Extreme_Greed"
// onto the fixed vocabulary.
func ParseSentiment(s string) (Sentiment, error) {
	norm := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " "))
	for _, v := range Sentiments {
		if strings.ToLower(string(v)) == norm {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown sentiment %q", s)
}

// Valid reports whether s belongs to the vocabulary. The empty value is
// used for an undefined sentiment and is not valid.
func (s Sentiment) Valid() bool {
	return s.Ordinal() >= 0
}

// Ordinal is the stable integer encoding used by the classifier:
// Extreme Fear=0 through Extreme Greed=4. It returns -1 for unknown values.
func (s Sentiment) Ordinal() int {
	for i, v := range Sentiments {
		if v == s {
			return i
		}
	}
	return -1
}

// SentimentPoint is one daily Fear & Greed reading.
type SentimentPoint struct {
	Date      time.Time
	Value     int
	Sentiment Sentiment
}

// Validate checks the index bounds and the label vocabulary.
func (p SentimentPoint) Validate() error {
	if p.Value < 0 || p.Value > 100 {
		return fmt.Errorf("fgi_value %d out of range 0..100", p.Value)
	}
	if !p.Sentiment.Valid() {
		return fmt.Errorf("fgi_sentiment %q not in vocabulary", p.Sentiment)
	}
	return nil
}

// Series is one consistent read of both input sources. Fingerprint changes
// whenever either source's content changes.
type Series struct {
	Prices      []PricePoint
	Sentiment   []SentimentPoint
	Fingerprint string
}
