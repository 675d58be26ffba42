package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSentiment(t *testing.T) {
	cases := map[string]Sentiment{
		"Extreme Fear":   SentimentExtremeFear,
		"extreme  greed": SentimentExtremeGreed,
		"Extreme_Greed":  SentimentExtremeGreed,
		" neutral ":      SentimentNeutral,
		"FEAR":           SentimentFear,
	}
	for in, want := range cases {
		got, err := ParseSentiment(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSentiment("Panic")
	assert.Error(t, err)
}

func TestSentimentOrdinalIsStable(t *testing.T) {
	assert.Equal(t, 0, SentimentExtremeFear.Ordinal())
	assert.Equal(t, 1, SentimentFear.Ordinal())
	assert.Equal(t, 2, SentimentNeutral.Ordinal())
	assert.Equal(t, 3, SentimentGreed.Ordinal())
	assert.Equal(t, 4, SentimentExtremeGreed.Ordinal())
	assert.Equal(t, -1, Sentiment("").Ordinal())
	assert.False(t, Sentiment("").Valid())
}

func TestSentimentPointValidate(t *testing.T) {
	assert.NoError(t, SentimentPoint{Value: 0, Sentiment: SentimentExtremeFear}.Validate())
	assert.NoError(t, SentimentPoint{Value: 100, Sentiment: SentimentExtremeGreed}.Validate())
	assert.Error(t, SentimentPoint{Value: 101, Sentiment: SentimentGreed}.Validate())
	assert.Error(t, SentimentPoint{Value: 50, Sentiment: "Bullish"}.Validate())
}

func TestParseOutcome(t *testing.T) {
	for in, want := range map[string]Outcome{"1": OutcomeCorrect, "0": OutcomeIncorrect, "unknown": OutcomeUnknown, "N/A": OutcomeUnknown, "": OutcomeUnknown} {
		got, err := ParseOutcome(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseOutcome("maybe")
	assert.Error(t, err)

	assert.Equal(t, OutcomeCorrect, OutcomeFrom(DirectionUp, true))
	assert.Equal(t, OutcomeIncorrect, OutcomeFrom(DirectionDown, true))
	assert.True(t, OutcomeCorrect.Resolved())
	assert.False(t, OutcomeUnknown.Resolved())
}
