package models

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the predicted or realized next-day move: 1 up, 0 down or flat.
type Direction int

const (
	DirectionDown Direction = 0
	DirectionUp   Direction = 1
)

// DirectionFromBool converts an "up" flag.
func DirectionFromBool(up bool) Direction {
	if up {
		return DirectionUp
	}
	return DirectionDown
}

func (d Direction) String() string {
	if d == DirectionUp {
		return "up"
	}
	return "down"
}

// Outcome is the stored correctness of a ledger entry.
type Outcome string

const (
	OutcomeCorrect   Outcome = "1"
	OutcomeIncorrect Outcome = "0"
	OutcomeUnknown   Outcome = "unknown"
)

// OutcomeFrom compares a prediction with the realized direction.
func OutcomeFrom(predicted Direction, realizedUp bool) Outcome {
	if predicted == DirectionFromBool(realizedUp) {
		return OutcomeCorrect
	}
	return OutcomeIncorrect
}

// ParseOutcome reads the persisted sentinel. The legacy "N/A" and an empty
// cell both mean unknown.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "1.0", "true":
		return OutcomeCorrect, nil
	case "0", "0.0", "false":
		return OutcomeIncorrect, nil
	case "unknown", "n/a", "na", "":
		return OutcomeUnknown, nil
	default:
		return "", fmt.Errorf("invalid is_correct value %q", s)
	}
}

// Resolved reports whether the outcome is known.
func (o Outcome) Resolved() bool {
	return o == OutcomeCorrect || o == OutcomeIncorrect
}

// Coefficient is one feature's signed weight in the fitted model.
type Coefficient struct {
	Feature     string  `json:"feature"`
	Coefficient float64 `json:"coefficient"`
}

// EvaluationKind distinguishes holdout from in-sample accuracy.
type EvaluationKind string

const (
	EvaluationHoldout  EvaluationKind = "holdout"
	EvaluationInSample EvaluationKind = "in_sample"
)

// Prediction is the live forward-looking call made from the latest row.
type Prediction struct {
	AsOf        time.Time `json:"as_of"`
	TargetDate  time.Time `json:"target_date"`
	Direction   Direction `json:"direction"`
	Label       string    `json:"label"`
	Probability float64   `json:"probability_up"`
}

// LedgerEntry is one persisted prediction. RunDate is the as-of date of
// the row the prediction was made from.
type LedgerEntry struct {
	RunDate            time.Time `json:"date"`
	PredictedDirection Direction `json:"predicted_direction"`
	IsCorrect          Outcome   `json:"is_correct"`
	Accuracy           float64   `json:"accuracy"`
}

// ResolvedEntry is a ledger entry with correctness recomputed by the reader.
type ResolvedEntry struct {
	LedgerEntry
	Resolved Outcome `json:"resolved"`
}

// LedgerSummary aggregates resolved entries for accuracy tracking.
type LedgerSummary struct {
	Total    int     `json:"total"`
	Resolved int     `json:"resolved"`
	Correct  int     `json:"correct"`
	HitRate  float64 `json:"hit_rate"`
}

// LedgerReport is the reader-side view of the ledger.
type LedgerReport struct {
	Entries []ResolvedEntry `json:"entries"`
	Summary LedgerSummary   `json:"summary"`
}

// PredictionEvent is pushed to downstream consumers after a run.
type PredictionEvent struct {
	RunID       string      `json:"run_id"`
	Fingerprint string      `json:"fingerprint"`
	Prediction  Prediction  `json:"prediction"`
	Entry       LedgerEntry `json:"entry"`
	Recorded    bool        `json:"recorded"`
	EmittedAt   time.Time   `json:"emitted_at"`
}
