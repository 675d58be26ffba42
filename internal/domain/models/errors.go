package models

import (
	"fmt"
	"strings"
	"time"
)

// DataAlignmentError means the price and sentiment series share no dates.
type DataAlignmentError struct {
	PriceRows     int
	SentimentRows int
}

func (e *DataAlignmentError) Error() string {
	return fmt.Sprintf("data alignment: no overlapping dates between %d price rows and %d sentiment rows", e.PriceRows, e.SentimentRows)
}

// InsufficientDataError means fewer fully-defined rows than required.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d usable rows, need %d", e.Have, e.Need)
}

// DegenerateLabelError means every training target has the same class.
type DegenerateLabelError struct {
	Rows  int
	Class bool
}

func (e *DegenerateLabelError) Error() string {
	cls := 0
	if e.Class {
		cls = 1
	}
	return fmt.Sprintf("degenerate labels: all %d targets are %d", e.Rows, cls)
}

// FeatureMissingError means a required feature is undefined on a row.
type FeatureMissingError struct {
	Feature string
	Date    time.Time
}

func (e *FeatureMissingError) Error() string {
	return fmt.Sprintf("feature missing: %s undefined on %s", e.Feature, e.Date.Format("2006-01-02"))
}

// LedgerSchemaError means the persisted ledger does not match the expected layout.
type LedgerSchemaError struct {
	Missing []string
	Reason  string
}

func (e *LedgerSchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("ledger schema: missing columns %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("ledger schema: %s", e.Reason)
}

// DuplicateEntryError is returned when a run date is already in the ledger.
// Existing holds the stored entry, which is left untouched.
type DuplicateEntryError struct {
	Existing LedgerEntry
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("ledger: prediction for %s already recorded", e.Existing.RunDate.Format("2006-01-02"))
}
