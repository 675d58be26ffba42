package repository

import (
	"fmt"
	"strconv"
	"strings"

	"SentiDash/internal/domain/models"
	"SentiDash/pkg/util"
)

// LedgerColumns is the persisted ledger layout.
var LedgerColumns = []string{"date", "predicted_direction", "is_correct", "accuracy"}

func encodeLedgerRow(e models.LedgerEntry) []string {
	return []string{
		util.FormatDate(e.RunDate),
		strconv.Itoa(int(e.PredictedDirection)),
		string(e.IsCorrect),
		formatFloat(e.Accuracy),
	}
}

// encodeLedgerRowAs places the encoded fields at their positions in header.
// Columns outside the ledger layout are left empty.
func encodeLedgerRowAs(e models.LedgerEntry, header []string) []string {
	canon := encodeLedgerRow(e)
	idx, _ := indexColumns(header, ledgerAliases())
	out := make([]string, len(header))
	for i, c := range LedgerColumns {
		if p := idx[c]; p >= 0 {
			out[p] = canon[i]
		}
	}
	return out
}

func parseDirection(s string) (models.Direction, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || (v != 0 && v != 1) {
		return 0, fmt.Errorf("invalid predicted_direction %q", s)
	}
	return models.Direction(int(v)), nil
}

func decodeLedgerRow(rec []string, idx map[string]int) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	d, ok := util.ParseDate(field(rec, idx["date"]))
	if !ok {
		return e, fmt.Errorf("invalid date %q", field(rec, idx["date"]))
	}
	e.RunDate = d

	dir, err := parseDirection(field(rec, idx["predicted_direction"]))
	if err != nil {
		return e, err
	}
	e.PredictedDirection = dir

	if e.IsCorrect, err = models.ParseOutcome(field(rec, idx["is_correct"])); err != nil {
		return e, err
	}

	raw := field(rec, idx["accuracy"])
	acc, err := strconv.ParseFloat(raw, 64)
	if err != nil || acc < 0 || acc > 1 {
		return e, fmt.Errorf("invalid accuracy %q", raw)
	}
	e.Accuracy = acc
	return e, nil
}

func ledgerAliases() map[string][]string {
	out := make(map[string][]string, len(LedgerColumns))
	for _, c := range LedgerColumns {
		out[c] = []string{c}
	}
	out["date"] = []string{"date", "run_date"}
	return out
}
