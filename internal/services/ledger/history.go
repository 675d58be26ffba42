package ledger

import (
	"context"
	"fmt"
	"sort"

	"SentiDash/internal/domain/models"
	"SentiDash/internal/domain/repository"
	"SentiDash/internal/services/labels"
)

// History reads the ledger in date order and resolves every entry against
// the realized price series. Entries whose next day is not yet priced keep
// their stored outcome.
func History(ctx context.Context, store repository.LedgerStore, prices []models.PricePoint) (models.LedgerReport, error) {
	entries, err := store.ReadAll(ctx)
	if err != nil {
		return models.LedgerReport{}, fmt.Errorf("ledger history: %w", err)
	}
	return Resolve(entries, prices), nil
}

// Resolve recomputes correctness with the shared direction definition.
func Resolve(entries []models.LedgerEntry, prices []models.PricePoint) models.LedgerReport {
	sorted := append([]models.LedgerEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RunDate.Before(sorted[j].RunDate) })

	closes := labels.CloseIndex(prices)
	out := make([]models.ResolvedEntry, len(sorted))
	for i, e := range sorted {
		resolved := e.IsCorrect
		if up, ok := labels.RealizedFrom(closes, e.RunDate); ok {
			resolved = models.OutcomeFrom(e.PredictedDirection, up)
		}
		out[i] = models.ResolvedEntry{LedgerEntry: e, Resolved: resolved}
	}
	return models.LedgerReport{Entries: out, Summary: Summarize(out)}
}

func Summarize(entries []models.ResolvedEntry) models.LedgerSummary {
	s := models.LedgerSummary{Total: len(entries)}
	for _, e := range entries {
		if !e.Resolved.Resolved() {
			continue
		}
		s.Resolved++
		if e.Resolved == models.OutcomeCorrect {
			s.Correct++
		}
	}
	if s.Resolved > 0 {
		s.HitRate = float64(s.Correct) / float64(s.Resolved)
	}
	return s
}
