package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"SentiDash/internal/domain/models"
	pkgch "SentiDash/pkg/clickhouse"
	applogger "SentiDash/pkg/logger"
	"SentiDash/pkg/util"
)

const defaultLedgerTable = "prediction_ledger"

// CHLedger stores the ledger in a ReplacingMergeTree keyed by run date.
type CHLedger struct {
	db    *sql.DB
	ch    *pkgch.Client
	table string
	l     *applogger.Logger
}

func NewCHLedger(ch *pkgch.Client, table string) *CHLedger {
	if table == "" {
		table = defaultLedgerTable
	}
	return &CHLedger{db: ch.DB(), ch: ch, table: table}
}

// SetLogger injects a structured logger.
func (s *CHLedger) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHLedger) schema() []string {
	return []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_date            Date,
			predicted_direction UInt8,
			is_correct          LowCardinality(String),
			accuracy            Float64,
			recorded_at         DateTime64(3, 'UTC')
		)
		ENGINE = ReplacingMergeTree
		ORDER BY run_date
	`, s.table)}
}

func (s *CHLedger) Init(ctx context.Context) error {
	if err := s.ch.InitSchema(ctx, s.schema()); err != nil {
		return fmt.Errorf("ledger init: %w", err)
	}
	return s.checkColumns(ctx)
}

// checkColumns compares system.columns with the expected layout.
func (s *CHLedger) checkColumns(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM system.columns
		WHERE database = currentDatabase() AND table = ?
	`, s.table)
	if err != nil {
		return fmt.Errorf("ledger columns: %w", err)
	}
	defer rows.Close()

	have := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}
		have[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}

	var missing []string
	for _, c := range []string{"run_date", "predicted_direction", "is_correct", "accuracy"} {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &models.LedgerSchemaError{Missing: missing}
	}
	return nil
}

func (s *CHLedger) Append(ctx context.Context, entry models.LedgerEntry) error {
	start := time.Now()
	existing, found, err := s.find(ctx, entry.RunDate)
	if err != nil {
		return err
	}
	if found {
		return &models.DuplicateEntryError{Existing: existing}
	}

	q := fmt.Sprintf(`INSERT INTO %s (run_date, predicted_direction, is_correct, accuracy, recorded_at) VALUES (?, ?, ?, ?, ?)`, s.table)
	if _, err := s.db.ExecContext(ctx, q,
		entry.RunDate, uint8(entry.PredictedDirection), string(entry.IsCorrect), entry.Accuracy, time.Now().UTC(),
	); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse ledger insert error",
				applogger.String("table", s.table),
				applogger.String("date", util.FormatDate(entry.RunDate)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse ledger insert ok",
			applogger.String("table", s.table),
			applogger.String("date", util.FormatDate(entry.RunDate)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHLedger) find(ctx context.Context, date time.Time) (models.LedgerEntry, bool, error) {
	q := fmt.Sprintf(`
		SELECT run_date, predicted_direction, is_correct, accuracy
		FROM %s FINAL
		WHERE run_date = ?
		LIMIT 1
	`, s.table)
	e, err := scanLedgerRow(s.db.QueryRowContext(ctx, q, util.Day(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.LedgerEntry{}, false, nil
	}
	if err != nil {
		return models.LedgerEntry{}, false, fmt.Errorf("find ledger entry: %w", err)
	}
	return e, true, nil
}

func (s *CHLedger) ReadAll(ctx context.Context) ([]models.LedgerEntry, error) {
	if err := s.checkColumns(ctx); err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
		SELECT run_date, predicted_direction, is_correct, accuracy
		FROM %s FINAL
		ORDER BY run_date ASC
	`, s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	defer rows.Close()

	out := make([]models.LedgerEntry, 0, 256)
	for rows.Next() {
		e, err := scanLedgerRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHLedger) Close() error { return nil }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedgerRow(r rowScanner) (models.LedgerEntry, error) {
	var (
		date    time.Time
		dir     uint8
		correct string
		acc     float64
	)
	if err := r.Scan(&date, &dir, &correct, &acc); err != nil {
		return models.LedgerEntry{}, err
	}
	outcome, err := models.ParseOutcome(correct)
	if err != nil {
		return models.LedgerEntry{}, &models.LedgerSchemaError{Reason: err.Error()}
	}
	if dir > 1 {
		return models.LedgerEntry{}, &models.LedgerSchemaError{Reason: fmt.Sprintf("invalid predicted_direction %d", dir)}
	}
	return models.LedgerEntry{
		RunDate:            util.Day(date),
		PredictedDirection: models.Direction(dir),
		IsCorrect:          outcome,
		Accuracy:           acc,
	}, nil
}
