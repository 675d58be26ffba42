package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"SentiDash/internal/domain/models"
	applogger "SentiDash/pkg/logger"
	"SentiDash/pkg/util"
)

const defaultLockRetry = 50 * time.Millisecond

// CSVLedger is the file-backed prediction ledger. Every append holds an
// exclusive lock on <path>.lock across the duplicate check and the write.
// The flock handle is not goroutine safe, so mu serialises its use.
type CSVLedger struct {
	path  string
	mu    sync.Mutex
	lock  *flock.Flock
	retry time.Duration
	l     *applogger.Logger
}

func NewCSVLedger(path string) *CSVLedger {
	return &CSVLedger{
		path:  path,
		lock:  flock.New(path + ".lock"),
		retry: defaultLockRetry,
	}
}

// SetLogger injects a structured logger.
func (c *CSVLedger) SetLogger(l *applogger.Logger) { c.l = l }

// Path returns the ledger file location.
func (c *CSVLedger) Path() string { return c.path }

// Init creates the directory and verifies an existing file's header.
func (c *CSVLedger) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("ledger init: %w", err)
	}
	_, err := c.ReadAll(ctx)
	return err
}

func (c *CSVLedger) Append(ctx context.Context, entry models.LedgerEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	locked, err := c.lock.TryLockContext(ctx, c.retry)
	if err != nil {
		return fmt.Errorf("ledger lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("ledger lock: %s not acquired", c.lock.Path())
	}
	defer func() { _ = c.lock.Unlock() }()

	raw, err := c.readRaw()
	if err != nil {
		return err
	}
	existing, err := decodeRaw(raw)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.RunDate.Equal(entry.RunDate) {
			return &models.DuplicateEntryError{Existing: e}
		}
	}

	// Rows follow the stored header, which may be reordered or aliased.
	fresh := len(bytes.TrimSpace(raw)) == 0
	header := LedgerColumns
	flags := os.O_APPEND | os.O_CREATE | os.O_WRONLY
	if fresh {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	} else if header, _, err = readCSV(bytes.NewReader(raw)); err != nil {
		return &models.LedgerSchemaError{Reason: err.Error()}
	}

	f, err := os.OpenFile(c.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("ledger open: %w", err)
	}
	defer f.Close()

	if !fresh && raw[len(raw)-1] != '\n' {
		if _, err := f.Write([]byte("\n")); err != nil {
			return fmt.Errorf("ledger write: %w", err)
		}
	}
	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(LedgerColumns); err != nil {
			return fmt.Errorf("ledger header: %w", err)
		}
	}
	if err := w.Write(encodeLedgerRowAs(entry, header)); err != nil {
		return fmt.Errorf("ledger write: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("ledger flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("ledger sync: %w", err)
	}

	if c.l != nil {
		c.l.Info("ledger entry appended",
			applogger.String("date", util.FormatDate(entry.RunDate)),
			applogger.String("direction", entry.PredictedDirection.String()),
			applogger.String("is_correct", string(entry.IsCorrect)),
		)
	}
	return nil
}

// ReadAll returns every stored entry. A missing file is an empty ledger.
func (c *CSVLedger) ReadAll(ctx context.Context) ([]models.LedgerEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	locked, err := c.lock.TryRLockContext(ctx, c.retry)
	if err != nil {
		return nil, fmt.Errorf("ledger lock: %w", err)
	}
	if locked {
		defer func() { _ = c.lock.Unlock() }()
	}
	return c.read()
}

func (c *CSVLedger) Close() error {
	return c.lock.Close()
}

func (c *CSVLedger) read() ([]models.LedgerEntry, error) {
	raw, err := c.readRaw()
	if err != nil {
		return nil, err
	}
	return decodeRaw(raw)
}

func (c *CSVLedger) readRaw() ([]byte, error) {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger read: %w", err)
	}
	return raw, nil
}

func decodeRaw(raw []byte) ([]models.LedgerEntry, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return DecodeLedger(bytes.NewReader(raw))
}

// DecodeLedger parses ledger CSV. Layout problems are reported as
// *models.LedgerSchemaError.
func DecodeLedger(r io.Reader) ([]models.LedgerEntry, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, &models.LedgerSchemaError{Reason: err.Error()}
	}
	idx, missing := indexColumns(header, ledgerAliases())
	if len(missing) > 0 {
		return nil, &models.LedgerSchemaError{Missing: sortedLike(missing, LedgerColumns)}
	}

	out := make([]models.LedgerEntry, 0, len(records))
	for i, rec := range records {
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		e, err := decodeLedgerRow(rec, idx)
		if err != nil {
			return nil, &models.LedgerSchemaError{Reason: fmt.Sprintf("line %d: %v", i+2, err)}
		}
		out = append(out, e)
	}
	return out, nil
}

func sortedLike(names, order []string) []string {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	out := make([]string, 0, len(names))
	for _, o := range order {
		if set[o] {
			out = append(out, o)
		}
	}
	return out
}
