package repository

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"SentiDash/internal/domain/models"
	applogger "SentiDash/pkg/logger"
	"SentiDash/pkg/util"
)

// Column aliases accepted on read. The first name is the one written.
var (
	priceColumns = map[string][]string{
		"date":   {"date", "timestamp"},
		"open":   {"open"},
		"high":   {"high"},
		"low":    {"low"},
		"close":  {"close", "adj close"},
		"volume": {"volume"},
	}
	priceOrder = []string{"date", "open", "high", "low", "close", "volume"}

	sentimentColumns = map[string][]string{
		"date":          {"date", "timestamp"},
		"fgi_value":     {"fgi_value", "value"},
		"fgi_sentiment": {"fgi_sentiment", "value_classification", "classification"},
	}
	sentimentOrder = []string{"date", "fgi_value", "fgi_sentiment"}
)

// CSVSeries reads and writes the two daily input files.
type CSVSeries struct {
	pricePath     string
	sentimentPath string
	l             *applogger.Logger
}

func NewCSVSeries(pricePath, sentimentPath string) *CSVSeries {
	return &CSVSeries{pricePath: pricePath, sentimentPath: sentimentPath}
}

// SetLogger injects a structured logger.
func (s *CSVSeries) SetLogger(l *applogger.Logger) { s.l = l }

// Load reads both files and fingerprints their bytes together.
func (s *CSVSeries) Load(ctx context.Context) (*models.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	priceRaw, err := os.ReadFile(s.pricePath)
	if err != nil {
		return nil, fmt.Errorf("read prices: %w", err)
	}
	sentRaw, err := os.ReadFile(s.sentimentPath)
	if err != nil {
		return nil, fmt.Errorf("read sentiment: %w", err)
	}

	prices, err := ParsePrices(bytes.NewReader(priceRaw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.pricePath, err)
	}
	sent, err := ParseSentiment(bytes.NewReader(sentRaw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.sentimentPath, err)
	}

	h := sha256.New()
	h.Write(priceRaw)
	h.Write([]byte{0})
	h.Write(sentRaw)
	fp := hex.EncodeToString(h.Sum(nil))

	if s.l != nil {
		s.l.Debug("csv series loaded",
			applogger.Int("prices", len(prices)),
			applogger.Int("sentiment", len(sent)),
			applogger.String("fingerprint", fp[:12]),
		)
	}
	return &models.Series{Prices: prices, Sentiment: sent, Fingerprint: fp}, nil
}

// WritePrices replaces the price file.
func (s *CSVSeries) WritePrices(ctx context.Context, prices []models.PricePoint) error {
	rows := make([][]string, 0, len(prices))
	for _, p := range prices {
		rows = append(rows, []string{
			util.FormatDate(p.Date),
			formatFloat(p.Open),
			formatFloat(p.High),
			formatFloat(p.Low),
			formatFloat(p.Close),
			formatFloat(p.Volume),
		})
	}
	return writeCSVAtomic(ctx, s.pricePath, priceOrder, rows)
}

// WriteSentiment replaces the sentiment file.
func (s *CSVSeries) WriteSentiment(ctx context.Context, points []models.SentimentPoint) error {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{util.FormatDate(p.Date), strconv.Itoa(p.Value), string(p.Sentiment)})
	}
	return writeCSVAtomic(ctx, s.sentimentPath, sentimentOrder, rows)
}

// ParsePrices reads date,open,high,low,close,volume rows. Only date and
// close are required.
func ParsePrices(r io.Reader) ([]models.PricePoint, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	idx, missing := indexColumns(header, priceColumns)
	if missing := required(missing, "date", "close"); len(missing) > 0 {
		return nil, fmt.Errorf("price csv: missing columns %s", strings.Join(missing, ", "))
	}

	out := make([]models.PricePoint, 0, len(records))
	for i, rec := range records {
		line := i + 2
		d, ok := util.ParseDate(field(rec, idx["date"]))
		if !ok {
			return nil, fmt.Errorf("price csv line %d: invalid date %q", line, field(rec, idx["date"]))
		}
		p := models.PricePoint{Date: d}
		for _, col := range []struct {
			name string
			dst  *float64
		}{{"open", &p.Open}, {"high", &p.High}, {"low", &p.Low}, {"close", &p.Close}, {"volume", &p.Volume}} {
			raw := field(rec, idx[col.name])
			if raw == "" && col.name != "close" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("price csv line %d: invalid %s %q", line, col.name, raw)
			}
			*col.dst = v
		}
		out = append(out, p)
	}
	return out, nil
}

// ParseSentiment reads date,fgi_value,fgi_sentiment rows. Labels outside
// the five-value vocabulary are rejected.
func ParseSentiment(r io.Reader) ([]models.SentimentPoint, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	idx, missing := indexColumns(header, sentimentColumns)
	if len(missing) > 0 {
		return nil, fmt.Errorf("sentiment csv: missing columns %s", strings.Join(missing, ", "))
	}

	out := make([]models.SentimentPoint, 0, len(records))
	for i, rec := range records {
		line := i + 2
		d, ok := util.ParseDate(field(rec, idx["date"]))
		if !ok {
			return nil, fmt.Errorf("sentiment csv line %d: invalid date %q", line, field(rec, idx["date"]))
		}
		raw := field(rec, idx["fgi_value"])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("sentiment csv line %d: invalid fgi_value %q", line, raw)
		}
		label, err := models.ParseSentiment(field(rec, idx["fgi_sentiment"]))
		if err != nil {
			return nil, fmt.Errorf("sentiment csv line %d: %w", line, err)
		}
		p := models.SentimentPoint{Date: d, Value: int(v), Sentiment: label}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("sentiment csv line %d: %w", line, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("csv: empty file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("csv header: %w", err)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("csv: %w", err)
	}
	return header, records, nil
}

// indexColumns maps canonical names to header positions and reports the
// canonical names that were not found.
func indexColumns(header []string, aliases map[string][]string) (map[string]int, []string) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	idx := make(map[string]int, len(aliases))
	var missing []string
	for name, names := range aliases {
		idx[name] = -1
		for _, a := range names {
			if i, ok := pos[a]; ok {
				idx[name] = i
				break
			}
		}
		if idx[name] < 0 {
			missing = append(missing, name)
		}
	}
	return idx, missing
}

func required(missing []string, names ...string) []string {
	var out []string
	for _, m := range missing {
		for _, n := range names {
			if m == n {
				out = append(out, m)
			}
		}
	}
	return out
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSVAtomic(ctx context.Context, path string, header []string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
