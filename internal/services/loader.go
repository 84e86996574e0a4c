package services

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
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"superstore-dashboard/internal/models"
)

const (
	batchSize  = 5000
	maxWorkers = 8
)

const (
	EncodingAuto   = "auto"
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin1"
)

const (
	colOrderID     = "Order ID"
	colRegion      = "Region"
	colCategory    = "Category"
	colSubCategory = "Sub-Category"
	colProductName = "Product Name"
	colOrderDate   = "Order Date"
	colSales       = "Sales"
	colProfit      = "Profit"
)

var requiredColumns = []string{colRegion, colCategory, colSubCategory, colOrderDate, colSales, colProfit}

var (
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoRecords      = errors.New("no records found")
)

// LoadError reports the first row that could not be parsed.
type LoadError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: column %q: invalid value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type LoaderOptions struct {
	Encoding    string
	DateLayouts []string
}

func (o LoaderOptions) layouts() []string {
	if len(o.DateLayouts) == 0 {
		return []string{models.DateLayout}
	}
	return o.DateLayouts
}

// Fingerprint identifies the parse settings. Layout order matters: the first
// layout that matches wins, so reordering can change parsed dates.
func (o LoaderOptions) Fingerprint() string {
	encoding := o.Encoding
	if encoding == "" {
		encoding = EncodingAuto
	}

	h := sha256.New()
	h.Write([]byte(encoding))
	for _, layout := range o.layouts() {
		h.Write([]byte{0})
		h.Write([]byte(layout))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

type columnIndex map[string]int

func (c columnIndex) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

type rawRow struct {
	line   int
	fields []string
}

// ReadRecordsFile loads every record of the CSV at path. Any malformed row
// aborts the load.
func ReadRecordsFile(ctx context.Context, path string, opts LoaderOptions) ([]models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	r, err := decodeSource(data, opts.Encoding)
	if err != nil {
		return nil, err
	}
	return ReadRecords(ctx, r, opts)
}

func decodeSource(data []byte, encoding string) (io.Reader, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	switch encoding {
	case EncodingUTF8:
		return bytes.NewReader(data), nil
	case EncodingLatin1:
		return transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder()), nil
	case EncodingAuto, "":
		if utf8.Valid(data) {
			return bytes.NewReader(data), nil
		}
		return transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// ReadRecords parses already-decoded CSV text. Rows are read sequentially and
// converted in batches on a bounded worker pool; output order matches input.
func ReadRecords(ctx context.Context, r io.Reader, opts LoaderOptions) ([]models.Record, error) {
	layouts := opts.layouts()

	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: %w", ErrNoRecords)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}
	reader.FieldsPerRecord = len(header)

	var records []models.Record
	batch := make([]rawRow, 0, batchSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &LoadError{Line: perr.Line, Err: perr.Err}
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		batch = append(batch, rawRow{line: line, fields: fields})

		if len(batch) >= batchSize {
			parsed, err := parseBatch(ctx, batch, cols, layouts)
			if err != nil {
				return nil, err
			}
			records = append(records, parsed...)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		parsed, err := parseBatch(ctx, batch, cols, layouts)
		if err != nil {
			return nil, err
		}
		records = append(records, parsed...)
	}

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

func mapHeader(header []string) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseBatch(ctx context.Context, batch []rawRow, cols columnIndex, layouts []string) ([]models.Record, error) {
	out := make([]models.Record, len(batch))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	chunk := (len(batch) + maxWorkers - 1) / maxWorkers
	for start := 0; start < len(batch); start += chunk {
		end := min(start+chunk, len(batch))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				rec, err := parseRow(batch[i], cols, layouts)
				if err != nil {
					return err
				}
				out[i] = rec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseRow(row rawRow, cols columnIndex, layouts []string) (models.Record, error) {
	rawDate := cols.get(row.fields, colOrderDate)
	date, err := parseDate(rawDate, layouts)
	if err != nil {
		return models.Record{}, &LoadError{Line: row.line, Column: colOrderDate, Value: rawDate, Err: err}
	}

	rawSales := cols.get(row.fields, colSales)
	sales, err := decimal.NewFromString(rawSales)
	if err != nil {
		return models.Record{}, &LoadError{Line: row.line, Column: colSales, Value: rawSales, Err: err}
	}
	if sales.IsNegative() {
		return models.Record{}, &LoadError{Line: row.line, Column: colSales, Value: rawSales, Err: errors.New("sales must not be negative")}
	}

	rawProfit := cols.get(row.fields, colProfit)
	profit, err := decimal.NewFromString(rawProfit)
	if err != nil {
		return models.Record{}, &LoadError{Line: row.line, Column: colProfit, Value: rawProfit, Err: err}
	}

	return models.Record{
		OrderID:     cols.get(row.fields, colOrderID),
		Region:      cols.get(row.fields, colRegion),
		Category:    cols.get(row.fields, colCategory),
		SubCategory: cols.get(row.fields, colSubCategory),
		ProductName: cols.get(row.fields, colProductName),
		OrderDate:   date,
		Sales:       sales,
		Profit:      profit,
	}, nil
}

// parseDate tries each layout in order and keeps only the calendar day, in UTC.
func parseDate(value string, layouts []string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("does not match any of %d date layouts", len(layouts))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
