package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"superstore-dashboard/internal/models"
)

const csvHeader = "Row ID,Order ID,Order Date,Region,Category,Sub-Category,Product Name,Sales,Quantity,Profit\n"

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "superstore.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadRecords_TwoRows(t *testing.T) {
	input := csvHeader +
		"1,CA-1,2023-01-01,West,Furniture,Chairs,Chair A,100,1,10\n" +
		"2,CA-2,2023-01-02,West,Furniture,Chairs,\"Chair B, Deluxe\",200,2,30\n"

	records, err := ReadRecords(context.Background(), strings.NewReader(input), LoaderOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "CA-1", records[0].OrderID)
	assert.Equal(t, "West", records[0].Region)
	assert.Equal(t, "Furniture", records[0].Category)
	assert.Equal(t, "Chairs", records[0].SubCategory)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), records[0].OrderDate)
	assert.Equal(t, "100", records[0].Sales.String())
	assert.Equal(t, "10", records[0].Profit.String())
	assert.Equal(t, "Chair B, Deluxe", records[1].ProductName)
}

func TestReadRecords_DateLayouts(t *testing.T) {
	input := csvHeader +
		"1,CA-1,11/8/2016,South,Furniture,Bookcases,Shelf,261.96,2,41.91\n" +
		"2,CA-2,2016-11-09,South,Furniture,Chairs,Chair,731.94,3,219.58\n" +
		"3,CA-3,2016-11-10 14:30:00,West,Office Supplies,Labels,Labels,14.62,2,6.87\n"

	records, err := ReadRecords(context.Background(), strings.NewReader(input), LoaderOptions{
		DateLayouts: []string{"2006-01-02", "1/2/2006", "2006-01-02 15:04:05"},
	})
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, want := range []string{"2016-11-08", "2016-11-09", "2016-11-10"} {
		assert.Equal(t, want, records[i].OrderDate.Format(models.DateLayout))
		assert.Zero(t, records[i].OrderDate.Hour(), "time of day is truncated")
	}
}

func TestReadRecords_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target error
		line   int
		column string
	}{
		{
			name:   "malformed date",
			input:  csvHeader + "1,CA-1,2023-01-01,West,Furniture,Chairs,A,100,1,10\n2,CA-2,yesterday,West,Furniture,Chairs,B,1,1,1\n",
			line:   3,
			column: "Order Date",
		},
		{
			name:   "non numeric sales",
			input:  csvHeader + "1,CA-1,2023-01-01,West,Furniture,Chairs,A,lots,1,10\n",
			line:   2,
			column: "Sales",
		},
		{
			name:   "negative sales",
			input:  csvHeader + "1,CA-1,2023-01-01,West,Furniture,Chairs,A,-5,1,10\n",
			line:   2,
			column: "Sales",
		},
		{
			name:   "empty profit",
			input:  csvHeader + "1,CA-1,2023-01-01,West,Furniture,Chairs,A,5,1,\n",
			line:   2,
			column: "Profit",
		},
		{
			name:  "wrong field count",
			input: csvHeader + "1,CA-1,2023-01-01,West\n",
			line:  2,
		},
		{
			name:   "missing columns",
			input:  "Order ID,Region,Sales\nCA-1,West,100\n",
			target: ErrMissingColumns,
		},
		{
			name:   "header only",
			input:  csvHeader,
			target: ErrNoRecords,
		},
		{
			name:   "empty file",
			input:  "",
			target: ErrNoRecords,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ReadRecords(context.Background(), strings.NewReader(tt.input), LoaderOptions{})
			require.Error(t, err)
			assert.Nil(t, records)

			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
				return
			}

			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.line, loadErr.Line)
			assert.Equal(t, tt.column, loadErr.Column)
		})
	}
}

func TestReadRecords_MissingColumnsNamed(t *testing.T) {
	_, err := ReadRecords(context.Background(), strings.NewReader("Region,Category,Sales\nWest,Furniture,1\n"), LoaderOptions{})
	require.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "Sub-Category")
	assert.Contains(t, err.Error(), "Order Date")
	assert.Contains(t, err.Error(), "Profit")
}

func TestReadRecords_ManyBatchesKeepOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString(csvHeader)
	const n = batchSize*2 + 123
	for i := range n {
		fmt.Fprintf(&b, "%d,CA-%d,2023-01-%02d,West,Furniture,Chairs,P,%d,1,0\n", i, i, i%28+1, i)
	}

	records, err := ReadRecords(context.Background(), strings.NewReader(b.String()), LoaderOptions{})
	require.NoError(t, err)
	require.Len(t, records, n)

	for i, rec := range records {
		if rec.OrderID != fmt.Sprintf("CA-%d", i) {
			t.Fatalf("record %d out of order: %s", i, rec.OrderID)
		}
	}
}

func TestReadRecords_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadRecords(ctx, strings.NewReader(csvHeader+"1,CA-1,2023-01-01,West,Furniture,Chairs,A,1,1,1\n"), LoaderOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadRecordsFile_Latin1(t *testing.T) {
	// "Café" and "Señor" encoded as ISO-8859-1.
	content := csvHeader + "1,CA-1,2023-01-01,West,Furniture,Chairs,Caf\xe9 Se\xf1or,100,1,10\n"
	path := createTempCSV(t, content)

	for _, encoding := range []string{EncodingAuto, EncodingLatin1} {
		t.Run(encoding, func(t *testing.T) {
			records, err := ReadRecordsFile(context.Background(), path, LoaderOptions{Encoding: encoding})
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "Café Señor", records[0].ProductName)
		})
	}
}

func TestReadRecordsFile_UTF8WithBOM(t *testing.T) {
	path := createTempCSV(t, "\xef\xbb\xbf"+csvHeader+"1,CA-1,2023-01-01,West,Furniture,Chairs,Café,100,1,10\n")

	records, err := ReadRecordsFile(context.Background(), path, LoaderOptions{Encoding: EncodingAuto})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Café", records[0].ProductName)
}

func TestReadRecordsFile_UnsupportedEncoding(t *testing.T) {
	path := createTempCSV(t, csvHeader+"1,CA-1,2023-01-01,West,Furniture,Chairs,A,1,1,1\n")

	_, err := ReadRecordsFile(context.Background(), path, LoaderOptions{Encoding: "ebcdic"})
	assert.ErrorContains(t, err, "unsupported encoding")
}

func TestReadRecordsFile_Missing(t *testing.T) {
	_, err := ReadRecordsFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), LoaderOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
