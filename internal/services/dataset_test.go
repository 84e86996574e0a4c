package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"superstore-dashboard/internal/models"
)

func sampleDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := NewDataset("test", []models.Record{
		newRecord("West", "Furniture", "Chairs", 5, "100", "10"),
		newRecord("East", "Technology", "Phones", 3, "500", "-20"),
		newRecord("West", "Office Supplies", "Paper", 10, "20", "8"),
		newRecord("Central", "Furniture", "Tables", 7, "50", "5"),
	})
	require.NoError(t, err)
	return ds
}

func TestNewDataset_Domain(t *testing.T) {
	ds := sampleDataset(t)
	dom := ds.Domain()

	assert.Equal(t, []string{"Central", "East", "West"}, dom.Regions)
	assert.Equal(t, []string{"Furniture", "Office Supplies", "Technology"}, dom.Categories)
	assert.Equal(t, day(3), dom.MinDate)
	assert.Equal(t, day(10), dom.MaxDate)
	assert.Equal(t, 4, dom.Records)
	assert.Equal(t, "test", ds.Source())
	assert.False(t, ds.LoadedAt().IsZero())
}

func TestNewDataset_Empty(t *testing.T) {
	_, err := NewDataset("test", nil)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestDataset_DomainIsCopy(t *testing.T) {
	ds := sampleDataset(t)

	dom := ds.Domain()
	dom.Regions[0] = "Mutated"

	assert.Equal(t, "Central", ds.Domain().Regions[0])
}

func TestDataset_Resolve(t *testing.T) {
	ds := sampleDataset(t)

	tests := []struct {
		name       string
		req        models.FilterRequest
		regions    []string
		categories []string
		start, end int
	}{
		{
			name:       "defaults to full domain",
			req:        models.FilterRequest{},
			regions:    []string{"Central", "East", "West"},
			categories: []string{"Furniture", "Office Supplies", "Technology"},
			start:      3,
			end:        10,
		},
		{
			name:       "explicit empty lists",
			req:        models.FilterRequest{Regions: []string{}, Categories: []string{}},
			regions:    []string{},
			categories: []string{},
			start:      3,
			end:        10,
		},
		{
			name:       "duplicates removed",
			req:        models.FilterRequest{Regions: []string{"West", "West", "East"}},
			regions:    []string{"West", "East"},
			categories: []string{"Furniture", "Office Supplies", "Technology"},
			start:      3,
			end:        10,
		},
		{
			name:       "unknown values kept",
			req:        models.FilterRequest{Categories: []string{"Toys"}},
			regions:    []string{"Central", "East", "West"},
			categories: []string{"Toys"},
			start:      3,
			end:        10,
		},
		{
			name:       "dates clamped into span",
			req:        models.FilterRequest{Start: "2022-12-01", End: "2023-02-01"},
			regions:    []string{"Central", "East", "West"},
			categories: []string{"Furniture", "Office Supplies", "Technology"},
			start:      3,
			end:        10,
		},
		{
			name:       "dates inside span",
			req:        models.FilterRequest{Start: "2023-01-04", End: "2023-01-06"},
			regions:    []string{"Central", "East", "West"},
			categories: []string{"Furniture", "Office Supplies", "Technology"},
			start:      4,
			end:        6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := ds.Resolve(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.regions, sel.Regions)
			assert.Equal(t, tt.categories, sel.Categories)
			assert.Equal(t, day(tt.start), sel.Start)
			assert.Equal(t, day(tt.end), sel.End)
		})
	}
}

func TestDataset_ResolveDisjointInterval(t *testing.T) {
	ds := sampleDataset(t)

	tests := []struct {
		name  string
		req   models.FilterRequest
		start time.Time
		end   time.Time
	}{
		{
			name:  "after the data",
			req:   models.FilterRequest{Start: "2023-03-01", End: "2023-04-01"},
			start: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "before the data",
			req:   models.FilterRequest{Start: "2022-01-01", End: "2022-12-31"},
			start: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := ds.Resolve(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.start, sel.Start)
			assert.Equal(t, tt.end, sel.End)
			assert.False(t, sel.Start.After(sel.End), "resolved interval stays ordered")

			dash := Compute(ds, sel)
			assert.Zero(t, dash.KPIs.Rows)
			assert.Empty(t, dash.DailySales)

			// Resolving the resolved interval again gives the same selection.
			again, err := ds.Resolve(models.FilterRequest{
				Start: sel.Start.Format(models.DateLayout),
				End:   sel.End.Format(models.DateLayout),
			})
			require.NoError(t, err)
			assert.Equal(t, sel.Start, again.Start)
			assert.Equal(t, sel.End, again.End)
		})
	}
}

func TestDataset_ResolveInvalid(t *testing.T) {
	ds := sampleDataset(t)

	tests := []models.FilterRequest{
		{Start: "2023-01-06", End: "2023-01-04"},
		{Start: "06/01/2023"},
		{End: "2023-13-01"},
		{Start: "2023-01-11"},
	}

	for _, req := range tests {
		_, err := ds.Resolve(req)
		assert.ErrorIs(t, err, ErrInvalidSelection, "request %+v", req)
	}
}
