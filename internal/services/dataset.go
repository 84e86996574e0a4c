package services

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"superstore-dashboard/internal/models"
)

var ErrInvalidSelection = errors.New("invalid selection")

// Dataset is an immutable set of loaded records plus the domain observed in
// them. It is shared read-only between requests.
type Dataset struct {
	records  []models.Record
	domain   models.Domain
	source   string
	loadedAt time.Time
}

func NewDataset(source string, records []models.Record) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	regions := make(map[string]struct{})
	categories := make(map[string]struct{})
	minDate, maxDate := records[0].OrderDate, records[0].OrderDate

	for _, rec := range records {
		regions[rec.Region] = struct{}{}
		categories[rec.Category] = struct{}{}
		if rec.OrderDate.Before(minDate) {
			minDate = rec.OrderDate
		}
		if rec.OrderDate.After(maxDate) {
			maxDate = rec.OrderDate
		}
	}

	return &Dataset{
		records: records,
		domain: models.Domain{
			Regions:    sortedKeys(regions),
			Categories: sortedKeys(categories),
			MinDate:    minDate,
			MaxDate:    maxDate,
			Records:    len(records),
		},
		source:   source,
		loadedAt: time.Now(),
	}, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (d *Dataset) Records() []models.Record {
	return d.records
}

// Domain returns a copy so callers cannot mutate the shared option lists.
func (d *Dataset) Domain() models.Domain {
	dom := d.domain
	dom.Regions = slices.Clone(d.domain.Regions)
	dom.Categories = slices.Clone(d.domain.Categories)
	return dom
}

func (d *Dataset) Source() string {
	return d.source
}

func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}

// DefaultSelection selects the whole domain.
func (d *Dataset) DefaultSelection() models.Selection {
	return models.Selection{
		Regions:    slices.Clone(d.domain.Regions),
		Categories: slices.Clone(d.domain.Categories),
		Start:      d.domain.MinDate,
		End:        d.domain.MaxDate,
	}
}

// Resolve turns a client request into a Selection. Omitted lists and dates
// default to the full domain; dates are clamped into the observed span when
// they overlap it. Values that do not occur in the data are kept and simply
// match nothing.
func (d *Dataset) Resolve(req models.FilterRequest) (models.Selection, error) {
	sel := d.DefaultSelection()

	if req.Regions != nil {
		sel.Regions = dedupe(req.Regions)
	}
	if req.Categories != nil {
		sel.Categories = dedupe(req.Categories)
	}

	if req.Start != "" {
		start, err := time.Parse(models.DateLayout, req.Start)
		if err != nil {
			return models.Selection{}, fmt.Errorf("%w: start date %q: expected YYYY-MM-DD", ErrInvalidSelection, req.Start)
		}
		sel.Start = start
	}
	if req.End != "" {
		end, err := time.Parse(models.DateLayout, req.End)
		if err != nil {
			return models.Selection{}, fmt.Errorf("%w: end date %q: expected YYYY-MM-DD", ErrInvalidSelection, req.End)
		}
		sel.End = end
	}

	if sel.Start.After(sel.End) {
		return models.Selection{}, fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidSelection,
			sel.Start.Format(models.DateLayout), sel.End.Format(models.DateLayout))
	}

	// An interval disjoint from the data span is kept as requested. It stays
	// ordered and matches no record.
	if sel.Start.After(d.domain.MaxDate) || sel.End.Before(d.domain.MinDate) {
		return sel, nil
	}

	if sel.Start.Before(d.domain.MinDate) {
		sel.Start = d.domain.MinDate
	}
	if sel.End.After(d.domain.MaxDate) {
		sel.End = d.domain.MaxDate
	}

	return sel, nil
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
