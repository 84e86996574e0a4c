package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/observability"
)

var ErrNotLoaded = errors.New("dataset not loaded")

type AnalyticsOptions struct {
	Source string
	Loader LoaderOptions
	Cache  *SnapshotCache
	Logger *slog.Logger
}

// Analytics owns the process-wide dataset. The dataset is replaced as a whole
// on reload and never mutated in place; per-request selections and results are
// never stored here.
type Analytics struct {
	mu      sync.RWMutex
	dataset *Dataset
	source  string
	loader  LoaderOptions
	cache   *SnapshotCache
	logger  *slog.Logger
	reloads atomic.Int64
}

func NewAnalytics(opts AnalyticsOptions) *Analytics {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		source: opts.Source,
		loader: opts.Loader,
		cache:  opts.Cache,
		logger: logger,
	}
}

// SetData installs records directly, bypassing the source file.
func (a *Analytics) SetData(records []models.Record) error {
	ds, err := NewDataset("memory", records)
	if err != nil {
		return err
	}
	a.swap(ds)
	return nil
}

func (a *Analytics) swap(ds *Dataset) {
	a.mu.Lock()
	a.dataset = ds
	a.mu.Unlock()
}

// Load initializes the dataset, preferring a fresh snapshot over parsing.
func (a *Analytics) Load(ctx context.Context) error {
	if a.cache != nil {
		err := a.loadSnapshot()
		if err == nil {
			return nil
		}
		a.logger.Debug("cache miss", "source", a.source, "reason", err)
	}
	return a.parse(ctx)
}

func (a *Analytics) loadSnapshot() error {
	key, err := SourceKey(a.source, a.loader)
	if err != nil {
		return err
	}
	records, err := a.cache.Load(key)
	if err != nil {
		return err
	}
	ds, err := NewDataset(a.source, records)
	if err != nil {
		return err
	}
	a.swap(ds)
	a.logger.Info("loaded from cache", "source", a.source, "records", len(records))
	return nil
}

// Reload reparses the source and swaps the dataset. On failure the previous
// dataset stays in place.
func (a *Analytics) Reload(ctx context.Context) error {
	if a.cache != nil {
		if err := a.cache.Invalidate(a.source); err != nil {
			a.logger.Warn("failed to invalidate cache", "error", err)
		}
	}
	if err := a.parse(ctx); err != nil {
		return err
	}
	a.reloads.Add(1)
	return nil
}

func (a *Analytics) parse(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, "dataset.parse")
	defer span.Finish()

	start := time.Now()
	a.logger.Info("processing CSV file", "filename", a.source)

	key, err := SourceKey(a.source, a.loader)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("process csv: %w", err)
	}

	records, err := ReadRecordsFile(ctx, a.source, a.loader)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("process csv: %w", err)
	}

	ds, err := NewDataset(a.source, records)
	if err != nil {
		span.SetError(err)
		return err
	}
	a.swap(ds)

	if a.cache != nil {
		if err := a.cache.Save(key, records); err != nil {
			a.logger.Warn("failed to save cache", "error", err)
		}
	}

	duration := time.Since(start)
	span.SetTag("records", strconv.Itoa(len(records)))
	a.logger.Info("csv processing complete",
		"records", len(records),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(len(records))/duration.Seconds()))

	return nil
}

// Dataset returns the current dataset or ErrNotLoaded.
func (a *Analytics) Dataset() (*Dataset, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.dataset == nil {
		return nil, ErrNotLoaded
	}
	return a.dataset, nil
}

func (a *Analytics) Source() string {
	return a.source
}

func (a *Analytics) Domain() (models.Domain, error) {
	ds, err := a.Dataset()
	if err != nil {
		return models.Domain{}, err
	}
	return ds.Domain(), nil
}

// Dashboard resolves req against the current dataset and runs the pipeline.
func (a *Analytics) Dashboard(ctx context.Context, req models.FilterRequest) (*models.Dashboard, error) {
	ds, err := a.Dataset()
	if err != nil {
		return nil, err
	}

	_, span := observability.StartSpan(ctx, "dashboard.compute")
	defer span.Finish()

	sel, err := ds.Resolve(req)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	dash := Compute(ds, sel)
	span.SetTag("rows", strconv.Itoa(dash.KPIs.Rows))
	return dash, nil
}

// Stats is used for monitoring.
func (a *Analytics) Stats() map[string]any {
	ds, err := a.Dataset()
	if err != nil {
		return map[string]any{
			"loaded": false,
			"source": a.source,
		}
	}

	dom := ds.Domain()
	return map[string]any{
		"loaded":       true,
		"source":       ds.Source(),
		"loaded_at":    ds.LoadedAt(),
		"record_count": dom.Records,
		"regions":      len(dom.Regions),
		"categories":   len(dom.Categories),
		"min_date":     dom.MinDate.Format(models.DateLayout),
		"max_date":     dom.MaxDate.Format(models.DateLayout),
		"reloads":      a.reloads.Load(),
	}
}
