package handlers

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"time"

	"superstore-dashboard/internal/errors"
	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/observability"
	"superstore-dashboard/internal/services"
)

const reloadTimeout = 60 * time.Second

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) dashboard(w http.ResponseWriter, r *http.Request) (*models.Dashboard, bool) {
	dash, err := h.analytics.Dashboard(r.Context(), filterFromQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return nil, false
	}
	return dash, true
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	dom, err := h.analytics.Domain()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, dom, map[string]string{
		"Cache-Control": "public, max-age=300",
	})
}

type dashboardResponse struct {
	*models.Dashboard
	Records models.RecordPage `json:"records"`
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	dash, ok := h.dashboard(w, r)
	if !ok {
		return
	}

	errors.WriteSuccess(w, dashboardResponse{
		Dashboard: dash,
		Records:   services.Page(dash.Rows, offset, limit),
	})
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	if dash, ok := h.dashboard(w, r); ok {
		errors.WriteSuccess(w, dash.KPIs)
	}
}

func (h *APIHandlers) HandleSalesBySubCategory(w http.ResponseWriter, r *http.Request) {
	if dash, ok := h.dashboard(w, r); ok {
		errors.WriteSuccess(w, dash.SalesBySubCategory)
	}
}

func (h *APIHandlers) HandleDailySales(w http.ResponseWriter, r *http.Request) {
	if dash, ok := h.dashboard(w, r); ok {
		errors.WriteSuccess(w, dash.DailySales)
	}
}

func (h *APIHandlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if dash, ok := h.dashboard(w, r); ok {
		errors.WriteSuccess(w, services.Page(dash.Rows, offset, limit))
	}
}

// HandleRecordsCSV streams the whole filtered view as a CSV download.
func (h *APIHandlers) HandleRecordsCSV(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.dashboard(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="filtered_sales.csv"`)

	logger := observability.LoggerFrom(r.Context(), h.logger)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Order ID", "Order Date", "Region", "Category", "Sub-Category", "Product Name", "Sales", "Profit"})
	for _, rec := range dash.Rows {
		if err := cw.Write([]string{
			rec.OrderID,
			rec.OrderDate.Format(models.DateLayout),
			rec.Region,
			rec.Category,
			rec.SubCategory,
			rec.ProductName,
			rec.Sales.String(),
			rec.Profit.String(),
		}); err != nil {
			logger.Warn("csv export aborted", "error", err)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logger.Warn("csv export flush failed", "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if _, err := h.analytics.Dataset(); err != nil {
		status = "loading"
	}

	errors.WriteSuccess(w, map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}

func (h *APIHandlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reloadTimeout)
	defer cancel()

	if err := h.analytics.Reload(ctx); err != nil {
		writeError(w, r, h.logger, errors.InternalWrap(err, "Reload failed, previous dataset kept"))
		return
	}

	observability.LoggerFrom(r.Context(), h.logger).Info("dataset reloaded on request", "source", h.analytics.Source())
	errors.WriteSuccess(w, h.analytics.Stats())
}
