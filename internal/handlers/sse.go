package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"superstore-dashboard/internal/errors"
	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/observability"
	"superstore-dashboard/internal/services"
	"superstore-dashboard/internal/ui/templates"
)

const defaultMaxTableRows = 200

type SSEHandlers struct {
	analytics    *services.Analytics
	logger       *slog.Logger
	maxTableRows int
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger, maxTableRows int) *SSEHandlers {
	if maxTableRows <= 0 {
		maxTableRows = defaultMaxTableRows
	}
	return &SSEHandlers{
		analytics:    analytics,
		logger:       logger,
		maxTableRows: maxTableRows,
	}
}

// sidebarSignals is the subset of client signals the server reads. Pointers
// distinguish a missing signal from an explicitly emptied multi-select.
type sidebarSignals struct {
	Regions    *[]string `json:"regions"`
	Categories *[]string `json:"categories"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
}

func (s sidebarSignals) filterRequest() models.FilterRequest {
	req := models.FilterRequest{Start: s.Start, End: s.End}
	if s.Regions != nil {
		req.Regions = nonNil(*s.Regions)
	}
	if s.Categories != nil {
		req.Categories = nonNil(*s.Categories)
	}
	return req
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func chartSignals(dash *models.Dashboard) map[string]any {
	sub := make([]models.ChartPoint, 0, len(dash.SalesBySubCategory))
	for _, s := range dash.SalesBySubCategory {
		sub = append(sub, models.ChartPoint{Label: s.SubCategory, Value: s.Sales.InexactFloat64()})
	}
	daily := make([]models.ChartPoint, 0, len(dash.DailySales))
	for _, d := range dash.DailySales {
		daily = append(daily, models.ChartPoint{Label: d.Day.Format(models.DateLayout), Value: d.Sales.InexactFloat64()})
	}
	return map[string]any{
		"subCategoryData": sub,
		"dailyData":       daily,
	}
}

// patchDashboard sends every section that depends on the selection.
func (h *SSEHandlers) patchDashboard(sse *datastar.ServerSentEventGenerator, dash *models.Dashboard) error {
	if err := sse.PatchElementTempl(templates.Notice("")); err != nil {
		return err
	}
	if err := sse.PatchElementTempl(templates.KPISummary(dash.KPIs)); err != nil {
		return err
	}

	page := services.Page(dash.Rows, 0, h.maxTableRows)
	download := "/api/records.csv?" + selectionQuery(dash.Selection).Encode()
	if err := sse.PatchElementTempl(templates.RecordsTable(page, download)); err != nil {
		return err
	}

	return sse.MarshalAndPatchSignals(chartSignals(dash))
}

// HandleDashboard recomputes the dashboard from the sidebar signals.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	var signals sidebarSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		writeError(w, r, h.logger, errors.BadRequestWrap(err, "Invalid signals payload"))
		return
	}

	logger := observability.LoggerFrom(r.Context(), h.logger)
	dash, err := h.analytics.Dashboard(r.Context(), signals.filterRequest())
	sse := datastar.NewSSE(w, r)

	if err != nil {
		if stderrors.Is(err, services.ErrInvalidSelection) {
			if perr := sse.PatchElementTempl(templates.Notice(err.Error())); perr != nil {
				logger.Error("patch notice", "error", perr)
			}
			return
		}
		logger.Error("compute dashboard", "error", err)
		if perr := sse.PatchElementTempl(templates.Notice("The dashboard is not available right now.")); perr != nil {
			logger.Error("patch notice", "error", perr)
		}
		return
	}

	if err := h.patchDashboard(sse, dash); err != nil {
		logger.Warn("patch dashboard", "error", err)
	}
}

// HandleReset puts the sidebar back to the full domain and re-renders.
func (h *SSEHandlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	dom, err := h.analytics.Domain()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	dash, err := h.analytics.Dashboard(r.Context(), models.FilterRequest{})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	logger := observability.LoggerFrom(r.Context(), h.logger)
	sse := datastar.NewSSE(w, r)
	initial := templates.InitialSignals(dom)
	if err := sse.MarshalAndPatchSignals(map[string]any{
		"regions":    initial.Regions,
		"categories": initial.Categories,
		"start":      initial.Start,
		"end":        initial.End,
	}); err != nil {
		logger.Warn("patch signals", "error", err)
		return
	}

	if err := h.patchDashboard(sse, dash); err != nil {
		logger.Warn("patch dashboard", "error", err)
	}
}
