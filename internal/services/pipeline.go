package services

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"superstore-dashboard/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Filter returns the records matching every term of sel, in input order.
// An empty region or category set yields an empty view.
func Filter(records []models.Record, sel models.Selection) []models.Record {
	if len(sel.Regions) == 0 || len(sel.Categories) == 0 || sel.Start.After(sel.End) {
		return []models.Record{}
	}

	regions := toSet(sel.Regions)
	categories := toSet(sel.Categories)

	view := make([]models.Record, 0, len(records))
	for _, rec := range records {
		if _, ok := regions[rec.Region]; !ok {
			continue
		}
		if _, ok := categories[rec.Category]; !ok {
			continue
		}
		if rec.OrderDate.Before(sel.Start) || rec.OrderDate.After(sel.End) {
			continue
		}
		view = append(view, rec)
	}
	return view
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Summarize computes the KPI snapshot. The margin is zero whenever there are
// no sales, whatever the profit.
func Summarize(view []models.Record) models.KPISnapshot {
	kpi := models.KPISnapshot{
		TotalSales:   decimal.Zero,
		TotalProfit:  decimal.Zero,
		ProfitMargin: decimal.Zero,
		Rows:         len(view),
	}

	for _, rec := range view {
		kpi.TotalSales = kpi.TotalSales.Add(rec.Sales)
		kpi.TotalProfit = kpi.TotalProfit.Add(rec.Profit)
	}

	if kpi.TotalSales.IsPositive() {
		kpi.ProfitMargin = kpi.TotalProfit.Div(kpi.TotalSales).Mul(hundred)
	}
	return kpi
}

// SalesBySubCategory sums sales per sub-category, smallest first. Equal sums
// are ordered by name.
func SalesBySubCategory(view []models.Record) []models.SubCategorySales {
	groups := make(map[string]decimal.Decimal)
	for _, rec := range view {
		groups[rec.SubCategory] = groups[rec.SubCategory].Add(rec.Sales)
	}

	result := make([]models.SubCategorySales, 0, len(groups))
	for name, sales := range groups {
		result = append(result, models.SubCategorySales{SubCategory: name, Sales: sales})
	}
	slices.SortFunc(result, func(a, b models.SubCategorySales) int {
		if c := a.Sales.Cmp(b.Sales); c != 0 {
			return c
		}
		return cmp.Compare(a.SubCategory, b.SubCategory)
	})
	return result
}

// DailySales sums sales per calendar day in chronological order. Days without
// sales are omitted rather than zero-filled.
func DailySales(view []models.Record) []models.DailySales {
	groups := make(map[time.Time]decimal.Decimal)
	for _, rec := range view {
		day := truncateDay(rec.OrderDate)
		groups[day] = groups[day].Add(rec.Sales)
	}

	result := make([]models.DailySales, 0, len(groups))
	for day, sales := range groups {
		result = append(result, models.DailySales{Day: day, Sales: sales})
	}
	slices.SortFunc(result, func(a, b models.DailySales) int {
		return a.Day.Compare(b.Day)
	})
	return result
}

// Compute runs the whole pipeline for one selection. It has no side effects.
func Compute(ds *Dataset, sel models.Selection) *models.Dashboard {
	view := Filter(ds.Records(), sel)
	return &models.Dashboard{
		Selection:          sel,
		KPIs:               Summarize(view),
		SalesBySubCategory: SalesBySubCategory(view),
		DailySales:         DailySales(view),
		Rows:               view,
	}
}

// Page slices a filtered view for display or pagination.
func Page(view []models.Record, offset, limit int) models.RecordPage {
	total := len(view)
	offset = max(0, min(offset, total))
	end := total
	if limit > 0 {
		end = min(offset+limit, total)
	}
	return models.RecordPage{
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		Records: view[offset:end],
	}
}
