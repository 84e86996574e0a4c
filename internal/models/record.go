package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// Record is one sales line as loaded from the source file.
type Record struct {
	OrderID     string          `json:"order_id,omitempty"`
	Region      string          `json:"region"`
	Category    string          `json:"category"`
	SubCategory string          `json:"sub_category"`
	ProductName string          `json:"product_name,omitempty"`
	OrderDate   time.Time       `json:"order_date"`
	Sales       decimal.Decimal `json:"sales"`
	Profit      decimal.Decimal `json:"profit"`
}

// Domain describes the values observed in a loaded dataset. The dashboard
// widgets offer exactly these options.
type Domain struct {
	Regions    []string  `json:"regions"`
	Categories []string  `json:"categories"`
	MinDate    time.Time `json:"min_date"`
	MaxDate    time.Time `json:"max_date"`
	Records    int       `json:"records"`
}

// FilterRequest is a selection as received from a client. A nil slice means
// "everything", an empty non-nil slice means "nothing". Empty dates fall back
// to the dataset bounds.
type FilterRequest struct {
	Regions    []string `json:"regions"`
	Categories []string `json:"categories"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
}

// Selection is a FilterRequest resolved against a Domain.
type Selection struct {
	Regions    []string  `json:"regions"`
	Categories []string  `json:"categories"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type KPISnapshot struct {
	TotalSales   decimal.Decimal `json:"total_sales"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	Rows         int             `json:"rows"`
}

type SubCategorySales struct {
	SubCategory string          `json:"sub_category"`
	Sales       decimal.Decimal `json:"sales"`
}

type DailySales struct {
	Day   time.Time       `json:"day"`
	Sales decimal.Decimal `json:"sales"`
}

// Dashboard bundles everything a single render needs.
type Dashboard struct {
	Selection          Selection          `json:"selection"`
	KPIs               KPISnapshot        `json:"kpis"`
	SalesBySubCategory []SubCategorySales `json:"sales_by_sub_category"`
	DailySales         []DailySales       `json:"daily_sales"`
	Rows               []Record           `json:"-"`
}

// RecordPage is a window into a filtered view.
type RecordPage struct {
	Total   int      `json:"total"`
	Offset  int      `json:"offset"`
	Limit   int      `json:"limit"`
	Records []Record `json:"records"`
}

// ChartPoint is the JSON shape pushed to the browser charts.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}
