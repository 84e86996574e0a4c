package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"superstore-dashboard/internal/models"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(context.Background(), &sb); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	return sb.String()
}

func testDomain() models.Domain {
	return models.Domain{
		Regions:    []string{"East", "West"},
		Categories: []string{"Furniture", "Office Supplies"},
		MinDate:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxDate:    time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		Records:    1234,
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "US $ 0"},
		{"999.99", "US $ 999"},
		{"1234567.89", "US $ 1,234,567"},
		{"-1500.5", "US $ -1,500"},
	}

	for _, tt := range tests {
		if got := Currency(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("Currency(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(decimal.RequireFromString("13.333333")); got != "13.33%" {
		t.Errorf("Percent() = %q, want 13.33%%", got)
	}
	if got := Percent(decimal.Zero); got != "0.00%" {
		t.Errorf("Percent(0) = %q, want 0.00%%", got)
	}
}

func TestDashboard(t *testing.T) {
	html := render(t, Dashboard(testDomain()))

	expected := []string{
		"<!DOCTYPE html>",
		"Superstore Sales Analysis",
		"Dashboard Filters",
		"Select Region:",
		"Select Category:",
		"Select Date Range:",
		"Sales by Sub-Category",
		"Daily Sales Trend",
		`min="2023-01-01"`,
		`max="2023-12-31"`,
		`value="Office Supplies"`,
		"1,234 records",
		`id="kpis"`,
		`id="records"`,
		`data-init="@get('/sse/dashboard')"`,
		`data-bind="regions"`,
		`data-bind="categories"`,
		`data-signals="{&#34;regions&#34;:[&#34;East&#34;,&#34;West&#34;]`,
	}
	for _, s := range expected {
		if !strings.Contains(html, s) {
			t.Errorf("dashboard should contain %q", s)
		}
	}
}

func TestKPISummary(t *testing.T) {
	html := render(t, KPISummary(models.KPISnapshot{
		TotalSales:   decimal.NewFromInt(300),
		TotalProfit:  decimal.NewFromInt(40),
		ProfitMargin: decimal.NewFromInt(40).Div(decimal.NewFromInt(300)).Mul(decimal.NewFromInt(100)),
	}))

	for _, s := range []string{"Total Sales", "US $ 300", "Total Profit", "US $ 40", "Profit Margin", "13.33%"} {
		if !strings.Contains(html, s) {
			t.Errorf("KPI summary should contain %q", s)
		}
	}
}

func TestRecordsTable_EscapesValues(t *testing.T) {
	page := models.RecordPage{
		Total: 3,
		Records: []models.Record{{
			Region:      "West",
			Category:    "Furniture",
			SubCategory: "Chairs",
			ProductName: `<script>alert("x")</script>`,
			OrderDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			Sales:       decimal.NewFromInt(100),
			Profit:      decimal.NewFromInt(-10),
		}},
	}

	html := render(t, RecordsTable(page, "/api/records.csv?region=West"))

	if strings.Contains(html, "<script>") {
		t.Error("product name must be escaped")
	}
	for _, s := range []string{"Showing 1 of 3 rows", "2023-01-01", "Chairs", "num loss", `href="/api/records.csv?region=West"`} {
		if !strings.Contains(html, s) {
			t.Errorf("table should contain %q", s)
		}
	}
}

func TestDashboard_EscapesDomainValues(t *testing.T) {
	dom := testDomain()
	dom.Regions = []string{`"><script>alert(1)</script>`}

	html := render(t, Dashboard(dom))

	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("region option must be escaped")
	}
}

func TestNotice(t *testing.T) {
	if html := render(t, Notice("")); html != `<div id="notice"></div>` {
		t.Errorf("empty notice = %q", html)
	}
	if html := render(t, Notice("bad date")); !strings.Contains(html, `role="alert"`) {
		t.Errorf("notice should be an alert, got %q", html)
	}
	if html := render(t, Notice("start <b>after</b> end")); strings.Contains(html, "<b>") {
		t.Errorf("notice must be escaped, got %q", html)
	}
}
