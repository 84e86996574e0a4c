package templates

import (
	"context"
	"encoding/json"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"superstore-dashboard/internal/models"
)

const (
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"
	chartScript    = "https://cdn.jsdelivr.net/npm/chart.js@4.4.4/dist/chart.umd.min.js"
)

// Signals is the client-side state of the sidebar widgets plus the chart
// series pushed by the server.
type Signals struct {
	Regions         []string            `json:"regions"`
	Categories      []string            `json:"categories"`
	Start           string              `json:"start"`
	End             string              `json:"end"`
	SubCategoryData []models.ChartPoint `json:"subCategoryData"`
	DailyData       []models.ChartPoint `json:"dailyData"`
}

func InitialSignals(dom models.Domain) Signals {
	return Signals{
		Regions:         dom.Regions,
		Categories:      dom.Categories,
		Start:           dom.MinDate.Format(models.DateLayout),
		End:             dom.MaxDate.Format(models.DateLayout),
		SubCategoryData: []models.ChartPoint{},
		DailyData:       []models.ChartPoint{},
	}
}

var views = template.Must(template.New("views").Funcs(template.FuncMap{
	"currency": Currency,
	"amount":   Amount,
	"percent":  Percent,
	"count":    Count,
	"date":     formatDate,
	"listSize": listSize,
	"style":    func() template.HTML { return pageStyle },
	"charts":   func() template.HTML { return chartsScript },
}).Parse(`
{{- define "dashboard" -}}
<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Interactive Sales Dashboard</title>
<script type="module" src="{{.DatastarScript}}"></script>
<script src="{{.ChartScript}}"></script>
{{style}}
</head>
<body data-signals="{{.Signals}}" data-init="@get('/sse/dashboard')">
<div class="layout">
{{template "sidebar" .}}
<main>
<h1>Superstore Sales Analysis</h1><hr>
<div id="notice"></div>
<div id="kpis" class="kpi-row"><p class="loading">Loading KPIs…</p></div><hr>
<div class="charts">
<section class="chart"><h2>Sales by Sub-Category</h2><canvas id="subcategory-chart"></canvas></section>
<section class="chart"><h2>Daily Sales Trend</h2><canvas id="daily-chart"></canvas></section>
</div>
<div data-effect="window.renderCharts && window.renderCharts($subCategoryData, $dailyData)"></div>
<div id="records"><p class="loading">Loading records…</p></div>
</main>
</div>
{{charts}}
</body></html>
{{- end}}

{{- define "sidebar" -}}
<aside class="sidebar" data-on:change="@get('/sse/dashboard')">
<h2>Dashboard Filters</h2>
<label for="region">Select Region:</label>
{{template "multiselect" .Regions}}
<label for="category">Select Category:</label>
{{template "multiselect" .Categories}}
<label>Select Date Range:</label>
<div class="dates">
<input type="date" data-bind="start" min="{{date .Domain.MinDate}}" max="{{date .Domain.MaxDate}}">
<input type="date" data-bind="end" min="{{date .Domain.MinDate}}" max="{{date .Domain.MaxDate}}">
</div>
<button type="button" data-on:click="@get('/sse/reset')">Reset filters</button>
<p class="meta">{{count .Domain.Records}} records, {{date .Domain.MinDate}} to {{date .Domain.MaxDate}}</p>
</aside>
{{- end}}

{{- define "multiselect" -}}
<select multiple id="{{.ID}}" data-bind="{{.Signal}}" size="{{listSize .Options}}">
{{- range .Options}}<option selected value="{{.}}">{{.}}</option>{{end -}}
</select>
{{- end}}

{{- define "kpis" -}}
<div id="kpis" class="kpi-row">
<div class="kpi"><h3>Total Sales</h3><p class="kpi-value">{{currency .TotalSales}}</p></div>
<div class="kpi"><h3>Total Profit</h3><p class="kpi-value">{{currency .TotalProfit}}</p></div>
<div class="kpi"><h3>Profit Margin</h3><p class="kpi-value">{{percent .ProfitMargin}}</p></div>
</div>
{{- end}}

{{- define "records" -}}
<div id="records">
<div class="table-meta">Showing {{count (len .Page.Records)}} of {{count .Page.Total}} rows <a href="{{.DownloadURL}}">Download CSV</a></div>
<table class="modern-table">
<thead><tr><th>Order Date</th><th>Order ID</th><th>Region</th><th>Category</th><th>Sub-Category</th><th>Product Name</th><th>Sales</th><th>Profit</th></tr></thead>
<tbody>
{{- range .Page.Records}}
<tr><td>{{date .OrderDate}}</td><td>{{.OrderID}}</td><td>{{.Region}}</td><td>{{.Category}}</td><td>{{.SubCategory}}</td><td>{{.ProductName}}</td><td class="num">{{amount .Sales}}</td><td class="{{if .Profit.IsNegative}}num loss{{else}}num{{end}}">{{amount .Profit}}</td></tr>
{{- end}}
</tbody>
</table>
</div>
{{- end}}

{{- define "notice" -}}
{{if .}}<div id="notice" class="notice" role="alert">{{.}}</div>{{else}}<div id="notice"></div>{{end}}
{{- end}}
`))

// view adapts a named template to templ.Component so fragments can go
// straight through PatchElementTempl.
func view(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return views.ExecuteTemplate(w, name, data)
	})
}

type selectView struct {
	ID      string
	Signal  string
	Options []string
}

type dashboardView struct {
	Domain         models.Domain
	Regions        selectView
	Categories     selectView
	Signals        string
	DatastarScript string
	ChartScript    string
}

// Dashboard is the full page. Content sections start empty and are filled by
// the first /sse/dashboard round trip.
func Dashboard(dom models.Domain) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := json.Marshal(InitialSignals(dom))
		if err != nil {
			return err
		}
		return views.ExecuteTemplate(w, "dashboard", dashboardView{
			Domain:         dom,
			Regions:        selectView{ID: "region", Signal: "regions", Options: dom.Regions},
			Categories:     selectView{ID: "category", Signal: "categories", Options: dom.Categories},
			Signals:        string(signals),
			DatastarScript: datastarScript,
			ChartScript:    chartScript,
		})
	})
}

// KPISummary renders the three headline figures.
func KPISummary(k models.KPISnapshot) templ.Component {
	return view("kpis", k)
}

type recordsView struct {
	Page        models.RecordPage
	DownloadURL string
}

// RecordsTable renders one page of the filtered view.
func RecordsTable(page models.RecordPage, downloadURL string) templ.Component {
	return view("records", recordsView{Page: page, DownloadURL: downloadURL})
}

// Notice shows a message above the KPIs; an empty message clears it.
func Notice(message string) templ.Component {
	return view("notice", message)
}

const pageStyle template.HTML = `<style>
body{font-family:system-ui,sans-serif;margin:0;color:#1f2937}
.layout{display:flex;min-height:100vh}
.sidebar{width:280px;padding:1rem;background:#f3f4f6;display:flex;flex-direction:column;gap:.5rem}
.sidebar select,.sidebar input,.sidebar button{width:100%}
.dates{display:flex;gap:.25rem}
main{flex:1;padding:1rem 2rem;overflow-x:auto}
.kpi-row{display:flex;gap:2rem}
.kpi{flex:1}.kpi-value{font-size:1.5rem;font-weight:600}
.charts{display:grid;grid-template-columns:1fr 1fr;gap:1rem}
.modern-table{border-collapse:collapse;width:100%;font-size:.85rem}
.modern-table th,.modern-table td{border-bottom:1px solid #e5e7eb;padding:.25rem .5rem;text-align:left}
.num{text-align:right}.loss{color:#b91c1c}
.notice{background:#fef2f2;color:#991b1b;padding:.5rem 1rem;border-radius:4px}
.meta,.loading,.table-meta{color:#6b7280;font-size:.85rem}
</style>`

const chartsScript template.HTML = `<script>
(function () {
  var charts = {};
  function draw(id, config) {
    if (charts[id]) { charts[id].destroy(); }
    charts[id] = new Chart(document.getElementById(id), config);
  }
  window.renderCharts = function (subCategory, daily) {
    if (typeof Chart === "undefined") { return; }
    draw("subcategory-chart", {
      type: "bar",
      data: {
        labels: subCategory.map(function (p) { return p.label; }),
        datasets: [{ label: "Sales", data: subCategory.map(function (p) { return p.value; }), backgroundColor: "#0083B8" }]
      },
      options: { indexAxis: "y", plugins: { legend: { display: false } }, scales: { x: { grid: { display: false } } } }
    });
    draw("daily-chart", {
      type: "line",
      data: {
        labels: daily.map(function (p) { return p.label; }),
        datasets: [{ label: "Sales", data: daily.map(function (p) { return p.value; }), borderColor: "#0083B8", pointRadius: 0 }]
      },
      options: { plugins: { legend: { display: false } }, scales: { y: { grid: { display: false } } } }
    });
  };
})();
</script>`
