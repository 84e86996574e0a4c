package templates

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"superstore-dashboard/internal/models"
)

var printer = message.NewPrinter(language.English)

// Currency renders whole dollars with digit grouping, e.g. "US $ 1,234".
// Cents are truncated.
func Currency(d decimal.Decimal) string {
	return printer.Sprintf("US $ %d", d.IntPart())
}

// Amount renders a value with two decimals and digit grouping.
func Amount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return printer.Sprintf("%.2f", f)
}

func Percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

func Count(n int) string {
	return printer.Sprintf("%d", n)
}

func formatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}

// listSize keeps multi-selects between 2 and 8 visible rows.
func listSize(options []string) int {
	return min(max(len(options), 2), 8)
}
