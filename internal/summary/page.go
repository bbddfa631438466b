package summary

import "fmt"

//go:generate templ generate -f page.templ

type countItem struct {
	Status string
	Text   string
}

func totalText(report Report) string {
	return fmt.Sprintf("%d scenarios", report.Total)
}

func passRateText(report Report) string {
	return formatPassRate(report.PassRate()) + "%"
}

// countItems lists non-zero status counts in display order.
func countItems(report Report) []countItem {
	var items []countItem
	for _, status := range statusOrder {
		if count := report.Counts[status]; count > 0 {
			items = append(items, countItem{Status: string(status), Text: fmt.Sprintf("%s: %d", status, count)})
		}
	}
	return items
}
