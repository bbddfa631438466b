// Package summary condenses a results directory into counts and per-case
// lines for terminals and HTML pages.
package summary

import (
	"fmt"
	"sort"
	"time"

	"cukereport/internal/allure"
	"cukereport/pkg/listener"
)

// Report is the condensed view of one results directory.
type Report struct {
	Dir      string
	Total    int
	Counts   map[listener.Status]int
	Duration time.Duration
	Cases    []CaseLine
}

// CaseLine is one reported case.
type CaseLine struct {
	Feature  string
	Name     string
	Status   listener.Status
	Duration time.Duration
	Message  string
}

// Load reads dir and builds its report.
func Load(dir string) (Report, error) {
	results, err := allure.ReadDir(dir)
	if err != nil {
		return Report{}, err
	}
	return Build(results), nil
}

// Build condenses parsed results. Cases are ordered by feature, then by the
// order ReadDir returned them in.
func Build(results allure.Results) Report {
	report := Report{
		Dir:    results.Dir,
		Total:  len(results.Cases),
		Counts: results.CountByStatus(),
	}
	var first, last int64
	for _, result := range results.Cases {
		line := CaseLine{
			Feature: labelValue(result.Labels, "feature"),
			Name:    result.Name,
			Status:  result.Status,
		}
		if line.Status == "" {
			line.Status = allure.StatusUnknown
		}
		if result.Stop > result.Start && result.Start > 0 {
			line.Duration = time.Duration(result.Stop-result.Start) * time.Millisecond
		}
		if result.StatusDetails != nil {
			line.Message = result.StatusDetails.Message
		}
		if result.Start > 0 && (first == 0 || result.Start < first) {
			first = result.Start
		}
		if result.Stop > last {
			last = result.Stop
		}
		report.Cases = append(report.Cases, line)
	}
	if first > 0 && last > first {
		report.Duration = time.Duration(last-first) * time.Millisecond
	}
	sort.SliceStable(report.Cases, func(i, j int) bool {
		return report.Cases[i].Feature < report.Cases[j].Feature
	})
	return report
}

// Failing counts failed and broken cases.
func (r Report) Failing() int {
	return r.Counts[listener.StatusFailed] + r.Counts[listener.StatusBroken]
}

// PassRate returns the passed share of all cases, or 0 without cases.
func (r Report) PassRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Counts[listener.StatusPassed]) / float64(r.Total)
}

// formatPassRate returns a percentage string for report output.
func formatPassRate(rate float64) string {
	return fmt.Sprintf("%.2f", rate*100)
}

func labelValue(labels []listener.Label, name string) string {
	for _, label := range labels {
		if label.Name == name {
			return label.Value
		}
	}
	return ""
}

// statusOrder lists statuses in display order.
var statusOrder = []listener.Status{
	listener.StatusPassed,
	listener.StatusFailed,
	listener.StatusBroken,
	listener.StatusSkipped,
	allure.StatusUnknown,
}
