package stats

import (
	"math"
	"time"

	"repo-dashboard/internal/model"
)

// WindowMonths is the length of the trailing window, current month included.
const WindowMonths = 12

// MaxValidDurationSeconds bounds plausible run durations; values outside
// (0, MaxValidDurationSeconds) come from inconsistent upstream timestamps.
const MaxValidDurationSeconds = 86400

// MonthlyReleaseStats counts releases published in one calendar month.
type MonthlyReleaseStats struct {
	Key    string `json:"key"`
	Month  string `json:"month"`
	Year   int    `json:"year"`
	Stable int    `json:"stable"`
	Beta   int    `json:"beta"`
	Total  int    `json:"total"`
}

// WorkflowMonthlyStats averages run durations for one calendar month.
// AverageDuration is nil when the month has no valid run.
type WorkflowMonthlyStats struct {
	Key             string   `json:"key"`
	Month           string   `json:"month"`
	Year            int      `json:"year"`
	AverageDuration *float64 `json:"averageDuration"`
	TotalRuns       int      `json:"totalRuns"`
}

type month struct {
	key   string
	label string
	year  int
}

// trailingMonths returns the WindowMonths months ending at now, oldest first,
// in now's location.
func trailingMonths(now time.Time) []month {
	months := make([]month, 0, WindowMonths)
	for i := WindowMonths - 1; i >= 0; i-- {
		first := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		months = append(months, month{
			key:   monthKey(first),
			label: first.Format("Jan 2006"),
			year:  first.Year(),
		})
	}
	return months
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// CalculateMonthlyReleaseStats buckets releases by publish month (creation
// month when unpublished) over the trailing window ending at now. Drafts and
// releases outside the window are ignored; missing months are zero-filled.
func CalculateMonthlyReleaseStats(releases []model.ReleaseRecord, now time.Time) []MonthlyReleaseStats {
	counts := make(map[string]*MonthlyReleaseStats)
	for _, r := range releases {
		if r.Draft {
			continue
		}
		key := monthKey(r.PublishedOrCreated().In(now.Location()))
		s, ok := counts[key]
		if !ok {
			s = &MonthlyReleaseStats{}
			counts[key] = s
		}
		s.Total++
		if r.Prerelease {
			s.Beta++
		} else {
			s.Stable++
		}
	}

	out := make([]MonthlyReleaseStats, 0, WindowMonths)
	for _, m := range trailingMonths(now) {
		s := MonthlyReleaseStats{Key: m.key, Month: m.label, Year: m.year}
		if c, ok := counts[m.key]; ok {
			s.Stable, s.Beta, s.Total = c.Stable, c.Beta, c.Total
		}
		out = append(out, s)
	}
	return out
}

// ValidDuration reports whether a run duration is plausible.
func ValidDuration(seconds float64) bool {
	return seconds > 0 && seconds < MaxValidDurationSeconds
}

// CalculateWorkflowMonthlyStats averages valid run durations, in minutes
// rounded to two decimals, by creation month over the trailing window.
// Runs with implausible durations count neither towards the average nor
// towards TotalRuns.
func CalculateWorkflowMonthlyStats(runs []model.WorkflowRunRecord, now time.Time) []WorkflowMonthlyStats {
	type acc struct {
		total float64
		count int
	}
	sums := make(map[string]*acc)
	for _, r := range runs {
		if !ValidDuration(r.DurationSeconds) {
			continue
		}
		key := monthKey(r.CreatedAt.In(now.Location()))
		a, ok := sums[key]
		if !ok {
			a = &acc{}
			sums[key] = a
		}
		a.total += r.DurationSeconds
		a.count++
	}

	out := make([]WorkflowMonthlyStats, 0, WindowMonths)
	for _, m := range trailingMonths(now) {
		s := WorkflowMonthlyStats{Key: m.key, Month: m.label, Year: m.year}
		if a, ok := sums[m.key]; ok {
			avg := round(a.total/float64(a.count)/60, 2)
			s.AverageDuration = &avg
			s.TotalRuns = a.count
		}
		out = append(out, s)
	}
	return out
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
