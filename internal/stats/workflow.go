package stats

import (
	"math"
	"slices"
	"time"

	"repo-dashboard/internal/model"
)

// WorkflowStats summarizes a set of runs.
type WorkflowStats struct {
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	AvgDuration float64 `json:"avgDuration"`
	SuccessRate int     `json:"successRate"`
}

// CalculateWorkflowStats counts outcomes across all runs and averages their
// duration in minutes, rounded to one decimal. The average uses runs with a
// valid duration; when none is valid it falls back to every run.
func CalculateWorkflowStats(runs []model.WorkflowRunRecord) WorkflowStats {
	if len(runs) == 0 {
		return WorkflowStats{}
	}

	var s WorkflowStats
	var validSum, allSum float64
	var validCount int
	for _, r := range runs {
		switch r.Conclusion {
		case model.ConclusionSuccess:
			s.Successful++
		case model.ConclusionFailure:
			s.Failed++
		}
		allSum += r.DurationSeconds
		if ValidDuration(r.DurationSeconds) {
			validSum += r.DurationSeconds
			validCount++
		}
	}

	s.Total = len(runs)
	s.SuccessRate = int(math.Round(float64(s.Successful) / float64(s.Total) * 100))
	if validCount > 0 {
		s.AvgDuration = round(validSum/float64(validCount)/60, 1)
	} else {
		s.AvgDuration = round(allSum/float64(len(runs))/60, 1)
	}
	return s
}

// RunPoint is one run on the duration chart.
type RunPoint struct {
	Date            string  `json:"date"`
	DurationMinutes float64 `json:"duration"`
	RunNumber       int     `json:"runNumber"`
	Conclusion      string  `json:"conclusion"`
}

// SortRunsByCreated returns a copy of runs ordered oldest first.
func SortRunsByCreated(runs []model.WorkflowRunRecord) []model.WorkflowRunRecord {
	out := slices.Clone(runs)
	slices.SortStableFunc(out, compareRunsByCreated)
	return out
}

func compareRunsByCreated(a, b model.WorkflowRunRecord) int {
	return a.CreatedAt.Compare(b.CreatedAt)
}

// RunChartPoints returns the last limit runs of a chronologically sorted slice
// as chart points with whole-minute durations.
func RunChartPoints(sorted []model.WorkflowRunRecord, limit int, loc *time.Location) []RunPoint {
	tail := lastN(sorted, limit)
	points := make([]RunPoint, 0, len(tail))
	for _, r := range tail {
		conclusion := r.Conclusion
		if conclusion == "" {
			conclusion = "unknown"
		}
		points = append(points, RunPoint{
			Date:            r.CreatedAt.In(loc).Format("Jan 2"),
			DurationMinutes: math.Round(r.DurationSeconds / 60),
			RunNumber:       r.RunNumber,
			Conclusion:      conclusion,
		})
	}
	return points
}

// RecentRuns returns the last limit runs of a chronologically sorted slice, newest first.
func RecentRuns(sorted []model.WorkflowRunRecord, limit int) []model.WorkflowRunRecord {
	out := slices.Clone(lastN(sorted, limit))
	slices.Reverse(out)
	return out
}

func lastN[T any](s []T, n int) []T {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}
