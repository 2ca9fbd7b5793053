package stats

import (
	"time"

	"repo-dashboard/internal/model"
	"repo-dashboard/internal/version"
)

const (
	// ChartRunLimit is how many runs the duration chart shows.
	ChartRunLimit = 50
	// RecentRunLimit is how many runs the recent-runs list shows.
	RecentRunLimit = 10

	betaStaleAfter = 7 * 24 * time.Hour
)

// ReleaseSummary is the release view of one repository.
type ReleaseSummary struct {
	Repository   model.RepositorySnapshot `json:"repository"`
	Releases     []model.ReleaseRecord    `json:"releases"`
	LatestStable *model.ReleaseRecord     `json:"latestStable"`
	LatestBeta   *model.ReleaseRecord     `json:"latestBeta"`
	StableStale  bool                     `json:"stableStale"`
	BetaStale    bool                     `json:"betaStale"`
	Monthly      []MonthlyReleaseStats    `json:"monthly"`
}

// SummarizeReleases builds the release view for every repository. Drafts are
// dropped and releases are ordered newest first. A stable release is stale
// when it is older than a month and no live beta exists; a beta is stale
// after a week.
func SummarizeReleases(repositories []model.RepositorySnapshot, releases []model.ReleaseRecord, now time.Time) []ReleaseSummary {
	byRepo := GroupByRepository(repositories, releases,
		func(r model.ReleaseRecord) bool { return !r.Draft },
		func(a, b model.ReleaseRecord) int { return b.PublishedOrCreated().Compare(a.PublishedOrCreated()) },
	)

	out := make([]ReleaseSummary, 0, len(repositories))
	for _, repo := range repositories {
		list := byRepo[repo.FullName]
		s := ReleaseSummary{
			Repository:   repo,
			Releases:     list,
			LatestStable: version.LatestStable(list),
			LatestBeta:   version.LatestBeta(list),
			Monthly:      CalculateMonthlyReleaseStats(list, now),
		}
		if s.LatestStable != nil {
			s.StableStale = s.LatestBeta == nil && s.LatestStable.PublishedOrCreated().Before(now.AddDate(0, -1, 0))
		}
		if s.LatestBeta != nil {
			s.BetaStale = s.LatestBeta.PublishedOrCreated().Before(now.Add(-betaStaleAfter))
		}
		out = append(out, s)
	}
	return out
}

// WorkflowSummary is the CI view of one repository.
type WorkflowSummary struct {
	Repository model.RepositorySnapshot  `json:"repository"`
	Stats      WorkflowStats             `json:"stats"`
	Monthly    []WorkflowMonthlyStats    `json:"monthly"`
	Chart      []RunPoint                `json:"chart"`
	Recent     []model.WorkflowRunRecord `json:"recent"`
}

// SummarizeWorkflows builds the CI view for repositories that have runs.
func SummarizeWorkflows(repositories []model.RepositorySnapshot, runs []model.WorkflowRunRecord, now time.Time) []WorkflowSummary {
	byRepo := GroupByRepository(repositories, runs, nil, compareRunsByCreated)

	out := make([]WorkflowSummary, 0, len(repositories))
	for _, repo := range repositories {
		list := byRepo[repo.FullName]
		if len(list) == 0 {
			continue
		}
		out = append(out, WorkflowSummary{
			Repository: repo,
			Stats:      CalculateWorkflowStats(list),
			Monthly:    CalculateWorkflowMonthlyStats(list, now),
			Chart:      RunChartPoints(list, ChartRunLimit, now.Location()),
			Recent:     RecentRuns(list, RecentRunLimit),
		})
	}
	return out
}

// PackageCell is one repository's declared range for a tracked package.
type PackageCell struct {
	Repository string         `json:"repository"`
	Version    string         `json:"version"`
	Status     version.Status `json:"status"`
}

// PackageRow is one tracked package across all repositories.
type PackageRow struct {
	Package string        `json:"package"`
	Target  string        `json:"target,omitempty"`
	Cells   []PackageCell `json:"cells"`
}

// PackageMatrix compares tracked package versions across repositories.
type PackageMatrix struct {
	Repositories []string     `json:"repositories"`
	Rows         []PackageRow `json:"rows"`
}

// BuildPackageMatrix lays out one row per tracked package and one column per
// manifest, in the order given. Undeclared packages show version.Missing.
func BuildPackageMatrix(tracked []model.TrackedPackage, manifests []model.PackageManifestSnapshot) PackageMatrix {
	m := PackageMatrix{
		Repositories: make([]string, 0, len(manifests)),
		Rows:         make([]PackageRow, 0, len(tracked)),
	}
	for _, p := range manifests {
		m.Repositories = append(m.Repositories, p.RepoName)
	}

	for _, pkg := range tracked {
		row := PackageRow{Package: pkg.Name, Target: pkg.Target, Cells: make([]PackageCell, 0, len(manifests))}
		for _, p := range manifests {
			declared, ok := p.Version(pkg.Name)
			if !ok {
				declared = version.Missing
			}
			row.Cells = append(row.Cells, PackageCell{
				Repository: p.RepoName,
				Version:    declared,
				Status:     version.StatusOf(declared, pkg.Target),
			})
		}
		m.Rows = append(m.Rows, row)
	}
	return m
}
