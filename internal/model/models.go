// internal/model/models.go
package model

import (
	"time"
)

// RepositorySnapshot represents the metadata of a GitHub repository captured in one snapshot.
type RepositorySnapshot struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     *string   `json:"description"`
	HTMLURL         string    `json:"html_url"`
	Homepage        *string   `json:"homepage"`
	Language        *string   `json:"language"`
	StarsCount      int       `json:"stargazers_count"`
	WatchersCount   int       `json:"watchers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	PushedAt        time.Time `json:"pushed_at"`
	Topics          []string  `json:"topics"`
	License         *License  `json:"license"`
	Owner           Owner     `json:"owner"`
}

type License struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
}

type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// ReleaseRecord is one GitHub release belonging to a repository.
type ReleaseRecord struct {
	ID           int64      `json:"id"`
	RepoFullName string     `json:"repo_full_name"`
	RepoName     string     `json:"repo_name"`
	TagName      string     `json:"tag_name"`
	Name         *string    `json:"name"`
	Body         *string    `json:"body"`
	Prerelease   bool       `json:"prerelease"`
	Draft        bool       `json:"draft"`
	CreatedAt    time.Time  `json:"created_at"`
	PublishedAt  *time.Time `json:"published_at"`
	HTMLURL      string     `json:"html_url"`
	Author       Author     `json:"author"`
}

// PublishedOrCreated returns the publish date, falling back to the creation date for unpublished releases.
func (r ReleaseRecord) PublishedOrCreated() time.Time {
	if r.PublishedAt != nil && !r.PublishedAt.IsZero() {
		return *r.PublishedAt
	}
	return r.CreatedAt
}

type Author struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// Run conclusions reported by GitHub Actions that the dashboard distinguishes.
const (
	ConclusionSuccess = "success"
	ConclusionFailure = "failure"
)

// WorkflowRunRecord is one completed CI run of the tracked workflow.
type WorkflowRunRecord struct {
	ID              int64      `json:"id"`
	RepoFullName    string     `json:"repo_full_name"`
	RepoName        string     `json:"repo_name"`
	Name            string     `json:"name"`
	WorkflowID      int64      `json:"workflow_id"`
	Status          string     `json:"status"`
	Conclusion      string     `json:"conclusion"`
	RunNumber       int        `json:"run_number"`
	Event           string     `json:"event"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	RunStartedAt    *time.Time `json:"run_started_at"`
	DurationSeconds float64    `json:"duration_seconds"`
	HTMLURL         string     `json:"html_url"`
	HeadBranch      string     `json:"head_branch"`
}

// PackageManifestSnapshot holds the dependency ranges declared by one repository's manifest.
type PackageManifestSnapshot struct {
	RepoFullName    string            `json:"repo_full_name"`
	RepoName        string            `json:"repo_name"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	NodeVersion     *string           `json:"nodeVersion"`
	YarnVersion     *string           `json:"yarnVersion"`
	PackageManager  *string           `json:"packageManager"`
}

// Version returns the declared range for a package, checking direct dependencies first.
func (p PackageManifestSnapshot) Version(pkg string) (string, bool) {
	if v, ok := p.Dependencies[pkg]; ok && v != "" {
		return v, true
	}
	if v, ok := p.DevDependencies[pkg]; ok && v != "" {
		return v, true
	}
	return "", false
}

// Metadata records when the last snapshot was completed.
type Metadata struct {
	LastUpdated *time.Time `json:"lastUpdated"`
	SnapshotID  string     `json:"snapshotId,omitempty"`
}

// RepoIdentifier holds the owner and name of a repository.
type RepoIdentifier struct {
	Owner string `toml:"owner"`
	Name  string `toml:"repo"`
}

func (r RepoIdentifier) String() string {
	return r.Owner + "/" + r.Name
}

// TrackedPackage is a dependency monitored for version compliance.
// An empty Target means the package is shown without a compliance threshold.
type TrackedPackage struct {
	Name   string `toml:"name" json:"name"`
	Target string `toml:"target" json:"target,omitempty"`
}

// RepositoryKey returns the full name of the repository the release belongs to.
func (r ReleaseRecord) RepositoryKey() string { return r.RepoFullName }

// RepositoryKey returns the full name of the repository the run belongs to.
func (r WorkflowRunRecord) RepositoryKey() string { return r.RepoFullName }

// RepositoryKey returns the full name of the repository the manifest belongs to.
func (p PackageManifestSnapshot) RepositoryKey() string { return p.RepoFullName }
