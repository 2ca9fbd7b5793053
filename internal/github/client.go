// internal/github/client.go
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"repo-dashboard/internal/model"
)

// Single page size for list endpoints; follow-up pages are never requested.
const perPage = 100

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance.
// A non-empty token is sent as a bearer credential on every request; an empty
// token leaves requests unauthenticated and subject to the anonymous rate limit.
func NewClient(token string, logger *slog.Logger) *Client {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		hc = oauth2.NewClient(context.Background(), ts)
	}

	gh := github.NewClient(hc)
	gh.UserAgent = "repo-dashboard"

	return &Client{
		gh:     gh,
		logger: logger,
	}
}

// WithBaseURL points the client at another API root, such as a GitHub Enterprise server.
func (c *Client) WithBaseURL(baseURL string) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
	}
	c.gh.BaseURL = u
	return c, nil
}

// GetRepository fetches repository details and translates them to our internal model.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*model.RepositorySnapshot, error) {
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	return toInternalRepository(repo), nil
}

// ListReleases fetches the first page of releases for a repository.
func (c *Client) ListReleases(ctx context.Context, repo *model.RepositorySnapshot) ([]model.ReleaseRecord, error) {
	c.logger.Debug("Fetching releases", "repo", repo.FullName)

	releases, _, err := c.gh.Repositories.ListReleases(ctx, repo.Owner.Login, repo.Name, &github.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, err
	}

	out := make([]model.ReleaseRecord, 0, len(releases))
	for _, r := range releases {
		out = append(out, toInternalRelease(repo, r))
	}
	return out, nil
}

// ListCompletedWorkflowRuns fetches the first page of completed workflow runs for a repository.
func (c *Client) ListCompletedWorkflowRuns(ctx context.Context, repo *model.RepositorySnapshot) ([]model.WorkflowRunRecord, error) {
	c.logger.Debug("Fetching workflow runs", "repo", repo.FullName)

	opts := &github.ListWorkflowRunsOptions{
		Status:      "completed",
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	runs, _, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, repo.Owner.Login, repo.Name, opts)
	if err != nil {
		return nil, err
	}

	out := make([]model.WorkflowRunRecord, 0, len(runs.WorkflowRuns))
	for _, r := range runs.WorkflowRuns {
		out = append(out, toInternalWorkflowRun(repo, r))
	}
	return out, nil
}

// GetFileContents fetches a file from the default branch and returns its decoded content.
func (c *Client) GetFileContents(ctx context.Context, owner, name, path string) ([]byte, error) {
	c.logger.Debug("Fetching file contents", "owner", owner, "repo", name, "path", path)

	file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, name, path, nil)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%s in %s/%s is not a file", path, owner, name)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return []byte(content), nil
}

// toInternalRepository translates a github.Repository object to our internal model.RepositorySnapshot.
func toInternalRepository(r *github.Repository) *model.RepositorySnapshot {
	snap := &model.RepositorySnapshot{
		ID:              r.GetID(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Description:     r.Description,
		HTMLURL:         r.GetHTMLURL(),
		Homepage:        r.Homepage,
		Language:        r.Language,
		StarsCount:      r.GetStargazersCount(),
		WatchersCount:   r.GetWatchersCount(),
		ForksCount:      r.GetForksCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		CreatedAt:       r.GetCreatedAt().Time,
		UpdatedAt:       r.GetUpdatedAt().Time,
		PushedAt:        r.GetPushedAt().Time,
		Topics:          r.Topics,
		Owner: model.Owner{
			Login:     r.GetOwner().GetLogin(),
			AvatarURL: r.GetOwner().GetAvatarURL(),
			HTMLURL:   r.GetOwner().GetHTMLURL(),
		},
	}
	if snap.Topics == nil {
		snap.Topics = []string{}
	}
	if snap.FullName == "" {
		snap.FullName = snap.Owner.Login + "/" + snap.Name
	}
	if l := r.GetLicense(); l != nil {
		snap.License = &model.License{Key: l.GetKey(), Name: l.GetName(), SPDXID: l.GetSPDXID()}
	}
	return snap
}

// toInternalRelease translates a github.RepositoryRelease object to our internal model.ReleaseRecord.
func toInternalRelease(repo *model.RepositorySnapshot, r *github.RepositoryRelease) model.ReleaseRecord {
	return model.ReleaseRecord{
		ID:           r.GetID(),
		RepoFullName: repo.FullName,
		RepoName:     repo.Name,
		TagName:      r.GetTagName(),
		Name:         r.Name,
		Body:         r.Body,
		Prerelease:   r.GetPrerelease(),
		Draft:        r.GetDraft(),
		CreatedAt:    r.GetCreatedAt().Time,
		PublishedAt:  toTimePtr(r.PublishedAt),
		HTMLURL:      r.GetHTMLURL(),
		Author: model.Author{
			Login:     r.GetAuthor().GetLogin(),
			AvatarURL: r.GetAuthor().GetAvatarURL(),
		},
	}
}

// toInternalWorkflowRun translates a github.WorkflowRun object to our internal model.WorkflowRunRecord.
// The duration runs from run start (creation when the start is unknown) to the last update.
func toInternalWorkflowRun(repo *model.RepositorySnapshot, r *github.WorkflowRun) model.WorkflowRunRecord {
	started := toTimePtr(r.RunStartedAt)
	start := r.GetCreatedAt().Time
	if started != nil {
		start = *started
	}
	updated := r.GetUpdatedAt().Time

	return model.WorkflowRunRecord{
		ID:              r.GetID(),
		RepoFullName:    repo.FullName,
		RepoName:        repo.Name,
		Name:            r.GetName(),
		WorkflowID:      r.GetWorkflowID(),
		Status:          r.GetStatus(),
		Conclusion:      r.GetConclusion(),
		RunNumber:       r.GetRunNumber(),
		Event:           r.GetEvent(),
		CreatedAt:       r.GetCreatedAt().Time,
		UpdatedAt:       updated,
		RunStartedAt:    started,
		DurationSeconds: updated.Sub(start).Seconds(),
		HTMLURL:         r.GetHTMLURL(),
		HeadBranch:      r.GetHeadBranch(),
	}
}

func toTimePtr(ts *github.Timestamp) *time.Time {
	if ts == nil || ts.Time.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}
