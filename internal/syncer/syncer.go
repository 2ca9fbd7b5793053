// internal/syncer/syncer.go
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"repo-dashboard/internal/manifest"
	"repo-dashboard/internal/model"
	"repo-dashboard/internal/snapshot"
)

// GitHub is the subset of the GitHub client the syncer depends on.
type GitHub interface {
	GetRepository(ctx context.Context, owner, name string) (*model.RepositorySnapshot, error)
	ListReleases(ctx context.Context, repo *model.RepositorySnapshot) ([]model.ReleaseRecord, error)
	ListCompletedWorkflowRuns(ctx context.Context, repo *model.RepositorySnapshot) ([]model.WorkflowRunRecord, error)
	GetFileContents(ctx context.Context, owner, name, path string) ([]byte, error)
}

// SnapshotWriter persists a completed snapshot.
type SnapshotWriter interface {
	Write(ctx context.Context, s snapshot.Snapshot) error
}

// Options configures a Syncer.
type Options struct {
	Repositories   []model.RepoIdentifier
	WorkflowName   string
	WorkflowBranch string
	ManifestPath   string
	Interval       time.Duration
	Clock          clockwork.Clock
	// OnSnapshot is called after every successful write.
	OnSnapshot func(model.Metadata)
}

// Syncer orchestrates the fetching and writing of snapshots.
type Syncer struct {
	ghClient GitHub
	writer   SnapshotWriter
	logger   *slog.Logger
	opts     Options
	clock    clockwork.Clock
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(ghClient GitHub, writer SnapshotWriter, logger *slog.Logger, opts Options) *Syncer {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Syncer{
		ghClient: ghClient,
		writer:   writer,
		logger:   logger,
		opts:     opts,
		clock:    clock,
	}
}

// Start runs a cycle immediately and then on every interval tick until ctx ends.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting syncer", "interval", s.opts.Interval.String(), "repositories", len(s.opts.Repositories))
	ticker := s.clock.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.runSyncCycle(ctx) // Initial sync

	for {
		select {
		case <-ticker.Chan():
			s.runSyncCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

func (s *Syncer) runSyncCycle(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Sync cycle failed", "error", err)
	}
}

// RunOnce fetches every configured repository in order and writes the snapshot.
// A repository whose metadata cannot be fetched is skipped; failures on its
// releases, runs or manifest leave that kind empty. Only cancellation or a
// failed write make the cycle fail.
func (s *Syncer) RunOnce(ctx context.Context) (model.Metadata, error) {
	id := uuid.NewString()
	logger := s.logger.With("snapshot_id", id)
	logger.Info("Starting new sync cycle")

	snap := snapshot.Snapshot{
		Repositories: []model.RepositorySnapshot{},
		Releases:     []model.ReleaseRecord{},
		WorkflowRuns: []model.WorkflowRunRecord{},
		Packages:     []model.PackageManifestSnapshot{},
	}

	for _, repoID := range s.opts.Repositories {
		if err := ctx.Err(); err != nil {
			logger.Warn("Sync cycle cancelled, snapshot not written", "reason", err)
			return model.Metadata{}, err
		}
		s.syncRepo(ctx, logger, repoID, &snap)
	}

	completed := s.clock.Now().UTC()
	snap.Metadata = model.Metadata{LastUpdated: &completed, SnapshotID: id}

	if err := s.writer.Write(ctx, snap); err != nil {
		return model.Metadata{}, fmt.Errorf("failed to write snapshot: %w", err)
	}

	logger.Info("Sync cycle finished",
		"repositories", len(snap.Repositories),
		"releases", len(snap.Releases),
		"workflow_runs", len(snap.WorkflowRuns),
		"packages", len(snap.Packages),
	)

	if s.opts.OnSnapshot != nil {
		s.opts.OnSnapshot(snap.Metadata)
	}
	return snap.Metadata, nil
}

// syncRepo collects one repository into snap.
func (s *Syncer) syncRepo(ctx context.Context, logger *slog.Logger, id model.RepoIdentifier, snap *snapshot.Snapshot) {
	logger = logger.With("owner", id.Owner, "repo", id.Name)
	logger.Info("Syncing repository")

	repo, err := s.ghClient.GetRepository(ctx, id.Owner, id.Name)
	if err != nil {
		logger.Error("Failed to fetch repository, skipping", "error", err)
		return
	}
	snap.Repositories = append(snap.Repositories, *repo)

	releases, err := s.ghClient.ListReleases(ctx, repo)
	if err != nil {
		logger.Error("Failed to fetch releases", "error", err)
	} else {
		snap.Releases = append(snap.Releases, releases...)
		logger.Info("Fetched releases", "count", len(releases))
	}

	runs, err := s.ghClient.ListCompletedWorkflowRuns(ctx, repo)
	if err != nil {
		logger.Error("Failed to fetch workflow runs", "error", err)
	} else {
		filtered := filterRuns(runs, s.opts.WorkflowName, s.opts.WorkflowBranch)
		snap.WorkflowRuns = append(snap.WorkflowRuns, filtered...)
		logger.Info("Fetched workflow runs", "count", len(filtered), "workflow", s.opts.WorkflowName, "branch", s.opts.WorkflowBranch)
	}

	pkg, err := s.fetchManifest(ctx, repo)
	if err != nil {
		logger.Error("Failed to fetch manifest", "path", s.opts.ManifestPath, "error", err)
	} else {
		snap.Packages = append(snap.Packages, *pkg)
		logger.Info("Fetched manifest", "path", s.opts.ManifestPath)
	}
}

func (s *Syncer) fetchManifest(ctx context.Context, repo *model.RepositorySnapshot) (*model.PackageManifestSnapshot, error) {
	data, err := s.ghClient.GetFileContents(ctx, repo.Owner.Login, repo.Name, s.opts.ManifestPath)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, err
	}
	return &model.PackageManifestSnapshot{
		RepoFullName:    repo.FullName,
		RepoName:        repo.Name,
		Dependencies:    m.Dependencies,
		DevDependencies: m.DevDependencies,
		NodeVersion:     m.NodeVersion,
		YarnVersion:     m.YarnVersion,
		PackageManager:  m.PackageManager,
	}, nil
}

// filterRuns keeps the runs of one workflow on one branch.
func filterRuns(runs []model.WorkflowRunRecord, name, branch string) []model.WorkflowRunRecord {
	out := make([]model.WorkflowRunRecord, 0, len(runs))
	for _, r := range runs {
		if r.Name == name && r.HeadBranch == branch {
			out = append(out, r)
		}
	}
	return out
}
