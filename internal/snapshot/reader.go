// internal/snapshot/reader.go
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"repo-dashboard/internal/cache"
	custom_errors "repo-dashboard/internal/errors"
	"repo-dashboard/internal/model"
)

// readTimeout bounds a single store read shared by concurrent callers.
const readTimeout = 30 * time.Second

// Reader serves the latest snapshot through a TTL cache. Read failures are
// logged and replaced by empty values, which are cached like real data.
type Reader struct {
	store  Store
	cache  *cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewReader(store Store, c *cache.Cache, ttl time.Duration, logger *slog.Logger) *Reader {
	return &Reader{store: store, cache: c, ttl: ttl, logger: logger}
}

func (r *Reader) GetRepositories(ctx context.Context) []model.RepositorySnapshot {
	return readCached(ctx, r, RepositoriesFile, []model.RepositorySnapshot{})
}

func (r *Reader) GetReleases(ctx context.Context) []model.ReleaseRecord {
	return readCached(ctx, r, ReleasesFile, []model.ReleaseRecord{})
}

func (r *Reader) GetWorkflowRuns(ctx context.Context) []model.WorkflowRunRecord {
	return readCached(ctx, r, WorkflowRunsFile, []model.WorkflowRunRecord{})
}

func (r *Reader) GetPackages(ctx context.Context) []model.PackageManifestSnapshot {
	return readCached(ctx, r, PackagesFile, []model.PackageManifestSnapshot{})
}

// GetMetadata returns the snapshot metadata; LastUpdated is nil when no snapshot exists.
func (r *Reader) GetMetadata(ctx context.Context) model.Metadata {
	return readCached(ctx, r, MetadataFile, model.Metadata{})
}

// ClearCache drops every cached file so the next read goes to the store.
func (r *Reader) ClearCache() {
	r.cache.Clear()
}

func readCached[T any](ctx context.Context, r *Reader, name string, empty T) T {
	v, err := cache.Fetch(ctx, r.cache, name, r.ttl, func(ctx context.Context) (T, error) {
		return decodeFile(ctx, r, name, empty), nil
	})
	if err != nil {
		r.logger.Warn("Snapshot read interrupted", "file", name, "error", err)
		return empty
	}
	return v
}

// decodeFile never fails: missing, unreadable or corrupt files yield empty.
// ctx is shared by every caller waiting on the read, so it is bounded here
// rather than by any single request.
func decodeFile[T any](ctx context.Context, r *Reader, name string, empty T) T {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	data, err := r.store.Read(ctx, name)
	if err != nil {
		if errors.Is(err, custom_errors.ErrSnapshotNotFound) {
			r.logger.Warn("Snapshot file missing", "file", name)
		} else {
			r.logger.Error("Error reading snapshot file", "file", name, "error", err)
		}
		return empty
	}

	// A literal null would decode to a nil slice and be served as null.
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		r.logger.Warn("Snapshot file is null", "file", name)
		return empty
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		r.logger.Error("Error decoding snapshot file", "file", name, "error", err)
		return empty
	}
	return out
}
