// internal/snapshot/store.go
package snapshot

import (
	"context"
	"fmt"

	"repo-dashboard/internal/config"
)

// File names making up one snapshot, in write order.
const (
	RepositoriesFile = "repositories.json"
	ReleasesFile     = "releases.json"
	WorkflowRunsFile = "workflow-runs.json"
	PackagesFile     = "packages.json"
	MetadataFile     = "metadata.json"
)

// Store persists named snapshot files. Read returns custom_errors.ErrSnapshotNotFound
// for a name that was never written.
type Store interface {
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
}

// NewStore builds the backend selected by cfg.SnapshotBackend.
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.SnapshotBackend {
	case config.BackendFile:
		return NewFileStore(cfg.DataDir)
	case config.BackendS3:
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}
