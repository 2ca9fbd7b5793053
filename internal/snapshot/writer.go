// internal/snapshot/writer.go
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"repo-dashboard/internal/model"
)

// Snapshot is everything collected by one fetch cycle.
type Snapshot struct {
	Repositories []model.RepositorySnapshot
	Releases     []model.ReleaseRecord
	WorkflowRuns []model.WorkflowRunRecord
	Packages     []model.PackageManifestSnapshot
	Metadata     model.Metadata
}

// Writer serializes snapshots into a Store.
type Writer struct {
	store Store
}

func NewWriter(store Store) *Writer {
	return &Writer{store: store}
}

// Write stores the five snapshot files in order. Files are replaced one at a
// time; a failure part way leaves the earlier files updated.
func (w *Writer) Write(ctx context.Context, s Snapshot) error {
	files := []struct {
		name  string
		value any
	}{
		{RepositoriesFile, orEmpty(s.Repositories)},
		{ReleasesFile, orEmpty(s.Releases)},
		{WorkflowRunsFile, orEmpty(s.WorkflowRuns)},
		{PackagesFile, orEmpty(s.Packages)},
		{MetadataFile, s.Metadata},
	}

	for _, f := range files {
		data, err := json.MarshalIndent(f.value, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		if err := w.store.Write(ctx, f.name, data); err != nil {
			return err
		}
	}
	return nil
}

// orEmpty makes nil collections encode as [] instead of null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
