// internal/snapshot/snapshot_test.go
package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-dashboard/internal/cache"
	custom_errors "repo-dashboard/internal/errors"
	"repo-dashboard/internal/model"
)

// memStore is an in-memory Store that records write order and read counts.
type memStore struct {
	mu       sync.Mutex
	files    map[string][]byte
	order    []string
	reads    map[string]int
	failOn   string
	readFail error
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}, reads: map[string]int{}}
}

func (s *memStore) Write(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == s.failOn {
		return errors.New("disk full")
	}
	s.files[name] = data
	s.order = append(s.order, name)
	return nil
}

func (s *memStore) Read(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[name]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.readFail != nil {
		return nil, s.readFail
	}
	data, ok := s.files[name]
	if !ok {
		return nil, custom_errors.ErrSnapshotNotFound
	}
	return data, nil
}

func (s *memStore) readCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[name]
}

// blockingStore holds every Read until release is closed.
type blockingStore struct {
	*memStore
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) Read(ctx context.Context, name string) ([]byte, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.memStore.Read(ctx, name)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestWriter_Write(t *testing.T) {
	ctx := context.Background()
	updated := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("writes every file in order", func(t *testing.T) {
		store := newMemStore()
		err := NewWriter(store).Write(ctx, Snapshot{
			Repositories: []model.RepositorySnapshot{{ID: 1, Name: "drive", FullName: "cozy/drive", Topics: []string{}}},
			Metadata:     model.Metadata{LastUpdated: &updated, SnapshotID: "abc"},
		})

		require.NoError(t, err)
		assert.Equal(t, []string{RepositoriesFile, ReleasesFile, WorkflowRunsFile, PackagesFile, MetadataFile}, store.order)
		assert.Equal(t, "[]", string(store.files[ReleasesFile]))
		assert.Equal(t, "[]", string(store.files[WorkflowRunsFile]))
		assert.Equal(t, "[]", string(store.files[PackagesFile]))
		assert.Equal(t, "{\n  \"lastUpdated\": \"2024-06-15T12:00:00Z\",\n  \"snapshotId\": \"abc\"\n}", string(store.files[MetadataFile]))
		assert.Contains(t, string(store.files[RepositoriesFile]), "\n    \"full_name\": \"cozy/drive\"")
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		store := newMemStore()
		store.failOn = WorkflowRunsFile

		err := NewWriter(store).Write(ctx, Snapshot{})

		require.Error(t, err)
		assert.Equal(t, []string{RepositoriesFile, ReleasesFile}, store.order)
	})
}

func TestReader(t *testing.T) {
	ctx := context.Background()

	newReader := func(store Store, clock clockwork.Clock) *Reader {
		return NewReader(store, cache.New(clock, time.Hour), time.Hour, testLogger())
	}

	t.Run("reads what the writer wrote", func(t *testing.T) {
		store := newMemStore()
		updated := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
		require.NoError(t, NewWriter(store).Write(ctx, Snapshot{
			Repositories: []model.RepositorySnapshot{{Name: "drive", FullName: "cozy/drive"}},
			Releases:     []model.ReleaseRecord{{ID: 1, RepoFullName: "cozy/drive", TagName: "v1.0.0"}},
			WorkflowRuns: []model.WorkflowRunRecord{{ID: 2, RepoFullName: "cozy/drive", Conclusion: model.ConclusionSuccess}},
			Packages:     []model.PackageManifestSnapshot{{RepoFullName: "cozy/drive", Dependencies: map[string]string{"react": "^18.0.0"}}},
			Metadata:     model.Metadata{LastUpdated: &updated},
		}))

		r := newReader(store, clockwork.NewFakeClock())

		assert.Equal(t, "cozy/drive", r.GetRepositories(ctx)[0].FullName)
		assert.Equal(t, "v1.0.0", r.GetReleases(ctx)[0].TagName)
		assert.Equal(t, int64(2), r.GetWorkflowRuns(ctx)[0].ID)
		assert.Equal(t, "^18.0.0", r.GetPackages(ctx)[0].Dependencies["react"])
		require.NotNil(t, r.GetMetadata(ctx).LastUpdated)
		assert.True(t, updated.Equal(*r.GetMetadata(ctx).LastUpdated))
	})

	t.Run("missing files yield empty values", func(t *testing.T) {
		r := newReader(newMemStore(), clockwork.NewFakeClock())

		assert.NotNil(t, r.GetRepositories(ctx))
		assert.Empty(t, r.GetRepositories(ctx))
		assert.Empty(t, r.GetReleases(ctx))
		assert.Empty(t, r.GetWorkflowRuns(ctx))
		assert.Empty(t, r.GetPackages(ctx))
		assert.Nil(t, r.GetMetadata(ctx).LastUpdated)
	})

	t.Run("corrupt files yield empty values", func(t *testing.T) {
		store := newMemStore()
		store.files[ReleasesFile] = []byte(`{not json`)
		r := newReader(store, clockwork.NewFakeClock())

		assert.Empty(t, r.GetReleases(ctx))
	})

	t.Run("store errors yield empty values", func(t *testing.T) {
		store := newMemStore()
		store.readFail = errors.New("permission denied")
		r := newReader(store, clockwork.NewFakeClock())

		assert.Empty(t, r.GetWorkflowRuns(ctx))
	})

	t.Run("serves from cache until expiry or clear", func(t *testing.T) {
		store := newMemStore()
		clock := clockwork.NewFakeClock()
		r := newReader(store, clock)
		store.files[ReleasesFile] = []byte(`[{"id": 1}]`)

		assert.Len(t, r.GetReleases(ctx), 1)
		store.files[ReleasesFile] = []byte(`[{"id": 1}, {"id": 2}]`)
		assert.Len(t, r.GetReleases(ctx), 1)
		assert.Equal(t, 1, store.readCount(ReleasesFile))

		r.ClearCache()
		assert.Len(t, r.GetReleases(ctx), 2)
		assert.Equal(t, 2, store.readCount(ReleasesFile))

		store.files[ReleasesFile] = []byte(`[]`)
		clock.Advance(time.Hour)
		assert.Empty(t, r.GetReleases(ctx))
		assert.Equal(t, 3, store.readCount(ReleasesFile))
	})

	t.Run("null files yield empty collections", func(t *testing.T) {
		store := newMemStore()
		store.files[ReleasesFile] = []byte("null\n")
		store.files[MetadataFile] = []byte("null")
		r := newReader(store, clockwork.NewFakeClock())

		releases := r.GetReleases(ctx)
		assert.NotNil(t, releases)
		assert.Empty(t, releases)
		assert.Nil(t, r.GetMetadata(ctx).LastUpdated)
	})

	t.Run("a cancelled request does not empty a shared read", func(t *testing.T) {
		store := &blockingStore{memStore: newMemStore(), started: make(chan struct{}), release: make(chan struct{})}
		store.files[ReleasesFile] = []byte(`[{"id": 1}]`)
		r := newReader(store, clockwork.NewFakeClock())

		reqCtx, cancelReq := context.WithCancel(ctx)
		cancelled := make(chan []model.ReleaseRecord, 1)
		go func() { cancelled <- r.GetReleases(reqCtx) }()
		<-store.started

		live := make(chan []model.ReleaseRecord, 1)
		go func() { live <- r.GetReleases(ctx) }()
		// Give the live reader time to join the in-flight read.
		time.Sleep(50 * time.Millisecond)

		cancelReq()
		assert.Empty(t, <-cancelled)

		close(store.release)
		assert.Len(t, <-live, 1)
		assert.Equal(t, 1, store.readCount(ReleasesFile))
		assert.Len(t, r.GetReleases(ctx), 1, "the shared read is cached")
	})

	t.Run("cancelled reads are not cached", func(t *testing.T) {
		store := newMemStore()
		store.files[ReleasesFile] = []byte(`[{"id": 1}]`)
		r := newReader(store, clockwork.NewFakeClock())

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.Empty(t, r.GetReleases(cctx))
		assert.Len(t, r.GetReleases(ctx), 1)
	})
}
