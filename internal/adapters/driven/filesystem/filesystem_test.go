package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven/mocks"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFingerprintStore_MissingFile(t *testing.T) {
	store := NewFingerprintStore(filepath.Join(t.TempDir(), "state", "fingerprints.json"))

	fps, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, fps)
	assert.Empty(t, fps)
}

func TestFingerprintStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewFingerprintStore(filepath.Join(dir, "state", "fingerprints.json"))
	ctx := context.Background()

	want := domain.FingerprintMap{
		"a.pdf": {Name: "a.pdf", Size: 1024, Modified: 1709283600.25, Path: "/docs/a.pdf"},
		"b.pdf": {Name: "b.pdf", Size: 2048, Modified: 1709283601, Path: "/docs/b.pdf"},
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Join(dir, "state"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// overwrite with a smaller map
	require.NoError(t, store.Save(ctx, domain.FingerprintMap{"b.pdf": want["b.pdf"]}))
	got, _ = store.Load(ctx)
	assert.Len(t, got, 1)
}

func TestFingerprintStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "fingerprints.json", "{not json")

	_, err := NewFingerprintStore(path).Load(context.Background())
	assert.Error(t, err)

	empty := writeFile(t, dir, "empty.json", "")
	fps, err := NewFingerprintStore(empty).Load(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, fps)
}

func TestFingerprintStore_Clear(t *testing.T) {
	dir := t.TempDir()
	store := NewFingerprintStore(filepath.Join(dir, "fingerprints.json"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.FingerprintMap{"a.pdf": {Name: "a.pdf"}}))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clearing twice is fine")

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestSource_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.pdf", "bbbb")
	writeFile(t, dir, "a.pdf", "aa")
	writeFile(t, dir, "upper.PDF", "ignored")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, ".hidden.pdf", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0755))
	writeFile(t, filepath.Join(dir, "nested.pdf"), "deep.pdf", "ignored")

	modTime := time.Date(2024, 3, 1, 9, 0, 0, 500_000_000, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "b.pdf"), modTime, modTime))

	source := NewSource(dir)
	assert.Equal(t, dir, source.Root())

	docs, err := source.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "a.pdf", docs[0].Name)
	assert.Equal(t, int64(2), docs[0].Size)
	assert.Equal(t, "b.pdf", docs[1].Name)
	assert.Equal(t, filepath.Join(dir, "b.pdf"), docs[1].Path)
	assert.Equal(t, int64(4), docs[1].Size)
	assert.InDelta(t, 1709283600.5, docs[1].Modified, 1e-3)
}

func TestIsEligible(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.pdf", true},
		{"Report 2024.pdf", true},
		{"report.PDF", false},
		{"report.Pdf", false},
		{"report.pdf.txt", false},
		{".report.pdf", false},
		{"pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEligible(tt.name); got != tt.want {
				t.Errorf("isEligible(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestSource_MissingDir(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	assert.Error(t, err)
}

func TestIsRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create pdf", fsnotify.Event{Name: "/docs/a.pdf", Op: fsnotify.Create}, true},
		{"write pdf", fsnotify.Event{Name: "/docs/a.pdf", Op: fsnotify.Write}, true},
		{"remove pdf", fsnotify.Event{Name: "/docs/a.pdf", Op: fsnotify.Remove}, true},
		{"rename pdf", fsnotify.Event{Name: "/docs/a.pdf", Op: fsnotify.Rename}, true},
		{"chmod pdf", fsnotify.Event{Name: "/docs/a.pdf", Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: "/docs/a.txt", Op: fsnotify.Create}, false},
		{"hidden pdf", fsnotify.Event{Name: "/docs/.a.pdf", Op: fsnotify.Write}, false},
		{"upper case extension", fsnotify.Event{Name: "/docs/A.PDF", Op: fsnotify.Create}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRelevant(tt.event))
		})
	}
}

func TestWatcher_DebouncesIntoOneSweep(t *testing.T) {
	dir := t.TempDir()
	queue := mocks.NewMockTaskQueue()

	w := NewWatcher(WatcherConfig{Dir: dir, TaskQueue: queue, Debounce: 200 * time.Millisecond})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	writeFile(t, dir, "a.pdf", "one")
	writeFile(t, dir, "b.pdf", "two")
	writeFile(t, dir, "ignored.txt", "three")

	assert.Eventually(t, func() bool { return len(queue.Pending()) == 1 }, 3*time.Second, 20*time.Millisecond)

	// quiet directory, no further tasks
	time.Sleep(400 * time.Millisecond)
	pending := queue.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, domain.TaskTypeSweep, pending[0].Type)
	assert.Equal(t, domain.TriggerWatcher, pending[0].Trigger)
}

func TestWatcher_StartErrors(t *testing.T) {
	w := NewWatcher(WatcherConfig{Dir: filepath.Join(t.TempDir(), "missing"), TaskQueue: mocks.NewMockTaskQueue()})
	assert.Error(t, w.Start(context.Background()))
	w.Stop() // not running, no-op
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(WatcherConfig{Dir: t.TempDir(), TaskQueue: mocks.NewMockTaskQueue()})
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()), "second start is a no-op")
	w.Stop()
	w.Stop()
}
