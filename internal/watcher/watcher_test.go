package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chat/internal/upload"
)

type recordingRunner struct {
	mu      sync.Mutex
	batches [][]string
	busy    bool
}

func (r *recordingRunner) Run(_ context.Context, files []upload.File) ([]upload.FileStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return nil, upload.ErrBatchInProgress
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	r.batches = append(r.batches, names)
	return nil, nil
}

func (r *recordingRunner) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string{}, r.batches...)
}

func TestWatcherUploadsNewDocuments(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	w, err := New(runner, []string{".pdf", ".TXT"}, 100*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx, dir)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.go"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("x"), 0644))

	require.Eventually(t, func() bool { return len(runner.snapshot()) > 0 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	var names []string
	for _, b := range runner.snapshot() {
		names = append(names, b...)
	}
	assert.ElementsMatch(t, []string{"a.pdf", "b.txt"}, names)
}

func TestFlushKeepsFilesQueuedWhileBatchRuns(t *testing.T) {
	runner := &recordingRunner{busy: true}
	w, err := New(runner, []string{".pdf"}, time.Second, zerolog.Nop())
	require.NoError(t, err)
	defer w.Stop()

	start := time.Now()
	w.pending["/docs/a.pdf"] = start

	w.flush(context.Background(), start.Add(500*time.Millisecond))
	assert.Len(t, w.pending, 1, "not quiet long enough")

	w.flush(context.Background(), start.Add(2*time.Second))
	assert.Len(t, w.pending, 1, "queued while another batch runs")
	assert.Empty(t, runner.snapshot())

	runner.mu.Lock()
	runner.busy = false
	runner.mu.Unlock()

	w.flush(context.Background(), start.Add(3*time.Second))
	assert.Empty(t, w.pending)
	assert.Equal(t, [][]string{{"a.pdf"}}, runner.snapshot())
}

func TestIsWatchedExtension(t *testing.T) {
	w := &Watcher{extensions: []string{".pdf", ".docx"}}
	assert.True(t, w.isWatchedExtension("/x/report.PDF"))
	assert.True(t, w.isWatchedExtension("notes.docx"))
	assert.False(t, w.isWatchedExtension("notes.txt"))
	assert.False(t, w.isWatchedExtension("/x/.~lock.docx"))
}
