package session

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chat/internal/history"
	"rag-chat/internal/storage"
	"rag-chat/internal/upload"
)

func newState(t *testing.T) (*State, *[]Snapshot) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	h := history.NewManager(store, "chatHistory", zerolog.Nop())
	h.Load()

	s := New(h)
	var seen []Snapshot
	s.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })
	return s, &seen
}

func TestEveryMutationPublishesNewVersion(t *testing.T) {
	s, seen := newState(t)

	s.SetQuestion("q")
	s.BeginAsk("q")
	s.SetInProgress("He")
	s.EndStream()
	require.NoError(t, s.FinishTurn(history.NewTurn("q", "He", []string{"a"})))

	require.Len(t, *seen, 5)
	for i, snap := range *seen {
		assert.Equal(t, uint64(i+1), snap.Version)
	}
	assert.True(t, (*seen)[1].Loading)
	assert.Equal(t, "He", (*seen)[2].InProgress)
	assert.False(t, (*seen)[3].Loading)

	last := (*seen)[4]
	assert.Empty(t, last.InProgress)
	assert.Empty(t, last.Question)
	assert.Equal(t, []string{"a"}, last.Sources)
	assert.Equal(t, []history.Turn{history.NewTurn("q", "He", []string{"a"})}, last.History)
}

func TestFailAskKeepsQuestion(t *testing.T) {
	s, _ := newState(t)
	boom := errors.New("connection refused")

	s.BeginAsk("why?")
	s.SetInProgress("partial")
	s.FailAsk(boom)

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, boom, snap.Err)
	assert.Empty(t, snap.InProgress)
	assert.Equal(t, "why?", snap.Question)
	assert.Empty(t, snap.History)

	s.BeginAsk("why?")
	assert.NoError(t, s.Snapshot().Err)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s, seen := newState(t)
	s.SetUploads([]upload.FileStatus{{Name: "a", State: upload.Uploading}})

	(*seen)[0].Uploads[0].State = upload.Failed
	assert.Equal(t, upload.Uploading, s.Snapshot().Uploads[0].State)
}

func TestSnapshotHistoryIsIsolated(t *testing.T) {
	s, seen := newState(t)
	require.NoError(t, s.FinishTurn(history.NewTurn("q", "a", []string{"doc.pdf"})))

	last := (*seen)[len(*seen)-1]
	last.History[0].Sources[0] = "changed"
	last.Sources[0] = "changed"

	snap := s.Snapshot()
	assert.Equal(t, []string{"doc.pdf"}, snap.History[0].Sources)
	assert.Equal(t, []string{"doc.pdf"}, snap.Sources)
}

func TestClearHistory(t *testing.T) {
	s, _ := newState(t)
	require.NoError(t, s.FinishTurn(history.NewTurn("q", "a", nil)))

	require.NoError(t, s.ClearHistory())
	require.NoError(t, s.ClearHistory())
	assert.Empty(t, s.Snapshot().History)
}
