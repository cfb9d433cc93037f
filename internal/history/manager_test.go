package history

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chat/internal/storage"
)

const key = "chatHistory"

func newManager(t *testing.T, store storage.Store) *Manager {
	t.Helper()
	m := NewManager(store, key, zerolog.Nop())
	m.Load()
	return m
}

func fileStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func persisted(t *testing.T, s storage.Store) []Turn {
	t.Helper()
	data, ok, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, ok, "expected a persisted snapshot")
	var turns []Turn
	require.NoError(t, json.Unmarshal(data, &turns))
	return turns
}

func TestLoadMissingSnapshotStartsEmpty(t *testing.T) {
	m := newManager(t, fileStore(t))
	assert.Empty(t, m.Turns())
	assert.Equal(t, 0, m.Len())
}

func TestLoadMalformedSnapshotStartsEmpty(t *testing.T) {
	for name, raw := range map[string]string{
		"garbage":  "{not json",
		"object":   `{"question":"q"}`,
		"empty":    "",
		"wrongtyp": `[{"question":1}]`,
	} {
		t.Run(name, func(t *testing.T) {
			s := fileStore(t)
			require.NoError(t, s.Set(key, []byte(raw)))

			m := newManager(t, s)
			assert.Empty(t, m.Turns())
		})
	}
}

func TestAppendPersistsFullSnapshot(t *testing.T) {
	s := fileStore(t)
	m := newManager(t, s)

	t1 := NewTurn("q1", "a1", []string{"doc.pdf", "doc.pdf"})
	t2 := NewTurn("q2", "a2", nil)
	require.NoError(t, m.Append(t1))
	assert.Equal(t, []Turn{t1}, persisted(t, s))

	require.NoError(t, m.Append(t2))
	assert.Equal(t, m.Turns(), persisted(t, s))
	assert.Equal(t, []Turn{t1, t2}, m.Turns())
}

func TestPersistenceRoundTrip(t *testing.T) {
	s := fileStore(t)
	m := newManager(t, s)

	t1 := NewTurn("What is RAG?", "Retrieval-augmented generation.", []string{"intro.pdf"})
	t2 := NewTurn("Sources?", "None.", []string{})
	require.NoError(t, m.Append(t1))
	require.NoError(t, m.Append(t2))

	reloaded := newManager(t, s)
	assert.Equal(t, []Turn{t1, t2}, reloaded.Turns())
}

func TestEmptySourcesSerializeAsArray(t *testing.T) {
	s := fileStore(t)
	m := newManager(t, s)
	require.NoError(t, m.Append(Turn{Question: "q", Answer: "a"}))

	data, _, err := s.Get(key)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"question":"q","answer":"a","sources":[]}]`, string(data))
}

func TestClearIsIdempotent(t *testing.T) {
	s := fileStore(t)
	m := newManager(t, s)
	require.NoError(t, m.Append(NewTurn("q", "a", nil)))

	require.NoError(t, m.Clear())
	assert.Empty(t, m.Turns())
	_, ok, err := s.Get(key)
	require.NoError(t, err)
	assert.False(t, ok, "clear must remove the snapshot, not write an empty one")

	require.NoError(t, m.Clear())
	assert.Empty(t, m.Turns())
	_, ok, _ = s.Get(key)
	assert.False(t, ok)
}

func TestClearOnEmptyHistory(t *testing.T) {
	m := newManager(t, fileStore(t))
	require.NoError(t, m.Clear())
	assert.Empty(t, m.Turns())
}

func TestTurnsReturnsCopy(t *testing.T) {
	m := newManager(t, fileStore(t))
	require.NoError(t, m.Append(NewTurn("q", "a", []string{"s"})))

	turns := m.Turns()
	turns[0].Sources[0] = "changed"
	turns[0] = Turn{Question: "changed"}
	assert.Equal(t, "q", m.Turns()[0].Question)
	assert.Equal(t, []string{"s"}, m.Turns()[0].Sources)
}

type failingRemoveStore struct {
	storage.Store
}

func (failingRemoveStore) Remove(string) error {
	return errors.New("disk full")
}

func TestClearKeepsHistoryWhenRemoveFails(t *testing.T) {
	s := fileStore(t)
	m := newManager(t, failingRemoveStore{Store: s})
	require.NoError(t, m.Append(NewTurn("q", "a", nil)))

	require.Error(t, m.Clear())
	assert.Equal(t, 1, m.Len())
	assert.Len(t, persisted(t, s), 1)
}

func TestNewTurnCopiesSources(t *testing.T) {
	src := []string{"a"}
	turn := NewTurn("q", "a", src)
	src[0] = "b"
	assert.Equal(t, []string{"a"}, turn.Sources)
}
