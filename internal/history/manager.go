package history

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"rag-chat/internal/storage"
)

// Manager handles conversation history persistence.
//
// The whole history is written on every mutation, so each append costs
// O(total history size). That is fine for interactive conversations.
type Manager struct {
	store  storage.Store
	key    string
	logger zerolog.Logger

	mu    sync.RWMutex
	turns []Turn
}

// NewManager creates a new history manager persisting under key
func NewManager(store storage.Store, key string, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		key:    key,
		logger: logger,
		turns:  []Turn{},
	}
}

// Load rehydrates history from the store.
// A missing or unreadable snapshot leaves history empty; Load never fails.
func (m *Manager) Load() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = []Turn{}

	data, ok, err := m.store.Get(m.key)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", m.key).Msg("history snapshot unreadable, starting empty")
		return
	}
	if !ok {
		return
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		m.logger.Warn().Err(err).Str("key", m.key).Msg("history snapshot malformed, starting empty")
		return
	}
	for i := range turns {
		if turns[i].Sources == nil {
			turns[i].Sources = []string{}
		}
	}
	m.turns = turns
	m.logger.Debug().Int("turns", len(turns)).Msg("history loaded")
}

// Append adds a turn and persists the full snapshot
func (m *Manager) Append(turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make([]Turn, len(m.turns), len(m.turns)+1)
	copy(next, m.turns)
	next = append(next, NewTurn(turn.Question, turn.Answer, turn.Sources))
	m.turns = next

	return m.saveUnlocked()
}

// Clear empties history and removes the persisted snapshot
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Remove(m.key); err != nil {
		return fmt.Errorf("failed to remove history: %w", err)
	}
	m.turns = []Turn{}
	return nil
}

// Turns returns a deep copy of the history in chronological order
func (m *Manager) Turns() []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Turn, len(m.turns))
	for i, t := range m.turns {
		out[i] = NewTurn(t.Question, t.Answer, t.Sources)
	}
	return out
}

// Len returns the number of turns
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// saveUnlocked saves without acquiring the lock (must be called with lock held)
func (m *Manager) saveUnlocked() error {
	data, err := json.Marshal(m.turns)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := m.store.Set(m.key, data); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}
