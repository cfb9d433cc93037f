// Package session holds the client's UI state in one versioned container.
//
// All mutations go through the methods below. Each one bumps the version and
// hands every subscriber an immutable Snapshot before returning, so a caller
// observes each transition immediately after the step that caused it.
package session

import (
	"sync"

	"rag-chat/internal/history"
	"rag-chat/internal/upload"
)

// Snapshot is a read-only copy of the state at one version
type Snapshot struct {
	Version    uint64
	Question   string
	InProgress string
	Loading    bool
	Err        error
	Sources    []string
	History    []history.Turn
	Uploads    []upload.FileStatus
}

// State owns the mutable session state.
// Subscribers run while the state is locked and must not call back into it.
type State struct {
	mu          sync.Mutex
	version     uint64
	question    string
	inProgress  string
	loading     bool
	err         error
	sources     []string
	uploads     []upload.FileStatus
	history     *history.Manager
	subscribers []func(Snapshot)
}

// New creates a state backed by a loaded history manager
func New(h *history.Manager) *State {
	return &State{history: h}
}

// Subscribe registers fn to receive every new snapshot
func (s *State) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Snapshot returns the current state
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SetQuestion updates the pending question input
func (s *State) SetQuestion(q string) {
	s.update(func() {
		s.question = q
	})
}

// BeginAsk resets the live answer and marks the session loading
func (s *State) BeginAsk(q string) {
	s.update(func() {
		s.question = q
		s.inProgress = ""
		s.sources = nil
		s.err = nil
		s.loading = true
	})
}

// SetInProgress publishes the answer accumulated so far
func (s *State) SetInProgress(text string) {
	s.update(func() {
		s.inProgress = text
	})
}

// EndStream clears the loading flag once the stream has finished
func (s *State) EndStream() {
	s.update(func() {
		s.loading = false
	})
}

// FailAsk records a failed ask. The question input is kept for a retry.
func (s *State) FailAsk(err error) {
	s.update(func() {
		s.loading = false
		s.inProgress = ""
		s.err = err
	})
}

// FinishTurn appends a finalized turn and clears the live answer and input.
// The turn is shown even if persisting it fails; that error is returned.
func (s *State) FinishTurn(turn history.Turn) error {
	var saveErr error
	s.update(func() {
		saveErr = s.history.Append(turn)
		s.sources = append([]string{}, turn.Sources...)
		s.inProgress = ""
		s.question = ""
	})
	return saveErr
}

// SetUploads replaces the tracked upload batch
func (s *State) SetUploads(statuses []upload.FileStatus) {
	s.update(func() {
		s.uploads = append([]upload.FileStatus{}, statuses...)
	})
}

// ClearHistory empties history and removes its persisted snapshot
func (s *State) ClearHistory() error {
	var err error
	s.update(func() {
		err = s.history.Clear()
		s.sources = nil
	})
	return err
}

func (s *State) update(mutate func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutate()
	s.version++

	snap := s.snapshotLocked()
	for _, fn := range s.subscribers {
		fn(snap)
	}
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:    s.version,
		Question:   s.question,
		InProgress: s.inProgress,
		Loading:    s.loading,
		Err:        s.err,
		Sources:    append([]string{}, s.sources...),
		Uploads:    append([]upload.FileStatus{}, s.uploads...),
	}
	if s.history != nil {
		snap.History = s.history.Turns()
	}
	return snap
}
