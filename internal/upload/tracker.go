package upload

import "sync"

// Tracker holds the ordered statuses of the current batch and publishes
// a fresh copy after every change.
type Tracker struct {
	mu       sync.Mutex
	statuses []FileStatus
	publish  func([]FileStatus)
}

// NewTracker creates a tracker; publish may be nil
func NewTracker(publish func([]FileStatus)) *Tracker {
	return &Tracker{publish: publish}
}

// Reset replaces the previous batch with one status per name
func (t *Tracker) Reset(names []string, state State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	statuses := make([]FileStatus, len(names))
	for i, name := range names {
		statuses[i] = FileStatus{Name: name, State: state}
	}
	t.statuses = statuses
	t.publishLocked()
}

// Promote moves every file in state from to state to, publishing once
func (t *Tracker) Promote(from, to State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.snapshotLocked()
	for i := range next {
		if next[i].State == from {
			next[i].State = to
		}
	}
	t.statuses = next
	t.publishLocked()
}

// Set resolves the file at index
func (t *Tracker) Set(index int, state State, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.statuses) {
		return
	}
	next := t.snapshotLocked()
	next[index].State = state
	next[index].Detail = detail
	t.statuses = next
	t.publishLocked()
}

// Statuses returns a copy of the current batch
func (t *Tracker) Statuses() []FileStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() []FileStatus {
	out := make([]FileStatus, len(t.statuses))
	copy(out, t.statuses)
	return out
}

func (t *Tracker) publishLocked() {
	if t.publish != nil {
		t.publish(t.snapshotLocked())
	}
}
