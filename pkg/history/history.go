// Package history keeps a bounded per-client stack of canvas snapshots with a cursor
// for undo and redo. It never touches the shared document itself: callers apply the
// snapshots Undo and Redo return.
package history

import (
	"errors"
	"sync"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultCapacity is the number of snapshots kept when none is configured.
const DefaultCapacity = 50

// Manager is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	entries  []board.Snapshot
	cursor   int
	capacity int
}

// NewManager creates a history holding at most capacity snapshots.
func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{capacity: capacity, cursor: -1}
}

// SaveState records s as the newest state. Any redo tail is dropped and the oldest
// entry is evicted once the stack is over capacity.
func (m *Manager) SaveState(s board.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries[:m.cursor+1], s.Clone())
	if excess := len(m.entries) - m.capacity; excess > 0 {
		m.entries = append([]board.Snapshot(nil), m.entries[excess:]...)
	}
	m.cursor = len(m.entries) - 1
}

// Undo moves the cursor back one entry and returns the state found there.
func (m *Manager) Undo() (board.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor <= 0 {
		return board.Snapshot{}, ErrNothingToUndo
	}
	m.cursor--
	return m.entries[m.cursor].Clone(), nil
}

// Redo moves the cursor forward one entry and returns the state found there.
func (m *Manager) Redo() (board.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor >= len(m.entries)-1 {
		return board.Snapshot{}, ErrNothingToRedo
	}
	m.cursor++
	return m.entries[m.cursor].Clone(), nil
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor < len(m.entries)-1
}

// Len returns the number of stored snapshots.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Current returns the state under the cursor.
func (m *Manager) Current() (board.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor < 0 {
		return board.Snapshot{}, false
	}
	return m.entries[m.cursor].Clone(), true
}

// Clear drops every entry.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.cursor = -1
}
