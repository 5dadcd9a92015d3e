// Package presence tracks which users currently hold at least one live
// realtime connection. The tracker is process-local and ephemeral; the
// storage layer mirrors transitions into Redis so presence survives
// horizontal scaling. A restart loses local state, which is acceptable
// because clients re-announce on reconnect.
package presence

import (
	"sort"
	"sync"
)

// Tracker maps user IDs to the set of their live connection IDs.
// Connection close events arrive concurrently, so all mutation is
// mutex-guarded.
type Tracker struct {
	mu    sync.RWMutex
	conns map[string]map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{conns: make(map[string]map[string]struct{})}
}

// Add registers a connection for a user and reports whether it was the
// user's first live connection (the online transition).
func (t *Tracker) Add(userID, connID string) (first bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		t.conns[userID] = set
	}
	set[connID] = struct{}{}
	return !ok
}

// Remove drops a connection and reports whether it was the user's last one
// (the offline transition). Removing an unknown pair is a no-op.
func (t *Tracker) Remove(userID, connID string) (last bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(t.conns, userID)
		return true
	}
	return false
}

func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns[userID]) > 0
}

// OnlineSet returns the IDs of all users with at least one live connection,
// sorted for stable output.
func (t *Tracker) OnlineSet() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.conns))
	for id := range t.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
