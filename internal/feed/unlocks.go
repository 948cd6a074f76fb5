package feed

import "sync"

// Unlocks is the session-only set of private posts the user has paid to
// reveal. It is never persisted.
type Unlocks struct {
	mu  sync.RWMutex
	ids map[string]struct{}

	// spend serializes unlock payments across every list of a scope.
	spend sync.Mutex
}

func NewUnlocks() *Unlocks {
	return &Unlocks{ids: make(map[string]struct{})}
}

func (u *Unlocks) Has(postID string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.ids[postID]
	return ok
}

func (u *Unlocks) Add(postID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ids[postID] = struct{}{}
}

func (u *Unlocks) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.ids)
}

// Clear forgets every unlock. Called on logout.
func (u *Unlocks) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ids = make(map[string]struct{})
}
