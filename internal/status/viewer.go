package status

import (
	"sync"

	"github.com/anonto42/onlyme/internal/models"
)

// ViewerState is a snapshot of the viewer. Open is false in the Closed state.
type ViewerState struct {
	Open   bool           `json:"open"`
	Index  int            `json:"index"`
	Total  int            `json:"total"`
	Status *models.Status `json:"status,omitempty"`
}

// Viewer pages through one author's statuses. It starts Closed.
type Viewer struct {
	mu      sync.Mutex
	group   []models.Status
	index   int
	viewing bool
}

// Open starts viewing group at index. An empty group or an out of range
// index leaves the viewer Closed.
func (v *Viewer) Open(group []models.Status, index int) ViewerState {
	v.mu.Lock()
	defer v.mu.Unlock()

	if index < 0 || index >= len(group) {
		v.reset()
		return v.state()
	}
	v.group = group
	v.index = index
	v.viewing = true
	return v.state()
}

// Next advances to the following status, closing the viewer after the last.
func (v *Viewer) Next() ViewerState {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.viewing {
		return v.state()
	}
	if v.index < len(v.group)-1 {
		v.index++
	} else {
		v.reset()
	}
	return v.state()
}

// Previous steps back. On the first status it does nothing.
func (v *Viewer) Previous() ViewerState {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.viewing && v.index > 0 {
		v.index--
	}
	return v.state()
}

func (v *Viewer) Close() ViewerState {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reset()
	return v.state()
}

func (v *Viewer) Current() ViewerState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state()
}

func (v *Viewer) reset() {
	v.group = nil
	v.index = 0
	v.viewing = false
}

func (v *Viewer) state() ViewerState {
	if !v.viewing {
		return ViewerState{}
	}
	st := v.group[v.index]
	return ViewerState{Open: true, Index: v.index, Total: len(v.group), Status: &st}
}
