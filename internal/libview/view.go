// Package libview holds the client's view of the server library.
package libview

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// View is the ordered list of track titles last announced by the server.
// Every update replaces the list wholesale. Safe for concurrent use.
type View struct {
	mu      sync.RWMutex
	titles  []string
	updates chan []string
}

// New creates an empty view.
func New() *View {
	return &View{updates: make(chan []string, 1)}
}

// Replace installs titles as the whole library. Server order is kept and
// repeated titles collapse to their first occurrence; empty titles are
// dropped.
func (v *View) Replace(titles []string) {
	next := lo.Uniq(lo.Filter(titles, func(t string, _ int) bool { return t != "" }))

	v.mu.Lock()
	v.titles = next
	v.mu.Unlock()

	snapshot := slices.Clone(next)
	// Keep only the newest update for a slow reader.
	select {
	case v.updates <- snapshot:
		return
	default:
	}
	select {
	case <-v.updates:
	default:
	}
	select {
	case v.updates <- snapshot:
	default:
	}
}

// Titles returns a copy of the current list.
func (v *View) Titles() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.titles)
}

// Contains reports whether title is in the library.
func (v *View) Contains(title string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Contains(v.titles, title)
}

// Len returns the number of titles.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.titles)
}

// Updates delivers the list after each Replace. Intermediate lists are
// dropped when the reader falls behind.
func (v *View) Updates() <-chan []string {
	return v.updates
}
