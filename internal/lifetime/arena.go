// Package lifetime tracks GPU objects in creation order so they can be
// released in reverse, exactly once.
package lifetime

import (
	log "github.com/sirupsen/logrus"
)

type entry struct {
	name    string
	release func()
}

// Arena records release functions in the order objects were created.
// Release runs them newest-first. An Arena is not safe for concurrent use.
type Arena struct {
	name    string
	entries []entry
}

// NewArena creates an empty arena. The name only shows up in debug logs.
func NewArena(name string) *Arena {
	return &Arena{name: name}
}

// Track registers release as the teardown for the object called name.
// A nil release is ignored.
func (a *Arena) Track(name string, release func()) {
	if release == nil {
		return
	}
	a.entries = append(a.entries, entry{name: name, release: release})
}

// Len reports how many objects are still owned by the arena.
func (a *Arena) Len() int {
	return len(a.entries)
}

// Names lists the tracked objects in creation order.
func (a *Arena) Names() []string {
	names := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		names = append(names, e.name)
	}
	return names
}

// Release tears down every tracked object in reverse creation order and
// empties the arena, so calling it twice is harmless.
func (a *Arena) Release() {
	for i := len(a.entries) - 1; i >= 0; i-- {
		e := a.entries[i]
		a.entries[i] = entry{}
		log.WithField("arena", a.name).Debugf("releasing %s", e.name)
		e.release()
	}
	a.entries = a.entries[:0]
}
