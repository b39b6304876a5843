package library

import (
	"github.com/aretw0/introspection"
)

// LibraryState exposes internal state for observability.
type LibraryState struct {
	Dir      string `json:"dir"`
	Notes    int    `json:"notes"`
	Open     int    `json:"open"`
	Watching bool   `json:"watching"`
	Sync     bool   `json:"sync"`
}

// State implements introspection.Introspectable.
func (l *Library) State() any {
	l.mu.Lock()
	open := len(l.docs)
	l.mu.Unlock()

	return LibraryState{
		Dir:      l.dir,
		Notes:    l.index.Len(),
		Open:     open,
		Watching: l.watching.Load(),
		Sync:     l.syncer != nil,
	}
}

// ComponentType implements introspection.Component.
func (l *Library) ComponentType() string {
	return "library"
}

var _ introspection.Introspectable = (*Library)(nil)
var _ introspection.Component = (*Library)(nil)
