package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// RootState exposes internal state for observability.
type RootState struct {
	Path      string     `json:"path"`
	Writes    int        `json:"writes"`
	Removes   int        `json:"removes"`
	LastWrite *time.Time `json:"last_write,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Root) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RootState{
		Path:      r.Path,
		Writes:    r.writes,
		Removes:   r.removes,
		LastWrite: r.lastWrite,
	}
}

// ComponentType implements introspection.Component.
func (r *Root) ComponentType() string {
	return "package-root"
}

var _ introspection.Introspectable = (*Root)(nil)
var _ introspection.Component = (*Root)(nil)
