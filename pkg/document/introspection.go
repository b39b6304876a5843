package document

import (
	"github.com/aretw0/introspection"
)

// DocumentState exposes internal state for observability.
type DocumentState struct {
	Status      string `json:"status"`
	Package     string `json:"package,omitempty"`
	Attachments int    `json:"attachments"`
	Loads       int    `json:"loads"`
	Saves       int    `json:"saves"`
	LastError   string `json:"last_error,omitempty"`
}

// State implements introspection.Introspectable.
func (d *Document) State() any {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := DocumentState{
		Status:      d.status.String(),
		Attachments: len(d.attachments),
		Loads:       d.loads,
		Saves:       d.saves,
	}
	if d.root != nil {
		state.Package = d.root.Location()
	}
	if d.lastErr != nil {
		state.LastError = d.lastErr.Error()
	}
	return state
}

// ComponentType implements introspection.Component.
func (d *Document) ComponentType() string {
	return "document"
}

var _ introspection.Introspectable = (*Document)(nil)
var _ introspection.Component = (*Document)(nil)
