// Package lifecycle exposes library change events as a lifecycle.Source.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/notes/pkg/library"
)

type librarySource struct {
	events <-chan library.Event
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits library change events.
func NewSource(events <-chan library.Event) lifecycle.Source {
	return &librarySource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
}

func (s *librarySource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start forwards events until ctx is done or the library stops watching, then
// closes Events.
func (s *librarySource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
