package watch

import (
	"context"
	"fmt"
)

// Host is the storage side of the protocol.
type Host interface {
	ListNotes(ctx context.Context) ([]Summary, error)
	LoadNote(ctx context.Context, locator string) (string, error)
	// CreateNote stores a new note and returns the full updated list.
	CreateNote(ctx context.Context, text string) ([]Summary, error)
}

// Responder answers request messages on behalf of a Host.
type Responder struct {
	host Host
}

// NewResponder returns a responder backed by host.
func NewResponder(host Host) *Responder {
	return &Responder{host: host}
}

// Respond decodes m, runs it against the host and encodes the reply.
func (r *Responder) Respond(ctx context.Context, m Message) (Message, error) {
	req, err := ParseRequest(m)
	if err != nil {
		return nil, err
	}

	switch req.Type {
	case ListAllNotes:
		list, err := r.host.ListNotes(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list notes: %w", err)
		}
		return SummariesMessage(list), nil
	case CreateNote:
		list, err := r.host.CreateNote(ctx, req.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to create note: %w", err)
		}
		return SummariesMessage(list), nil
	case LoadNote:
		text, err := r.host.LoadNote(ctx, req.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to load note %s: %w", req.URL, err)
		}
		return TextMessage(text), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, req.Type)
}

// SendMessage implements Channel, so a Responder can stand in for a remote
// host in process.
func (r *Responder) SendMessage(ctx context.Context, m Message) (Message, error) {
	return r.Respond(ctx, m)
}

var _ Channel = (*Responder)(nil)
