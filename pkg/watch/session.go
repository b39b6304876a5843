// Package watch implements the companion side of the note sync protocol: a
// session that lists, creates and loads notes by exchanging messages with the
// host over a pairing channel.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"
)

// Channel delivers one request message to the host and returns its reply.
type Channel interface {
	SendMessage(ctx context.Context, m Message) (Message, error)
}

// Session keeps the last summary list received from the host.
//
// Requests may run concurrently and replies may arrive in any order. The
// cached list is only written from reply handling, under the session lock.
type Session struct {
	channel Channel
	logger  *slog.Logger

	mu       sync.Mutex
	notes    []Summary
	requests int
	failures int
	lastErr  error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger used for request failures.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession returns a session sending over channel.
func NewSession(channel Channel, opts ...SessionOption) *Session {
	s := &Session{channel: channel}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Notes returns a copy of the cached summaries.
func (s *Session) Notes() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notes)
}

// ListNotes asks the host for every note and replaces the cache with the reply.
// On failure the returned list is empty and the cache is unchanged. A reply
// without a list is a failure (ErrMalformedReply), not an empty success, so
// callers can tell a broken host from an empty library.
func (s *Session) ListNotes(ctx context.Context) ([]Summary, error) {
	return s.exchangeList(ctx, Request{Type: ListAllNotes})
}

// CreateNote asks the host to create a note from text. The host replies with
// the updated list, which replaces the cache.
func (s *Session) CreateNote(ctx context.Context, text string) ([]Summary, error) {
	return s.exchangeList(ctx, Request{Type: CreateNote, Text: text})
}

// LoadNote fetches the text of the note at locator. The cache is not touched.
func (s *Session) LoadNote(ctx context.Context, locator string) (string, error) {
	reply, err := s.send(ctx, Request{Type: LoadNote, URL: locator})
	if err != nil {
		return "", err
	}
	text, err := ParseText(reply)
	if err != nil {
		s.record(err)
		return "", err
	}
	return text, nil
}

// RequestNoteList runs ListNotes in the background and calls done once with
// the result.
func (s *Session) RequestNoteList(ctx context.Context, done func([]Summary, error)) {
	s.async(ctx, "list", func(ctx context.Context) error {
		list, err := s.ListNotes(ctx)
		done(list, err)
		return err
	})
}

// RequestCreateNote runs CreateNote in the background and calls done once.
func (s *Session) RequestCreateNote(ctx context.Context, text string, done func([]Summary, error)) {
	s.async(ctx, "create", func(ctx context.Context) error {
		list, err := s.CreateNote(ctx, text)
		done(list, err)
		return err
	})
}

// RequestLoadNote runs LoadNote in the background and calls done once.
func (s *Session) RequestLoadNote(ctx context.Context, locator string, done func(string, error)) {
	s.async(ctx, "load", func(ctx context.Context) error {
		text, err := s.LoadNote(ctx, locator)
		done(text, err)
		return err
	})
}

func (s *Session) async(ctx context.Context, op string, fn func(context.Context) error) {
	lifecycle.Go(ctx, fn, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Debug("watch request failed", "op", op, "error", err)
	}))
}

func (s *Session) exchangeList(ctx context.Context, req Request) ([]Summary, error) {
	reply, err := s.send(ctx, req)
	if err != nil {
		return []Summary{}, err
	}
	list, err := ParseSummaries(reply)
	if err != nil {
		s.record(err)
		return []Summary{}, err
	}

	s.mu.Lock()
	s.notes = list
	s.mu.Unlock()
	return slices.Clone(list), nil
}

// send passes channel errors through unchanged.
func (s *Session) send(ctx context.Context, req Request) (Message, error) {
	s.mu.Lock()
	s.requests++
	s.mu.Unlock()

	reply, err := s.channel.SendMessage(ctx, req.Message())
	if err != nil {
		s.record(err)
		return nil, err
	}
	if reply == nil {
		err := fmt.Errorf("%w: empty reply to %q", ErrMalformedReply, req.Type)
		s.record(err)
		return nil, err
	}
	return reply, nil
}

func (s *Session) record(err error) {
	s.mu.Lock()
	s.failures++
	s.lastErr = err
	s.mu.Unlock()
}

// SessionState exposes internal state for observability.
type SessionState struct {
	Notes     int    `json:"notes"`
	Requests  int    `json:"requests"`
	Failures  int    `json:"failures"`
	LastError string `json:"last_error,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Session) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := SessionState{Notes: len(s.notes), Requests: s.requests, Failures: s.failures}
	if s.lastErr != nil {
		state.LastError = s.lastErr.Error()
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Session) ComponentType() string {
	return "watch-session"
}

var _ introspection.Introspectable = (*Session)(nil)
var _ introspection.Component = (*Session)(nil)

// ErrPairingClosed is returned by a Pairing after Close.
var ErrPairingClosed = errors.New("pairing closed")

// ChannelCloser is a Channel holding a connection that must be released.
type ChannelCloser interface {
	Channel
	Close() error
}

// Dialer opens the connection to the paired host.
type Dialer func(ctx context.Context) (ChannelCloser, error)

// Pairing is the one logical connection to the paired host. It dials on the
// first message and reuses the connection until Close. A failed dial is not
// cached; the next message dials again.
type Pairing struct {
	dial Dialer

	mu     sync.Mutex
	conn   ChannelCloser
	closed bool
}

// NewPairing returns an inactive pairing that activates through dial.
func NewPairing(dial Dialer) *Pairing {
	return &Pairing{dial: dial}
}

// SendMessage implements Channel.
func (p *Pairing) SendMessage(ctx context.Context, m Message) (Message, error) {
	conn, err := p.activate(ctx)
	if err != nil {
		return nil, err
	}
	return conn.SendMessage(ctx, m)
}

func (p *Pairing) activate(ctx context.Context) (ChannelCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPairingClosed
	}
	if p.conn != nil {
		return p.conn, nil
	}
	if p.dial == nil {
		return nil, fmt.Errorf("failed to activate pairing: no dialer")
	}
	conn, err := p.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to activate pairing: %w", err)
	}
	p.conn = conn
	return conn, nil
}

// Active reports whether the pairing holds a connection.
func (p *Pairing) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil
}

// Close releases the connection. Later messages fail with ErrPairingClosed.
func (p *Pairing) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

var (
	defaultMu      sync.Mutex
	defaultPairing *Pairing
)

// DefaultPairing returns the process-wide pairing, or nil if none was set.
func DefaultPairing() *Pairing {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultPairing
}

// SetDefaultPairing installs p as the process-wide pairing and returns the
// previous one, which the caller is responsible for closing.
func SetDefaultPairing(p *Pairing) *Pairing {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultPairing
	defaultPairing = p
	return prev
}
