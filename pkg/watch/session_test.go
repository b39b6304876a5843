package watch_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notes/pkg/watch"
)

// fakeChannel answers requests from a function and records what was sent.
type fakeChannel struct {
	mu     sync.Mutex
	sent   []watch.Message
	reply  func(watch.Message) (watch.Message, error)
	closed bool
}

func (f *fakeChannel) SendMessage(ctx context.Context, m watch.Message) (watch.Message, error) {
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	return f.reply(m)
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func listReply(names ...string) watch.Message {
	list := make([]watch.Summary, 0, len(names))
	for i, n := range names {
		list = append(list, watch.NewSummary(n, fmt.Sprintf("note://%d", i+1)))
	}
	return watch.SummariesMessage(list)
}

func TestSession_RequestCreateNote(t *testing.T) {
	ch := &fakeChannel{reply: func(m watch.Message) (watch.Message, error) {
		return watch.Message{"list": []any{
			map[string]any{"name": m["text"], "url": "note://123"},
		}}, nil
	}}
	s := watch.NewSession(ch)

	done := make(chan []watch.Summary, 1)
	s.RequestCreateNote(context.Background(), "buy milk", func(list []watch.Summary, err error) {
		assert.NoError(t, err)
		done <- list
	})

	select {
	case list := <-done:
		require.Len(t, list, 1)
		assert.Equal(t, "buy milk", list[0].Name)
		assert.Equal(t, "note://123", list[0].Locator())
	case <-time.After(time.Second):
		t.Fatal("completion not called")
	}

	notes := s.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "buy milk", notes[0].Name)
	assert.Equal(t, "note://123", notes[0].Locator())
	assert.Equal(t, watch.Message{"msg": "create", "text": "buy milk"}, ch.sent[0])
}

func TestSession_ListReplacesCache(t *testing.T) {
	replies := []watch.Message{listReply("a", "b", "c"), listReply("d")}
	ch := &fakeChannel{reply: func(watch.Message) (watch.Message, error) {
		r := replies[0]
		replies = replies[1:]
		return r, nil
	}}
	s := watch.NewSession(ch)
	ctx := context.Background()

	_, err := s.ListNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, s.Notes(), 3)

	list, err := s.ListNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, s.Notes())
	require.Len(t, s.Notes(), 1)
	assert.Equal(t, "d", s.Notes()[0].Name)
}

func TestSession_ChannelFailure(t *testing.T) {
	lost := errors.New("pairing lost")
	fail := false
	ch := &fakeChannel{reply: func(watch.Message) (watch.Message, error) {
		if fail {
			return nil, lost
		}
		return listReply("kept"), nil
	}}
	s := watch.NewSession(ch)
	ctx := context.Background()

	_, err := s.ListNotes(ctx)
	require.NoError(t, err)

	fail = true
	done := make(chan struct{})
	s.RequestNoteList(ctx, func(list []watch.Summary, err error) {
		defer close(done)
		assert.Same(t, lost, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})
	<-done

	// The previous cache survives a failed request.
	require.Len(t, s.Notes(), 1)
	assert.Equal(t, "kept", s.Notes()[0].Name)

	state := s.State().(watch.SessionState)
	assert.Equal(t, 2, state.Requests)
	assert.Equal(t, 1, state.Failures)
	assert.Equal(t, "pairing lost", state.LastError)
}

func TestSession_MalformedReply(t *testing.T) {
	broken := false
	ch := &fakeChannel{reply: func(watch.Message) (watch.Message, error) {
		if broken {
			return watch.Message{"unexpected": true}, nil
		}
		return watch.SummariesMessage([]watch.Summary{watch.NewSummary("kept", "note://1")}), nil
	}}
	s := watch.NewSession(ch)
	_, err := s.ListNotes(context.Background())
	require.NoError(t, err)

	broken = true
	list, err := s.ListNotes(context.Background())
	assert.ErrorIs(t, err, watch.ErrMalformedReply)
	assert.Empty(t, list)
	require.Len(t, s.Notes(), 1)
	assert.Equal(t, "kept", s.Notes()[0].Name)

	_, err = s.LoadNote(context.Background(), "note://1")
	assert.ErrorIs(t, err, watch.ErrMalformedReply)
}

func TestSession_RequestLoadNote(t *testing.T) {
	ch := &fakeChannel{reply: func(m watch.Message) (watch.Message, error) {
		return watch.TextMessage("text of " + m["url"].(string)), nil
	}}
	s := watch.NewSession(ch)

	done := make(chan string, 1)
	s.RequestLoadNote(context.Background(), "note://7", func(text string, err error) {
		assert.NoError(t, err)
		done <- text
	})
	assert.Equal(t, "text of note://7", <-done)
	assert.Empty(t, s.Notes())
}

func TestSession_ConcurrentRequests(t *testing.T) {
	ch := &fakeChannel{reply: func(m watch.Message) (watch.Message, error) {
		if m["msg"] == "load" {
			return watch.TextMessage("x"), nil
		}
		return listReply("a", "b"), nil
	}}
	s := watch.NewSession(ch)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		s.RequestNoteList(ctx, func([]watch.Summary, error) { wg.Done() })
		s.RequestLoadNote(ctx, "note://1", func(string, error) { wg.Done() })
	}
	wg.Wait()

	assert.Len(t, s.Notes(), 2)
}

func TestSession_OverResponder(t *testing.T) {
	host := &memoryHost{}
	s := watch.NewSession(watch.NewResponder(host))
	ctx := context.Background()

	list, err := s.CreateNote(ctx, "first")
	require.NoError(t, err)
	require.Len(t, list, 1)

	text, err := s.LoadNote(ctx, list[0].Locator())
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	_, err = s.LoadNote(ctx, "note://404")
	assert.Error(t, err)
}

type memoryHost struct {
	notes []string
}

func (h *memoryHost) ListNotes(ctx context.Context) ([]watch.Summary, error) {
	out := make([]watch.Summary, 0, len(h.notes))
	for i, text := range h.notes {
		out = append(out, watch.NewSummary(strings.SplitN(text, "\n", 2)[0], fmt.Sprintf("note://%d", i)))
	}
	return out, nil
}

func (h *memoryHost) LoadNote(ctx context.Context, locator string) (string, error) {
	var i int
	if _, err := fmt.Sscanf(locator, "note://%d", &i); err != nil || i < 0 || i >= len(h.notes) {
		return "", fmt.Errorf("no note at %s", locator)
	}
	return h.notes[i], nil
}

func (h *memoryHost) CreateNote(ctx context.Context, text string) ([]watch.Summary, error) {
	h.notes = append(h.notes, text)
	return h.ListNotes(ctx)
}

func TestResponder_Unknown(t *testing.T) {
	r := watch.NewResponder(&memoryHost{})
	_, err := r.Respond(context.Background(), watch.Message{"msg": "sync"})
	assert.ErrorIs(t, err, watch.ErrUnknownMessage)
}

func TestPairing(t *testing.T) {
	dials := 0
	conn := &fakeChannel{reply: func(watch.Message) (watch.Message, error) {
		return listReply("a"), nil
	}}
	p := watch.NewPairing(func(ctx context.Context) (watch.ChannelCloser, error) {
		dials++
		if dials == 1 {
			return nil, errors.New("host unreachable")
		}
		return conn, nil
	})
	ctx := context.Background()
	assert.False(t, p.Active())

	_, err := p.SendMessage(ctx, watch.Request{Type: watch.ListAllNotes}.Message())
	require.Error(t, err)
	assert.False(t, p.Active())

	s := watch.NewSession(p)
	_, err = s.ListNotes(ctx)
	require.NoError(t, err)
	_, err = s.ListNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dials)
	assert.True(t, p.Active())

	require.NoError(t, p.Close())
	assert.True(t, conn.closed)

	_, err = s.ListNotes(ctx)
	assert.ErrorIs(t, err, watch.ErrPairingClosed)
}

func TestDefaultPairing(t *testing.T) {
	p := watch.NewPairing(nil)
	prev := watch.SetDefaultPairing(p)
	t.Cleanup(func() { watch.SetDefaultPairing(prev) })

	assert.Same(t, p, watch.DefaultPairing())
}
