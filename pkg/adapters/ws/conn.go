// Package ws carries watch messages over a websocket connection.
//
// Each request is wrapped in an envelope with a fresh id. Replies echo the id,
// so any number of requests can be in flight on one connection and complete in
// any order.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/aretw0/notes/pkg/watch"
)

// ReadLimit bounds a single envelope.
const ReadLimit = 16 << 20

// ErrClosed is returned for requests on a closed connection.
var ErrClosed = errors.New("connection closed")

// RemoteError is an error reported by the host for one request.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "host: " + e.Message
}

type envelope struct {
	ID    string        `json:"id"`
	Body  watch.Message `json:"body,omitempty"`
	Error string        `json:"error,omitempty"`
}

// Option configures a client Conn or a server Handler.
type Option func(*options)

type options struct {
	logger *slog.Logger
	codec  watch.Codec
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCodec selects the wire codec. A client offers it as the subprotocol; a
// server falls back to it when the client offers none.
func WithCodec(c watch.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

func newOptions(opts []Option) options {
	o := options{codec: watch.JSON}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

func messageType(c watch.Codec) websocket.MessageType {
	if c.Name() == watch.JSON.Name() {
		return websocket.MessageText
	}
	return websocket.MessageBinary
}

// Conn is the companion end of the pairing channel.
type Conn struct {
	conn   *websocket.Conn
	codec  watch.Codec
	logger *slog.Logger
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]chan envelope
	closed  chan struct{}
	err     error
}

// Dial connects to the host endpoint at url.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	o := newOptions(opts)

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{o.codec.Name()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	conn.SetReadLimit(ReadLimit)

	codec := o.codec
	if sub := conn.Subprotocol(); sub != "" && sub != codec.Name() {
		if codec, err = watch.CodecByName(sub); err != nil {
			conn.Close(websocket.StatusProtocolError, "unsupported subprotocol")
			return nil, err
		}
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		conn:    conn,
		codec:   codec,
		logger:  o.logger,
		cancel:  cancel,
		pending: make(map[string]chan envelope),
		closed:  make(chan struct{}),
	}
	go c.readLoop(readCtx)

	o.logger.Debug("paired with host", "url", url, "codec", codec.Name())
	return c, nil
}

// SendMessage implements watch.Channel.
func (c *Conn) SendMessage(ctx context.Context, m watch.Message) (watch.Message, error) {
	select {
	case <-c.closed:
		return nil, c.closeErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	id := uuid.NewString()
	replies := make(chan envelope, 1)

	c.mu.Lock()
	c.pending[id] = replies
	c.mu.Unlock()
	defer c.forget(id)

	data, err := c.codec.Marshal(envelope{ID: id, Body: m})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	if err := c.conn.Write(ctx, messageType(c.codec), data); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, c.closeErr()
	case reply := <-replies:
		if reply.Error != "" {
			return nil, &RemoteError{Message: reply.Error}
		}
		return reply.Body, nil
	}
}

// Close ends the connection. Requests still waiting fail with ErrClosed.
func (c *Conn) Close() error {
	c.shutdown(ErrClosed)
	defer c.cancel()
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	if err != nil && websocket.CloseStatus(err) == -1 && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (c *Conn) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.shutdown(fmt.Errorf("%w: %w", ErrClosed, err))
			return
		}

		var reply envelope
		if err := c.codec.Unmarshal(data, &reply); err != nil {
			c.logger.Warn("dropping undecodable reply", "error", err)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[reply.ID]
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("dropping reply for unknown request", "id", reply.ID)
			continue
		}
		select {
		case ch <- reply:
		default:
		}
	}
}

func (c *Conn) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
	default:
		c.err = err
		close(c.closed)
	}
}

func (c *Conn) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

var _ watch.ChannelCloser = (*Conn)(nil)
