package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/aretw0/lifecycle"
	"github.com/coder/websocket"

	"github.com/aretw0/notes/pkg/watch"
)

// Responder answers one request message.
type Responder interface {
	Respond(ctx context.Context, m watch.Message) (watch.Message, error)
}

// Handler serves the host end of the pairing channel. Requests on one
// connection are answered concurrently.
func Handler(r Responder, opts ...Option) http.Handler {
	o := newOptions(opts)

	var protocols []string
	for _, c := range watch.Codecs() {
		protocols = append(protocols, c.Name())
	}

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{
			Subprotocols: protocols,
			// Companions are not browsers; there is no origin to check.
			InsecureSkipVerify: true,
		})
		if err != nil {
			o.logger.Warn("websocket accept failed", "remote", req.RemoteAddr, "error", err)
			return
		}
		conn.SetReadLimit(ReadLimit)

		codec := o.codec
		if sub := conn.Subprotocol(); sub != "" {
			if c, err := watch.CodecByName(sub); err == nil {
				codec = c
			}
		}

		o.logger.Debug("companion connected", "remote", req.RemoteAddr, "codec", codec.Name())
		serve(req.Context(), conn, codec, r, o)
		o.logger.Debug("companion disconnected", "remote", req.RemoteAddr)
	})
}

func serve(ctx context.Context, conn *websocket.Conn, codec watch.Codec, r Responder, o options) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				o.logger.Debug("read failed", "error", err)
			}
			return
		}

		var req envelope
		if err := codec.Unmarshal(data, &req); err != nil {
			o.logger.Warn("dropping undecodable request", "error", err)
			continue
		}

		wg.Add(1)
		lifecycle.Go(ctx, func(ctx context.Context) error {
			defer wg.Done()
			return reply(ctx, conn, codec, r, req)
		}, lifecycle.WithErrorHandler(func(err error) {
			o.logger.Warn("failed to reply", "id", req.ID, "error", err)
		}))
	}
}

func reply(ctx context.Context, conn *websocket.Conn, codec watch.Codec, r Responder, req envelope) error {
	out := envelope{ID: req.ID}
	body, err := r.Respond(ctx, req.Body)
	if err != nil {
		out.Error = err.Error()
	} else {
		out.Body = body
	}

	data, err := codec.Marshal(out)
	if err != nil {
		return err
	}
	return conn.Write(ctx, messageType(codec), data)
}
