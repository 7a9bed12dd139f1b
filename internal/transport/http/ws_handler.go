package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/TsegabAbreham/MovieApp/internal/core"
	"github.com/TsegabAbreham/MovieApp/internal/utils"
)

// WSHandler upgrades HTTP connections and runs one session per connection.
type WSHandler struct {
	registry    *core.Registry
	enforceHost bool
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, enforceHost bool, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{registry: registry, enforceHost: enforceHost, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sess := newSession(h.registry, h.enforceHost, utils.NewID(), h.log)
	// Disconnect is an implicit leave: same cleanup and failover path.
	defer sess.leave()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sess)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", sess.connID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop consumes raw frames. Frames are parsed by the session so that a
// malformed frame drops the message, not the connection.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *session) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		sess.handleFrame(data)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *session) error {
	for {
		select {
		case frame := <-sess.send:
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				h.log.Error().Err(err).Str("conn_id", sess.connID).Msg("write ws frame")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
