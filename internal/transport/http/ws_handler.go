package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-live/internal/config"
	"github.com/vovakirdan/wirechat-live/internal/core"
)

var errKicked = errors.New("session kicked")

// WSHandler upgrades HTTP connections and bridges them to core sessions.
type WSHandler struct {
	hub *core.Hub
	cfg config.WSConfig
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg config.WSConfig, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, cfg: cfg, log: logger}
}

// hijackWriter returns the net/http writer underneath gin's, which buffers the
// status line and breaks frames written after the upgrade.
func hijackWriter(c *gin.Context) stdhttp.ResponseWriter {
	var w stdhttp.ResponseWriter = c.Writer
	if u, ok := c.Writer.(interface{ Unwrap() stdhttp.ResponseWriter }); ok {
		w = u.Unwrap()
	}
	return w
}

// Handle serves GET /ws/chat/:conversation_id?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "conversation not found"})
		return
	}

	conn, err := websocket.Accept(hijackWriter(c), c.Request, &websocket.AcceptOptions{
		OriginPatterns:     h.cfg.AllowedOrigins,
		InsecureSkipVerify: len(h.cfg.AllowedOrigins) == 0,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	ctx := c.Request.Context()
	session := h.hub.NewSession()

	if err := h.hub.Connect(ctx, session, c.Query("token"), conversationID); err != nil {
		h.hub.Disconnect(ctx, session)
		code, reason := core.CloseCodeFor(err)
		conn.Close(websocket.StatusCode(code), reason)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	h.hub.Disconnect(ctx, session)

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case errors.Is(err, errKicked):
		status = websocket.StatusGoingAway
		reason = "server shutting down"
	case err != nil && !errors.Is(err, context.Canceled):
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("session_id", session.ID()).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	limiter := newRateLimiter(h.cfg.RateLimit, h.cfg.RateBurst)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			h.log.Debug().Str("session_id", session.ID()).Msg("ignoring binary frame")
			continue
		}
		if !limiter.allow() {
			h.log.Warn().Str("session_id", session.ID()).Msg("rate limit exceeded, frame dropped")
			continue
		}

		cmd, err := commandFromFrame(data)
		if err != nil {
			h.log.Debug().Err(err).Str("session_id", session.ID()).Msg("ignoring malformed frame")
			continue
		}
		h.hub.HandleFrame(ctx, session, cmd)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	var ping <-chan time.Time
	if h.cfg.PingInterval > 0 {
		ticker := time.NewTicker(h.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case event := <-session.Events():
			out := outboundFromEvent(event)
			if out == nil {
				continue
			}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				h.log.Error().Err(err).Str("session_id", session.ID()).Msg("write ws event")
				return err
			}
		case <-ping:
			pingCtx, cancel := context.WithTimeout(ctx, h.cfg.PingInterval)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Info().Err(err).Str("session_id", session.ID()).Msg("ping failed")
				return err
			}
		case <-session.Kicked():
			return errKicked
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
