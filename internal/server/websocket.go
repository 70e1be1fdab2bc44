package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/auth"
	"github.com/hyperjump/matchfeed/internal/delivery"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 16
)

// handleDeliverySocket upgrades the connection and runs one delivery session on it. The token
// comes from the token query parameter or a bearer header. An unauthorized connection gets a
// REJECTED message and is closed with a policy-violation close code.
func (s *Server) handleDeliverySocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	session, err := s.sessions.Start(r.Context(), token)
	if err != nil {
		s.reject(conn, err)
		return
	}

	c := &socketClient{
		conn:    conn,
		session: session,
		send:    make(chan *delivery.Outbound, sendBuffer),
		done:    make(chan struct{}),
		logger:  s.logger.With(zap.String("session_id", session.ID())),
	}
	go c.writePump()
	c.readPump(r.Context())
}

func (s *Server) reject(conn *websocket.Conn, err error) {
	defer conn.Close()
	reason := "unauthorized"
	if !errors.Is(err, auth.ErrUnauthorized) {
		reason = "session could not be started"
	}
	data, _ := json.Marshal(delivery.RejectedMessage(reason))
	deadline := time.Now().Add(writeWait)
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
}

// socketClient pumps one connection. readPump owns the session; writePump owns writes.
type socketClient struct {
	conn    *websocket.Conn
	session *delivery.Session
	send    chan *delivery.Outbound
	done    chan struct{}
	logger  *zap.Logger
}

// enqueue hands msg to the writer; it reports false once the writer has stopped.
func (c *socketClient) enqueue(msg *delivery.Outbound) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (c *socketClient) readPump(ctx context.Context) {
	defer func() {
		c.session.Close()
		close(c.send)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("unexpected websocket close", zap.Error(err))
			}
			return
		}

		var msg delivery.Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			if !c.enqueue(delivery.ErrorMessage("invalid message")) {
				return
			}
			continue
		}
		out, err := c.session.Handle(ctx, msg)
		if err != nil {
			c.logger.Error("delivery failed", zap.String("type", msg.Type), zap.Error(err))
			out = delivery.ErrorMessage("delivery failed, retry")
		}
		if !c.enqueue(out) {
			return
		}
	}
}

func (c *socketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", zap.Error(err))
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				c.logger.Error("failed to encode message", zap.Error(err))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
