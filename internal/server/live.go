package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"OpenCodeWeb/internal/chat"
	"OpenCodeWeb/internal/opencode"
	"OpenCodeWeb/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// clientFrame is what the browser sends over /ws
type clientFrame struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

type stateFrame struct {
	Type string `json:"type"`
	session.State
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// LiveHandler serves the browser view over a websocket. Every connection
// gets its own orchestrator and receives a state frame after each change.
type LiveHandler struct {
	remote       chat.Remote
	opts         []chat.Option
	defaultTitle string
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	conns        *Registry
}

// NewLiveHandler creates the websocket handler
func NewLiveHandler(remote chat.Remote, defaultTitle string, logger *slog.Logger, opts ...chat.Option) *LiveHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveHandler{
		remote:       remote,
		opts:         opts,
		defaultTitle: defaultTitle,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: NewRegistry(),
	}
}

// Connections returns the registry of open connections
func (h *LiveHandler) Connections() *Registry {
	return h.conns
}

type liveConn struct {
	id   string
	conn *websocket.Conn
	orch *chat.Orchestrator

	writeMu sync.Mutex
}

func (c *liveConn) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *liveConn) sendError(logger *slog.Logger, text string) {
	if err := c.send(errorFrame{Type: "error", Error: text}); err != nil {
		logger.Debug("failed to push error", "error", err, "message", text)
	}
}

// ServeHTTP upgrades the request and runs the connection until the client leaves
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to accept websocket", "error", err)
		return
	}

	opts := append([]chat.Option{chat.WithLogger(h.logger)}, h.opts...)
	lc := &liveConn{
		id:   uuid.NewString(),
		conn: conn,
		orch: chat.New(h.remote, opts...),
	}
	logger := h.logger.With("conn_id", lc.id)

	h.conns.Register(lc.id, lc)
	defer func() {
		h.conns.Remove(lc.id)
		lc.orch.Close()
		conn.Close()
		logger.Info("live connection closed")
	}()

	lc.orch.OnChange(func(state session.State) {
		if err := lc.send(stateFrame{Type: "state", State: state}); err != nil {
			logger.Debug("failed to push state", "error", err)
		}
	})

	logger.Info("live connection opened")
	if err := lc.send(stateFrame{Type: "state", State: lc.orch.Snapshot()}); err != nil {
		logger.Debug("failed to push initial state", "error", err)
		return
	}

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Debug("read error", "error", err)
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			lc.sendError(logger, "Invalid message format")
			continue
		}

		switch frame.Type {
		case "create_session":
			title := frame.Title
			if title == "" {
				title = h.defaultTitle
			}
			_, err = lc.orch.CreateSession(ctx, title)
		case "send_message":
			_, err = lc.orch.SendMessage(ctx, frame.Content)
		default:
			err = &ValidationError{Message: "Unknown message type"}
		}

		if err != nil {
			if !errors.Is(err, chat.ErrNoActiveSession) {
				logger.Error("live operation failed", "type", frame.Type, "error", err)
			}
			lc.sendError(logger, opencode.HandleError(err))
		}
	}
}
