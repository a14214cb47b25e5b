package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atinyakov/taskboard/internal/middleware"
	"github.com/atinyakov/taskboard/internal/models"
)

// maxLiveMessage bounds a single request frame on the live channel.
const maxLiveMessage = 64 << 10

// ConnState is the lifecycle stage of a live connection.
type ConnState int

const (
	// Disconnected is the state before a handshake and after close.
	Disconnected ConnState = iota
	// Handshaking means the upgrade request is being authorized.
	Handshaking
	// Connected means the upgrade succeeded and requests are served.
	Connected
	// Rejected means the handshake was refused.
	Rejected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Handshaking:
		return "handshaking"
	case Connected:
		return "connected"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// LiveTaskService is the read-only view of tasks offered on the live channel.
type LiveTaskService interface {
	Statuses() []string
	List(ctx context.Context, filter *int) ([]models.Task, error)
}

// LiveHandler serves GET /ws. The handshake gate runs in front of it, so
// the request context already carries the caller's identity. Each text
// frame is one request and gets exactly one reply carrying the same id.
type LiveHandler struct {
	TaskService LiveTaskService
	Logger      *zap.Logger
	Upgrader    websocket.Upgrader
}

type liveRequest struct {
	ID     int    `json:"id"`
	Op     string `json:"op"`
	Filter *int   `json:"filter,omitempty"`
}

type liveResponse struct {
	ID     int    `json:"id"`
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

// liveConn tracks one connection through its states.
type liveConn struct {
	user  string
	state ConnState
	log   *zap.Logger
}

func (c *liveConn) set(s ConnState) {
	c.log.Info("live connection",
		zap.String("user", c.user),
		zap.Stringer("from", c.state),
		zap.Stringer("to", s),
	)
	c.state = s
}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentityFromContext(r.Context())
	c := &liveConn{user: id.Username, state: Disconnected, log: h.Logger}
	c.set(Handshaking)

	ws, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		c.set(Rejected)
		return
	}
	c.set(Connected)
	defer func() {
		ws.Close()
		c.set(Disconnected)
	}()

	ws.SetReadLimit(maxLiveMessage)
	ctx := r.Context()

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.Logger.Warn("live connection read failed", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if err := ws.WriteJSON(h.dispatch(ctx, data)); err != nil {
			h.Logger.Warn("live connection write failed", zap.Error(err))
			return
		}
	}
}

func (h *LiveHandler) dispatch(ctx context.Context, data []byte) liveResponse {
	var req liveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return liveResponse{Error: "invalid request"}
	}

	switch req.Op {
	case "statuses":
		return liveResponse{ID: req.ID, Result: h.TaskService.Statuses()}
	case "tasks":
		tasks, err := h.TaskService.List(ctx, req.Filter)
		if err != nil {
			h.Logger.Error("live tasks failed", zap.Error(err))
			return liveResponse{ID: req.ID, Error: "internal error"}
		}
		return liveResponse{ID: req.ID, Result: tasks}
	default:
		return liveResponse{ID: req.ID, Error: "unknown op " + req.Op}
	}
}
