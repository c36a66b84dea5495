package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/livebox/internal/domain/console"
	"github.com/GriffinCanCode/livebox/internal/domain/workspace"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 20
	updateBuffer   = 1024
	outboundBuffer = 64
)

// Rebuilder forces a preview rebuild
type Rebuilder interface {
	Rebuild()
}

// ClientMessage is a message from the editor
type ClientMessage struct {
	Type     string              `json:"type"`
	Fragment string              `json:"fragment,omitempty"`
	Text     *string             `json:"text,omitempty"`
	Bundle   *types.SourceBundle `json:"bundle,omitempty"`
}

// ServerMessage is a message to the editor
type ServerMessage struct {
	Type      string               `json:"type"`
	ClientID  string               `json:"client_id,omitempty"`
	Message   string               `json:"message,omitempty"`
	Update    *console.Update      `json:"update,omitempty"`
	Entries   []types.ConsoleEvent `json:"entries,omitempty"`
	Workspace *workspace.Snapshot  `json:"workspace,omitempty"`
	Bundle    *types.SourceBundle  `json:"bundle,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

// Handler streams console activity and accepts edits over WebSocket
type Handler struct {
	store    *workspace.Store
	engine   Rebuilder
	metrics  *monitoring.Metrics
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. An empty origins list
// accepts every origin.
func NewHandler(store *workspace.Store, engine Rebuilder, metrics *monitoring.Metrics, log *zap.Logger, origins ...string) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handler{
		store:   store,
		engine:  engine,
		metrics: metrics,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

// HandleConnection upgrades the request and serves one editor client
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:       uuid.NewString(),
		conn:     conn,
		handler:  h,
		outbound: make(chan ServerMessage, outboundBuffer),
		log:      h.log.With(zap.String("client_id", "")),
	}
	cl.log = h.log.With(zap.String("client_id", cl.id))

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	cl.log.Info("WebSocket client connected")

	cl.serve(c.Request.Context())
	cl.log.Info("WebSocket client disconnected")
}

// client is one connection. Only the write loop writes to conn.
type client struct {
	id       string
	conn     *websocket.Conn
	handler  *Handler
	outbound chan ServerMessage
	log      *zap.Logger
}

func (cl *client) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer cl.conn.Close()

	updates, backlog, unsubscribe := cl.handler.store.Console().SubscribeWithBacklog(updateBuffer)
	defer unsubscribe()

	stopObserving := cl.handler.store.Observe(func(b types.SourceBundle) {
		cl.enqueue(ServerMessage{Type: "workspace", Bundle: &b})
	})
	defer stopObserving()

	snapshot := cl.handler.store.Snapshot()
	cl.enqueue(ServerMessage{
		Type:      "welcome",
		ClientID:  cl.id,
		Message:   "Connected to livebox",
		Workspace: &snapshot,
		Entries:   backlog,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		cl.writeLoop(ctx, updates)
	}()

	cl.readLoop()
	cancel()
	<-done
}

func (cl *client) enqueue(msg ServerMessage) {
	msg.Timestamp = time.Now().Unix()
	select {
	case cl.outbound <- msg:
	default:
		cl.log.Warn("WebSocket outbound buffer full, dropping message", zap.String("type", msg.Type))
	}
}

func (cl *client) readLoop() {
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.log.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			cl.enqueue(ServerMessage{Type: "error", Message: "invalid message format"})
			continue
		}
		cl.record("inbound", msg.Type)
		cl.handle(msg)
	}
}

func (cl *client) handle(msg ClientMessage) {
	store := cl.handler.store

	switch msg.Type {
	case "edit":
		switch {
		case msg.Bundle != nil:
			store.SetBundle(*msg.Bundle)
		case msg.Text != nil:
			fragment, ok := types.ParseFragment(msg.Fragment)
			if !ok {
				cl.enqueue(ServerMessage{Type: "error", Message: "unknown fragment"})
				return
			}
			store.SetFragment(fragment, *msg.Text)
		default:
			cl.enqueue(ServerMessage{Type: "error", Message: "edit requires a bundle or a fragment text"})
			return
		}
		cl.enqueue(ServerMessage{Type: "ack", Message: "edit"})
	case "clear":
		store.ClearConsole()
		cl.enqueue(ServerMessage{Type: "ack", Message: "clear"})
	case "run":
		cl.handler.engine.Rebuild()
		cl.enqueue(ServerMessage{Type: "ack", Message: "run"})
	case "ping":
		cl.enqueue(ServerMessage{Type: "pong"})
	default:
		cl.enqueue(ServerMessage{Type: "error", Message: "unknown message type"})
	}
}

func (cl *client) writeLoop(ctx context.Context, updates <-chan console.Update) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = cl.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case u := <-updates:
			if err := cl.write(ServerMessage{Type: "console", Update: &u, Timestamp: time.Now().Unix()}); err != nil {
				return
			}
		case msg := <-cl.outbound:
			if err := cl.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (cl *client) write(msg ServerMessage) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		cl.log.Error("Failed to encode WebSocket message", zap.Error(err))
		return nil
	}
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		cl.log.Debug("WebSocket write failed", zap.Error(err))
		cl.conn.Close()
		return err
	}
	cl.record("outbound", msg.Type)
	return nil
}

func (cl *client) record(direction, msgType string) {
	if cl.handler.metrics != nil {
		cl.handler.metrics.RecordWSMessage(direction, msgType)
	}
}
