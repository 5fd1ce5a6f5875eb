package live

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send buffer full")
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxInboundBytes = 4096

	defaultSendBuffer = 16
)

// WebSocketConn adapts a gorilla connection to Conn. Outbound frames go
// through a bounded queue drained by writePump so Send never blocks.
type WebSocketConn struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

func newWebSocketConn(ws *websocket.Conn, buffer int) *WebSocketConn {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &WebSocketConn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *WebSocketConn) ID() string { return c.id }

func (c *WebSocketConn) Ready() bool { return !c.closed.Load() }

func (c *WebSocketConn) Send(frame []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSlowConsumer
	}
}

func (c *WebSocketConn) Close() error {
	var err error
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

func (c *WebSocketConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

// readPump discards client frames and returns once the peer goes away.
func (c *WebSocketConn) readPump() {
	defer c.Close()
	c.ws.SetReadLimit(maxInboundBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// HandlerConfig defines dependencies required by Handler.
type HandlerConfig struct {
	Registry       *Registry
	Logger         *log.Logger
	AllowedOrigins []string
	SendBuffer     int
}

// Handler は /ws へのアップグレード要求を受け付け、接続をレジストリへ登録する。
type Handler struct {
	registry   *Registry
	logger     *log.Logger
	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		registry:   cfg.Registry,
		logger:     cfg.Logger,
		sendBuffer: cfg.SendBuffer,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logf("live: upgrade failed: %v", err)
		return
	}

	conn := newWebSocketConn(ws, h.sendBuffer)
	go conn.writePump()

	welcome, _ := encodeEnvelope(Envelope{Type: TypeConnected, Message: WelcomeMessage})
	_ = conn.Send(welcome)

	h.registry.Add(conn)
	h.logf("live: client %s connected (total=%d)", conn.ID(), h.registry.Len())

	conn.readPump()

	h.registry.Remove(conn.ID())
	h.logf("live: client %s disconnected (total=%d)", conn.ID(), h.registry.Len())
}

func (h *Handler) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{})
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" || len(allowed) == 0 {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
