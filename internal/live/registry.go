// Package live fans newly stored reports out to connected WebSocket clients
// and to optional secondary sinks.
package live

import (
	"fmt"
	"log"
	"sync"
)

const (
	TypeConnected = "connected"
	TypeNewReport = "new_report"

	WelcomeMessage = "Connected to HushMap real-time updates"
)

// Envelope is the JSON frame sent to subscribers.
type Envelope struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Conn is one subscriber connection as seen by the registry.
type Conn interface {
	ID() string
	// Ready reports whether the connection is open and accepting frames.
	Ready() bool
	// Send enqueues a frame without waiting for delivery.
	Send(frame []byte) error
	Close() error
}

// Registry は接続中の購読者を保持し、イベントをファンアウトする。
// 接続の追加・削除はブロードキャストと並行して発生しうるため、送信はスナップショットに対して行う。
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]Conn
	logger *log.Logger
}

func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{conns: make(map[string]Conn), logger: logger}
}

func (r *Registry) Add(c Conn) {
	r.mu.Lock()
	r.conns[c.ID()] = c
	r.mu.Unlock()
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast encodes env once and sends it to every ready connection.
// It returns how many connections accepted the frame. The error is only
// non-nil when env cannot be encoded.
func (r *Registry) Broadcast(env Envelope) (int, error) {
	frame, err := encodeEnvelope(env)
	if err != nil {
		return 0, fmt.Errorf("encode %s envelope: %w", env.Type, err)
	}
	return r.BroadcastFrame(frame), nil
}

// BroadcastFrame sends an already encoded frame.
func (r *Registry) BroadcastFrame(frame []byte) int {
	r.mu.RLock()
	snapshot := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range snapshot {
		if !c.Ready() {
			continue
		}
		if err := c.Send(frame); err != nil {
			if r.logger != nil {
				r.logger.Printf("live: send to %s skipped: %v", c.ID(), err)
			}
			continue
		}
		delivered++
	}
	return delivered
}

// CloseAll closes and forgets every connection. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]Conn)
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
