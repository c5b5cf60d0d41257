// Package ws carries the datagram protocol over WebSocket for clients that
// cannot open a UDP socket. Each session gets a virtual address on the "ws"
// network so the domain keeps a single address-keyed broadcast set.
package ws

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gungame/server/internal/telemetry"
)

const writeWait = 10 * time.Second

// Addr is the virtual endpoint of one websocket session.
type Addr struct {
	ID string
}

func (a Addr) Network() string { return "ws" }
func (a Addr) String() string  { return "ws:" + a.ID }

type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Gateway upgrades HTTP requests, reads messages into the shared dispatch
// path, and implements the outbound sender for "ws" addresses.
type Gateway struct {
	upgrader websocket.Upgrader
	dispatch func(data []byte, addr net.Addr)
	logger   telemetry.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewGateway wires the gateway onto the same dispatch function the UDP loop
// uses, so both transports share one protocol implementation.
func NewGateway(dispatch func(data []byte, addr net.Addr), logger telemetry.Logger) *Gateway {
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	return &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		dispatch: dispatch,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Printf("ws: upgrade failed: %v", err)
		return
	}

	addr := Addr{ID: uuid.NewString()}
	sess := &session{conn: conn}
	g.mu.Lock()
	g.sessions[addr.ID] = sess
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.sessions, addr.ID)
		g.mu.Unlock()
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Printf("ws: session %s read: %v", addr.ID, err)
			}
			return
		}
		g.dispatch(payload, addr)
	}
}

// WriteTo implements the outbound sender for "ws" addresses.
func (g *Gateway) WriteTo(data []byte, addr net.Addr) (int, error) {
	wsAddr, ok := addr.(Addr)
	if !ok {
		return 0, fmt.Errorf("ws: not a gateway address: %s", addr)
	}

	g.mu.RLock()
	sess, ok := g.sessions[wsAddr.ID]
	g.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("ws: session %s gone", wsAddr.ID)
	}
	if err := sess.write(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// SessionCount reports how many sessions are live.
func (g *Gateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}
