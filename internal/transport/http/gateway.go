package http

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Role distinguishes the host connection from player connections on a PIN.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

type connInfo struct {
	pin      string
	role     Role
	playerID string
}

// Gateway tracks which websocket belongs to which PIN and role so a dropped
// connection can be unsubscribed cleanly without touching session state. It
// never mutates sessions; event delivery flows through session subscriptions.
type Gateway struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]connInfo
	byPIN map[string]map[*websocket.Conn]struct{}
}

func NewGateway() *Gateway {
	return &Gateway{
		conns: make(map[*websocket.Conn]connInfo),
		byPIN: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (g *Gateway) Register(conn *websocket.Conn, pin string, role Role, playerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.conns[conn] = connInfo{pin: pin, role: role, playerID: playerID}
	if g.byPIN[pin] == nil {
		g.byPIN[pin] = make(map[*websocket.Conn]struct{})
	}
	g.byPIN[pin][conn] = struct{}{}
}

// Unregister removes the connection and returns what it was subscribed to.
func (g *Gateway) Unregister(conn *websocket.Conn) (connInfo, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	info, ok := g.conns[conn]
	if !ok {
		return connInfo{}, false
	}
	delete(g.conns, conn)
	if set := g.byPIN[info.pin]; set != nil {
		delete(set, conn)
		if len(set) == 0 {
			delete(g.byPIN, info.pin)
		}
	}
	return info, true
}

// Subscribers reports how many connections are attached to a PIN.
func (g *Gateway) Subscribers(pin string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byPIN[pin])
}
