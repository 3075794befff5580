package http

import (
	"testing"

	"github.com/gorilla/websocket"
)

func TestGatewayBookkeeping(t *testing.T) {
	gateway := NewGateway()
	host := &websocket.Conn{}
	player := &websocket.Conn{}

	gateway.Register(host, "ABC123", RoleHost, "")
	gateway.Register(player, "ABC123", RolePlayer, "p1")
	if got := gateway.Subscribers("ABC123"); got != 2 {
		t.Fatalf("expected 2 subscribers, got %d", got)
	}

	info, ok := gateway.Unregister(player)
	if !ok || info.role != RolePlayer || info.playerID != "p1" || info.pin != "ABC123" {
		t.Fatalf("unexpected unregister result: %+v ok=%v", info, ok)
	}
	if got := gateway.Subscribers("ABC123"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	if _, ok := gateway.Unregister(player); ok {
		t.Fatalf("double unregister should report missing")
	}

	gateway.Unregister(host)
	if got := gateway.Subscribers("ABC123"); got != 0 {
		t.Fatalf("expected empty pin, got %d", got)
	}
}
