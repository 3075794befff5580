package http

import (
	"encoding/json"
	"log"
	"net/http"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"

	"github.com/gorilla/websocket"
)

// WSHandler upgrades connections and wires them into the session engine.
// Host and players subscribe to the same PIN; commands arriving over the
// socket go through the same GameService methods as the REST routes, so every
// state transition happens exactly once and the broadcast is its side effect.
type WSHandler struct {
	service  *app.GameService
	gateway  *Gateway
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, gateway *Gateway) *WSHandler {
	return &WSHandler{
		service: service,
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{
		Kind:    domain.KindOf(err).String(),
		Message: err.Error(),
	}}
}

// ServeWS handles /ws?pin=...&role=host|player&playerId=...
// Players must have joined over the command interface first; the socket only
// re-announces their identity. Reconnects replay the current session state
// through the subscription, so a client that dropped mid-question receives
// the running question again.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	pin := r.URL.Query().Get("pin")
	role := Role(r.URL.Query().Get("role"))
	playerID := r.URL.Query().Get("playerId")

	if pin == "" || (role != RoleHost && role != RolePlayer) {
		http.Error(w, "missing pin or role", http.StatusBadRequest)
		return
	}
	if role == RolePlayer && playerID == "" {
		http.Error(w, "missing playerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if role == RolePlayer {
		if _, err := h.service.RejoinGame(r.Context(), pin, playerID); err != nil {
			_ = conn.WriteJSON(errorMessage(err))
			return
		}
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), pin)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	h.gateway.Register(conn, pin, role, playerID)
	defer func() {
		if info, ok := h.gateway.Unregister(conn); ok && info.role == RolePlayer {
			h.service.MarkConnected(r.Context(), info.pin, info.playerID, false)
		}
	}()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: string(event.Type), Payload: event.Payload}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, role, pin, playerID, inbound, send)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, role Role, pin, playerID string, inbound inboundMessage, send chan<- outboundMessage) {
	switch inbound.Type {
	case "answer":
		if role != RolePlayer {
			send <- errorMessage(domain.Errorf(domain.KindValidation, "only players submit answers"))
			return
		}
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errorMessage(domain.Errorf(domain.KindValidation, "invalid answer payload"))
			return
		}
		answer, err := h.service.SubmitAnswer(r.Context(), pin, playerID, payload.QuestionID, payload.Answer)
		if err != nil {
			send <- errorMessage(err)
			return
		}
		send <- outboundMessage{Type: "answer_result", Payload: answer}

	case "start":
		if !h.requireHost(role, send) {
			return
		}
		if _, err := h.service.StartGame(r.Context(), pin); err != nil {
			send <- errorMessage(err)
		}

	case "advance":
		if !h.requireHost(role, send) {
			return
		}
		if _, err := h.service.AdvanceQuestion(r.Context(), pin); err != nil {
			send <- errorMessage(err)
		}

	case "end":
		if !h.requireHost(role, send) {
			return
		}
		if _, err := h.service.EndGame(r.Context(), pin); err != nil {
			send <- errorMessage(err)
		}

	default:
		send <- errorMessage(domain.Errorf(domain.KindValidation, "unsupported message type %q", inbound.Type))
	}
}

func (h *WSHandler) requireHost(role Role, send chan<- outboundMessage) bool {
	if role != RoleHost {
		send <- errorMessage(domain.Errorf(domain.KindValidation, "host-only command"))
		return false
	}
	return true
}
