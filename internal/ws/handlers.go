package ws

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ecomstack/notification-service/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     CheckOrigin,
}

// WSHandler upgrades HTTP connections to WebSocket and spawns the read/write
// pumps for the new client.
type WSHandler struct {
	hub        *Hub
	jwtService *auth.JWTService
}

func NewWSHandler(hub *Hub, jwtService *auth.JWTService) *WSHandler {
	return &WSHandler{hub: hub, jwtService: jwtService}
}

// RegisterRoutes wires the WebSocket endpoint.
func (h *WSHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.ServeWS).Methods(http.MethodGet)
}

// ServeWS upgrades an HTTP GET /ws request to a WebSocket connection. The JWT
// is read from the `token` query parameter or the Authorization header.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	}

	if token == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)

	// Greeting frame so the frontend knows the channel is live.
	if greeting, err := json.Marshal(envelope{Event: "message", Data: "Connected to WebSocket server"}); err == nil {
		client.send <- greeting
	}

	go client.WritePump()
	go client.ReadPump()
}
