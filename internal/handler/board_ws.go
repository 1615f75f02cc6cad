package handler

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"

	"liveboard/internal/model"
	"liveboard/internal/transport"
)

// BoardWSHandler handles board websocket connections
type BoardWSHandler struct {
	hub *BoardHub
}

// NewBoardWSHandler creates a BoardWSHandler instance
func NewBoardWSHandler(hub *BoardHub) *BoardWSHandler {
	return &BoardWSHandler{hub: hub}
}

// HandleWebSocket handles one board participant connection. The upgrade
// middleware has already validated the JWT and the role query param and
// stored them in Locals.
func (h *BoardWSHandler) HandleWebSocket(c *websocket.Conn) {
	sessionIDInterface := c.Locals("sessionId")
	userIDInterface := c.Locals("userId")
	nicknameInterface := c.Locals("nickname")
	roleInterface := c.Locals("role")

	sessionID, ok1 := sessionIDInterface.(string)
	userID, ok2 := userIDInterface.(int64)
	nickname, ok3 := nicknameInterface.(string)
	role, ok4 := roleInterface.(model.SessionRole)

	if !ok1 || !ok2 || !ok3 || !ok4 {
		c.WriteMessage(websocket.TextMessage, []byte(`{"event":"error","message":"invalid session"}`))
		c.Close()
		return
	}

	session, err := h.hub.GetOrCreateSession(sessionID)
	if err != nil {
		log.Printf("[BoardWS] Failed to open session %s: %v", sessionID, err)
		c.WriteMessage(websocket.TextMessage, []byte(`{"event":"error","message":"session unavailable"}`))
		c.Close()
		return
	}

	client := &BoardClient{
		UserID:   userID,
		Nickname: nickname,
		Role:     role,
		Conn:     c,
	}

	if !session.AddClient(client) {
		c.WriteMessage(websocket.TextMessage, []byte(`{"event":"error","message":"host already connected"}`))
		c.Close()
		return
	}

	log.Printf("[BoardWS] Connected: session=%s, user=%d, role=%s", sessionID, userID, role)

	defer func() {
		session.RemoveClient(c)
		c.Close()
		log.Printf("[BoardWS] Disconnected: session=%s, user=%d", sessionID, userID)
	}()

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		var ev transport.Event
		if err := json.Unmarshal(msgBytes, &ev); err != nil || ev.Name == "" {
			// garbage on the wire never disturbs the session
			continue
		}

		if role == model.RoleHost {
			session.HandleHostEvent(c, ev)
		} else {
			session.HandleViewerEvent(c, ev)
		}
	}
}
