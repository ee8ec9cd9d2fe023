package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mlashkov/wavechat/internal/database"
	"github.com/mlashkov/wavechat/internal/middleware"
	ws "github.com/mlashkov/wavechat/internal/websocket"
)

// WebSocketHandler апгрейдит аутентифицированные соединения
type WebSocketHandler struct {
	hub      *ws.Hub
	relay    *Relay
	users    database.UserStore
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *ws.Hub, relay *Relay, users database.UserStore) *WebSocketHandler {
	return &WebSocketHandler{
		hub:   hub,
		relay: relay,
		users: users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: Проверить origin в prod
				return true
			},
		},
	}
}

// HandleWebSocket вызывается после RequireAuth: неаутентифицированное
// соединение до обработчиков событий не доходит
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// Токен валиден, но пользователь должен существовать
	user, err := h.users.GetUserWithGroups(userID.(uuid.UUID).String())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	// Комнаты групп по членству на момент подключения; группы, в которые
	// пользователь вступит позже, подключаются событием join-group
	rooms := make([]string, 0, len(user.Groups))
	for _, g := range user.Groups {
		rooms = append(rooms, ws.GroupRoom(g.ID))
	}

	client := ws.NewClient(h.hub, conn, user.ID, user.Name, rooms)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.relay)
}
