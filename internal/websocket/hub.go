package websocket

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mlashkov/wavechat/internal/metrics"
)

// Hub держит все живые соединения и комнаты рассылки.
// Комнаты адресуются строковым ключом: персональная комната пользователя
// (UserRoom) и комната группы (GroupRoom).
type Hub struct {
	clients map[uuid.UUID]*Client

	// Соединения по UserID (у пользователя может быть несколько вкладок)
	userClients map[uuid.UUID]map[uuid.UUID]*Client

	// Подписчики комнат
	rooms map[string]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	tracker Tracker

	mu sync.RWMutex

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает Hub с внедренным трекером присутствия
func NewHub(tracker Tracker) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uuid.UUID]map[uuid.UUID]*Client),
		rooms:       make(map[string]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		tracker:     tracker,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run запускает цикл hub'а
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.markClosed()
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()

	h.clients[client.ID] = client

	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.UserID][client.ID] = client

	// Подписываем на персональную комнату и комнаты групп, собранные при подключении
	for room := range client.Rooms {
		h.addToRoomUnsafe(client, room)
	}

	h.mu.Unlock()

	// Отметка онлайна пишет статус в базу, поэтому идет без замка hub'а:
	// медленный Postgres не должен останавливать рассылку остальным
	wentOnline := h.tracker.MarkOnline(client.UserID)

	// Снимок онлайна новое соединение получает до любых дельт присутствия
	// (register/unregister сериализованы циклом hub'а), и берется он после
	// отметки, так что сам пользователь в нем уже есть
	if data, err := Marshal(TypeInitialOnlineUsers, h.tracker.Snapshot()); err == nil {
		if !client.trySend(data) {
			log.Printf("Failed to send online snapshot to client %s", client.ID)
		}
	}

	if wentOnline {
		if data, err := Marshal(TypeUserOnline, client.UserID); err == nil {
			h.broadcastExcept(client.ID, data)
		}
	}

	metrics.ActiveConnections.Inc()
	log.Printf("Client registered: %s (User: %s)", client.ID, client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()

	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}

	for room := range client.Rooms {
		h.removeFromRoomUnsafe(client, room)
	}

	lastConnection := false
	if userClients, ok := h.userClients[client.UserID]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.UserID)
			lastConnection = true
		}
	}

	delete(h.clients, client.ID)

	h.mu.Unlock()

	// Закрытие под замком клиента: обработчики, пережившие соединение,
	// упрутся во флаг closed, а не в панику на закрытом канале
	client.markClosed()

	// Последнее соединение пользователя — уходит в оффлайн.
	// Обрыв сети приходит сюда тем же путем, что и штатное закрытие:
	// ReadPump падает по ошибке чтения и дергает Unregister.
	if lastConnection && h.tracker.MarkOffline(client.UserID) {
		if data, err := Marshal(TypeUserOffline, client.UserID); err == nil {
			h.broadcastExcept(client.ID, data)
		}
	}

	metrics.ActiveConnections.Dec()
	log.Printf("Client unregistered: %s (User: %s)", client.ID, client.UserID)
}

// JoinRoom подписывает живое соединение на комнату (событие join-group)
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.addToRoomUnsafe(client, room)
}

func (h *Hub) addToRoomUnsafe(client *Client, room string) {
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[uuid.UUID]*Client)
	}
	h.rooms[room][client.ID] = client

	client.mu.Lock()
	client.Rooms[room] = true
	client.mu.Unlock()
}

func (h *Hub) removeFromRoomUnsafe(client *Client, room string) {
	if subscribers, ok := h.rooms[room]; ok {
		delete(subscribers, client.ID)
		if len(subscribers) == 0 {
			delete(h.rooms, room)
		}
	}

	client.mu.Lock()
	delete(client.Rooms, room)
	client.mu.Unlock()
}

// SendToRoom доставляет сообщение всем подписчикам комнаты
func (h *Hub) SendToRoom(room string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.sendToRoomUnsafe(room, message)
}

// SendToUser доставляет сообщение на все соединения пользователя
func (h *Hub) SendToUser(userID uuid.UUID, message []byte) {
	h.SendToRoom(UserRoom(userID), message)
}

// SendToRoomExcept — как SendToRoom, но минуя соединения одного пользователя.
// Отправитель группового сообщения получает message-sent в свою комнату,
// а не копию из комнаты группы.
func (h *Hub) SendToRoomExcept(room string, excludeUser uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[room] {
		if client.UserID == excludeUser {
			continue
		}
		if !client.trySend(message) {
			log.Printf("Dropped event for client %s", client.ID)
		}
	}
}

func (h *Hub) sendToRoomUnsafe(room string, message []byte) {
	for _, client := range h.rooms[room] {
		if !client.trySend(message) {
			log.Printf("Dropped event for client %s", client.ID)
		}
	}
}

func (h *Hub) broadcastExcept(excludeID uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.ID == excludeID {
			continue
		}
		client.trySend(message)
	}
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := Marshal(TypePing, nil)
	if err != nil {
		return
	}

	for _, client := range h.clients {
		client.trySend(data)
	}
}

// OnlineUsers возвращает текущий снимок онлайна
func (h *Hub) OnlineUsers() []uuid.UUID {
	return h.tracker.Snapshot()
}
