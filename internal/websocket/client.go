package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер события
	maxMessageSize = 512 * 1024 // 512KB
)

// Client — одно живое соединение одного пользователя
type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	Conn   *websocket.Conn
	Send   chan []byte
	Rooms  map[string]bool
	Hub    *Hub
	mu     sync.RWMutex
	closed bool
}

// EventHandler обрабатывает доменные события; по одному независимому
// обработчику на тип события внутри реализации
type EventHandler interface {
	HandleEvent(client *Client, ev *Event) error
}

// NewClient создает клиента, заранее подписанного на rooms
// (подписка вступает в силу при регистрации в Hub)
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, name string, rooms []string) *Client {
	subscriptions := make(map[string]bool, len(rooms)+1)
	subscriptions[UserRoom(userID)] = true
	for _, r := range rooms {
		subscriptions[r] = true
	}

	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Rooms:  subscriptions,
		Hub:    hub,
	}
}

// ReadPump читает события от клиента и передает их обработчику.
// Любой выход отсюда — штатный или по обрыву сети — снимает регистрацию,
// на этом держится очистка присутствия.
func (c *Client) ReadPump(handler EventHandler) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev Event
		if err := c.Conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if ev.Type == TypePong {
			continue
		}

		if handler == nil {
			continue
		}

		// Обработчики ходят в базу, соединение на это время не блокируем
		go func(ev Event) {
			if err := handler.HandleEvent(c, &ev); err != nil {
				log.Printf("Error handling %s from %s: %v", ev.Type, c.UserID, err)
				c.SendError(err.Error())
			}
		}(ev)
	}
}

// WritePump отправляет события клиенту
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.Conn.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent кладет событие в очередь этого соединения.
// Обработчик может держать клиента и после отключения, поэтому
// отправка после закрытия возвращает ошибку, а не панику.
func (c *Client) SendEvent(t EventType, data interface{}) error {
	raw, err := Marshal(t, data)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.Send <- raw:
		return nil
	default:
		return ErrClientQueueFull
	}
}

// trySend кладет сырое событие в очередь, если соединение еще живо.
// RLock на время отправки исключает гонку с закрытием канала в markClosed.
func (c *Client) trySend(message []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// markClosed закрывает очередь ровно один раз
func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// SendError сообщает об ошибке только этому соединению
func (c *Client) SendError(errorMsg string) {
	c.SendEvent(TypeMessageError, errorMsg)
}

func (c *Client) IsInRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Rooms[room]
}

// DecodeData разбирает полезную нагрузку события в типизированную структуру
func (ev *Event) DecodeData(v interface{}) error {
	if len(ev.Data) == 0 {
		return ErrInvalidEvent
	}
	if err := json.Unmarshal(ev.Data, v); err != nil {
		return ErrInvalidEvent
	}
	return nil
}
