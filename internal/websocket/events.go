package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType определяет типы событий протокола
type EventType string

const (
	// Системные типы
	TypePing EventType = "ping"
	TypePong EventType = "pong"

	// Входящие (клиент -> сервер)
	TypeSendMessage     EventType = "send-message"
	TypeTyping          EventType = "typing"
	TypeStopTyping      EventType = "stop-typing"
	TypeMarkRead        EventType = "mark-read"
	TypeMessageReaction EventType = "message-reaction"
	TypeJoinGroup       EventType = "join-group"
	TypeCallUser        EventType = "call-user"
	TypeCallAnswer      EventType = "call-answer"
	TypeICECandidate    EventType = "ice-candidate"
	TypeEndCall         EventType = "end-call"

	// Исходящие (сервер -> клиент)
	TypeInitialOnlineUsers     EventType = "initial-online-users"
	TypeUserOnline             EventType = "user-online"
	TypeUserOffline            EventType = "user-offline"
	TypeReceiveMessage         EventType = "receive-message"
	TypeMessageSent            EventType = "message-sent"
	TypeMessageError           EventType = "message-error"
	TypeUserTyping             EventType = "user-typing"
	TypeUserStopTyping         EventType = "user-stop-typing"
	TypeMessageRead            EventType = "message-read"
	TypeMessageReactionUpdated EventType = "message-reaction-updated"
	TypeMessageEdited          EventType = "message-edited"
	TypeMessageDeleted         EventType = "message-deleted"
	TypeIncomingCall           EventType = "incoming-call"
	TypeCallAnswered           EventType = "call-answered"
	TypeCallEnded              EventType = "call-ended"
)

// Event — конверт протокола. Payload каждого типа описан в handlers/dto.
type Event struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Marshal собирает конверт с полезной нагрузкой
func Marshal(t EventType, data interface{}) ([]byte, error) {
	ev := Event{
		Type:      t,
		Timestamp: time.Now(),
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		ev.Data = raw
	}

	return json.Marshal(ev)
}

// UserRoom — персональная комната пользователя: достижимы все его соединения
func UserRoom(userID uuid.UUID) string {
	return userID.String()
}

// GroupRoom — комната группы
func GroupRoom(groupID uuid.UUID) string {
	return "group-" + groupID.String()
}
