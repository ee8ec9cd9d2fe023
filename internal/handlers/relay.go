package handlers

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/mlashkov/wavechat/internal/database"
	"github.com/mlashkov/wavechat/internal/handlers/dto"
	"github.com/mlashkov/wavechat/internal/metrics"
	"github.com/mlashkov/wavechat/internal/models"
	ws "github.com/mlashkov/wavechat/internal/websocket"
	"gorm.io/gorm"
)

// Relay принимает доменные события сокета, при необходимости пишет в базу
// и рассылает результат в нужные комнаты
type Relay struct {
	store database.RelayStore
	hub   *ws.Hub
}

func NewRelay(store database.RelayStore, hub *ws.Hub) *Relay {
	return &Relay{store: store, hub: hub}
}

func (r *Relay) HandleEvent(client *ws.Client, ev *ws.Event) error {
	var err error

	switch ev.Type {
	case ws.TypeSendMessage:
		err = r.handleSendMessage(client, ev)
	case ws.TypeTyping:
		err = r.handleTyping(client, ev, ws.TypeUserTyping)
	case ws.TypeStopTyping:
		err = r.handleTyping(client, ev, ws.TypeUserStopTyping)
	case ws.TypeMarkRead:
		err = r.handleMarkRead(client, ev)
	case ws.TypeMessageReaction:
		err = r.handleReaction(client, ev)
	case ws.TypeJoinGroup:
		err = r.handleJoinGroup(client, ev)
	case ws.TypeCallUser:
		err = r.handleCallSignal(client, ev, ws.TypeIncomingCall)
	case ws.TypeCallAnswer:
		err = r.handleCallSignal(client, ev, ws.TypeCallAnswered)
	case ws.TypeICECandidate:
		err = r.handleCallSignal(client, ev, ws.TypeICECandidate)
	case ws.TypeEndCall:
		err = r.handleCallSignal(client, ev, ws.TypeCallEnded)
	default:
		log.Printf("Unknown event type: %s", ev.Type)
		return nil
	}

	if err != nil {
		metrics.RelayErrors.Inc()
	}
	return err
}

func (r *Relay) handleSendMessage(client *ws.Client, ev *ws.Event) error {
	var payload dto.SendMessagePayload
	if err := ev.DecodeData(&payload); err != nil {
		return err
	}

	// Ровно один адресат; невалидную отправку не сохраняем
	if (payload.ReceiverID == nil) == (payload.GroupID == nil) {
		return ws.ErrInvalidTarget
	}

	msgType := payload.Type
	if msgType == "" {
		msgType = "text"
	}

	message := &models.Message{
		SenderID:   client.UserID,
		ReceiverID: payload.ReceiverID,
		GroupID:    payload.GroupID,
		Content:    payload.Content,
		Type:       msgType,
		ReplyToID:  payload.ReplyToID,
		// Socket-путь отмечает доставку сразу: ретранслятор сообщение получил
		Delivered: true,
	}

	if payload.File != nil {
		message.FileURL = payload.File.URL
		message.FileName = payload.File.Name
		message.FileSize = payload.File.Size
	}

	if err := r.store.SaveMessage(message); err != nil {
		log.Printf("Failed to save message from %s: %v", client.UserID, err)
		return err
	}

	resolved, err := r.store.GetMessageResolved(message.ID.String())
	if err != nil {
		return err
	}

	response := dto.NewMessageResponse(resolved)

	if payload.ReceiverID != nil {
		r.emitToRoom(ws.UserRoom(*payload.ReceiverID), ws.TypeReceiveMessage, response)
	} else {
		// Сам отправитель копию из комнаты группы не получает
		r.emitToRoomExcept(ws.GroupRoom(*payload.GroupID), client.UserID, ws.TypeReceiveMessage, response)
	}

	// Все соединения отправителя видят отправку, включая другие вкладки
	r.emitToRoom(ws.UserRoom(client.UserID), ws.TypeMessageSent, response)

	return nil
}

func (r *Relay) handleTyping(client *ws.Client, ev *ws.Event, notice ws.EventType) error {
	var payload dto.TargetPayload
	if err := ev.DecodeData(&payload); err != nil {
		return err
	}

	// Без персистентности: индикатор имеет смысл только для живых соединений
	if payload.ReceiverID != nil {
		r.emitToRoom(ws.UserRoom(*payload.ReceiverID), notice, dto.TypingNotice{User: client.UserID})
	} else if payload.GroupID != nil {
		// Группа прикладывается, чтобы клиент понял, к какому чату индикатор;
		// сам печатающий эхо не получает
		r.emitToRoomExcept(ws.GroupRoom(*payload.GroupID), client.UserID, notice, dto.TypingNotice{
			User:  client.UserID,
			Group: payload.GroupID,
		})
	}

	return nil
}

func (r *Relay) handleMarkRead(client *ws.Client, ev *ws.Event) error {
	var payload dto.MarkReadPayload
	if err := ev.DecodeData(&payload); err != nil {
		return err
	}

	message, err := r.store.GetMessage(payload.MessageID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if err := r.store.MarkMessageRead(payload.MessageID.String()); err != nil {
		return err
	}

	// Подтверждение читателю
	client.SendEvent(ws.TypeMessageRead, dto.ReadNotice{MessageID: payload.MessageID})

	// И уведомление отправителю, чтобы его клиент показал галочку прочтения
	if message.SenderID != client.UserID {
		reader := client.UserID
		r.emitToRoom(ws.UserRoom(message.SenderID), ws.TypeMessageRead, dto.ReadNotice{
			MessageID: payload.MessageID,
			Reader:    &reader,
		})
	}

	return nil
}

func (r *Relay) handleReaction(client *ws.Client, ev *ws.Event) error {
	var payload dto.ReactionPayload
	if err := ev.DecodeData(&payload); err != nil {
		return err
	}

	message, err := r.store.GetMessage(payload.MessageID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	// Переключается только затронутое эмодзи, остальные реакции
	// пользователя не трогаем
	if err := r.store.ToggleReaction(payload.MessageID, client.UserID, payload.Emoji); err != nil {
		return err
	}

	resolved, err := r.store.GetMessageResolved(payload.MessageID.String())
	if err != nil {
		return err
	}

	response := dto.NewMessageResponse(resolved)
	for _, room := range deliveryRooms(message) {
		r.emitToRoom(room, ws.TypeMessageReactionUpdated, response)
	}

	return nil
}

func (r *Relay) handleJoinGroup(client *ws.Client, ev *ws.Event) error {
	var payload dto.JoinGroupPayload
	if err := ev.DecodeData(&payload); err != nil {
		return err
	}

	r.hub.JoinRoom(client, ws.GroupRoom(payload.GroupID))
	return nil
}

func (r *Relay) handleCallSignal(client *ws.Client, ev *ws.Event, notice ws.EventType) error {
	var payload dto.CallPayload
	if err := ev.DecodeData(&payload); err != nil {
		return err
	}

	if payload.To == uuid.Nil {
		return ws.ErrInvalidEvent
	}

	// Сервер состояния звонка не хранит, только пересылает адресату
	r.emitToRoom(ws.UserRoom(payload.To), notice, dto.CallNotice{
		From:      client.UserID,
		Offer:     payload.Offer,
		Answer:    payload.Answer,
		Candidate: payload.Candidate,
	})

	return nil
}

func (r *Relay) emitToRoom(room string, t ws.EventType, data interface{}) {
	raw, err := ws.Marshal(t, data)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", t, err)
		return
	}

	r.hub.SendToRoom(room, raw)
	metrics.EventsRelayed.WithLabelValues(string(t)).Inc()
}

func (r *Relay) emitToRoomExcept(room string, excludeUser uuid.UUID, t ws.EventType, data interface{}) {
	raw, err := ws.Marshal(t, data)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", t, err)
		return
	}

	r.hub.SendToRoomExcept(room, excludeUser, raw)
	metrics.EventsRelayed.WithLabelValues(string(t)).Inc()
}

// deliveryRooms — комнаты, в которые ушло бы само сообщение:
// для личного — отправитель и получатель, для группового — комната группы
func deliveryRooms(m *models.Message) []string {
	if m.GroupID != nil {
		return []string{ws.GroupRoom(*m.GroupID)}
	}

	rooms := []string{ws.UserRoom(m.SenderID)}
	if m.ReceiverID != nil && *m.ReceiverID != m.SenderID {
		rooms = append(rooms, ws.UserRoom(*m.ReceiverID))
	}
	return rooms
}
