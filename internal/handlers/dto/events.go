package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Полезные нагрузки socket-событий. Конверт описан в internal/websocket.

// SendMessagePayload — send-message; заполняется ровно одно из
// ReceiverID / GroupID
type SendMessagePayload struct {
	ReceiverID *uuid.UUID `json:"receiver_id,omitempty"`
	GroupID    *uuid.UUID `json:"group_id,omitempty"`
	Content    string     `json:"content"`
	Type       string     `json:"type,omitempty"`
	File       *FileInfo  `json:"file,omitempty"`
	ReplyToID  *uuid.UUID `json:"reply_to_id,omitempty"`
}

// TargetPayload — typing / stop-typing
type TargetPayload struct {
	ReceiverID *uuid.UUID `json:"receiver_id,omitempty"`
	GroupID    *uuid.UUID `json:"group_id,omitempty"`
}

// TypingNotice — user-typing / user-stop-typing
type TypingNotice struct {
	User  uuid.UUID  `json:"user"`
	Group *uuid.UUID `json:"group,omitempty"`
}

// MarkReadPayload — mark-read
type MarkReadPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

// ReadNotice — message-read; Reader заполняется в уведомлении отправителю
type ReadNotice struct {
	MessageID uuid.UUID  `json:"message_id"`
	Reader    *uuid.UUID `json:"reader,omitempty"`
}

// ReactionPayload — message-reaction
type ReactionPayload struct {
	MessageID uuid.UUID `json:"message_id"`
	Emoji     string    `json:"emoji"`
}

// JoinGroupPayload — join-group
type JoinGroupPayload struct {
	GroupID uuid.UUID `json:"group_id"`
}

// CallPayload — call-user / call-answer / ice-candidate / end-call.
// SDP и ICE-кандидаты для ретранслятора непрозрачные блобы.
type CallPayload struct {
	To        uuid.UUID       `json:"to"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// CallNotice — incoming-call / call-answered / ice-candidate / call-ended
type CallNotice struct {
	From      uuid.UUID       `json:"from"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}
