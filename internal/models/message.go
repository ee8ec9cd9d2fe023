package models

import (
	"github.com/google/uuid"
	"time"
)

// DeletedPlaceholder подставляется вместо содержимого удаленного сообщения
const DeletedPlaceholder = "This message was deleted"

// Message адресовано ровно одному из ReceiverID / GroupID
type Message struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SenderID   uuid.UUID  `gorm:"not null;index:idx_messages_direct"`
	ReceiverID *uuid.UUID `gorm:"index:idx_messages_direct;check:chk_message_target,(receiver_id IS NULL) <> (group_id IS NULL)"`
	GroupID    *uuid.UUID `gorm:"index"`
	Content    string
	Type       string `gorm:"default:'text';check:type IN ('text','image','pdf','video')"`
	FileURL    string
	FileName   string
	FileSize   int64
	Delivered  bool `gorm:"default:false"`
	Read       bool `gorm:"default:false"`
	IsEdited   bool `gorm:"default:false"`
	EditedAt   *time.Time
	IsDeleted  bool `gorm:"default:false"`
	DeletedAt  *time.Time
	ReplyToID  *uuid.UUID
	CreatedAt  time.Time `gorm:"index"`

	// Связи
	Sender    User       `gorm:"foreignKey:SenderID"`
	Receiver  *User      `gorm:"foreignKey:ReceiverID"`
	Group     *Group     `gorm:"foreignKey:GroupID"`
	Reactions []Reaction `gorm:"foreignKey:MessageID"`
}

// Reaction — одна строка на (сообщение, пользователь, эмодзи).
// Представление "эмодзи -> множество пользователей" собирается при чтении,
// поэтому пустых наборов не бывает по построению.
type Reaction struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MessageID uuid.UUID `gorm:"not null;uniqueIndex:idx_reaction_once,priority:1"`
	UserID    uuid.UUID `gorm:"not null;uniqueIndex:idx_reaction_once,priority:2"`
	Emoji     string    `gorm:"not null;uniqueIndex:idx_reaction_once,priority:3"`
	CreatedAt time.Time

	// Связи
	User User `gorm:"foreignKey:UserID"`
}
