package models

import (
	"github.com/google/uuid"
	"time"
)

type Group struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"not null"`
	Description string
	ImageURL    string
	CreatedBy   uuid.UUID `gorm:"not null"`
	CreatedAt   time.Time

	// Связи
	Members  []User    `gorm:"many2many:group_members"`
	Messages []Message `gorm:"foreignKey:GroupID"`
}

// GroupMember — явная join-таблица, чтобы сохранять порядок вступления
type GroupMember struct {
	GroupID  uuid.UUID `gorm:"primaryKey"`
	UserID   uuid.UUID `gorm:"primaryKey"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}
