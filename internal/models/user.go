package models

import (
	"github.com/google/uuid"
	"time"
)

type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"uniqueIndex;not null"`
	IsOnline   bool      `gorm:"default:false"`
	LastSeenAt time.Time
	CreatedAt  time.Time

	// Связи
	Groups []Group `gorm:"many2many:group_members"`
}
