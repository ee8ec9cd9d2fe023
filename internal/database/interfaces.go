package database

import (
	"github.com/google/uuid"
	"github.com/mlashkov/wavechat/internal/models"
)

// Узкие интерфейсы хранилища: хендлеры и relay зависят от них,
// в тестах подставляются фейки.

type UserStore interface {
	SaveUser(user *models.User) error
	GetUser(id string) (*models.User, error)
	GetUserWithGroups(id string) (*models.User, error)
	FindUserByName(name string) (*models.User, error)
	SearchUsers(selfID uuid.UUID, query string) ([]models.User, error)
	SetOnline(id string, online bool) error
}

type GroupStore interface {
	CreateGroup(group *models.Group, memberIDs []uuid.UUID) error
	GetGroup(id string) (*models.Group, error)
	GetUserGroups(userID string) ([]models.Group, error)
	AddGroupMembers(groupID string, memberIDs []uuid.UUID) error
	RemoveGroupMember(groupID, userID string) error
}

type MessageStore interface {
	SaveMessage(message *models.Message) error
	GetMessage(id string) (*models.Message, error)
	GetMessageResolved(id string) (*models.Message, error)
	UpdateMessage(message *models.Message) error
	MarkMessageRead(id string) error
	ToggleReaction(messageID, userID uuid.UUID, emoji string) error
	GetDirectMessages(userID, peerID string) ([]models.Message, error)
	GetGroupMessages(groupID string) ([]models.Message, error)
	GetDirectPeers(userID uuid.UUID) ([]uuid.UUID, error)
	GetLastDirectMessage(userID, peerID uuid.UUID) (*models.Message, error)
}

// RelayStore — то, что нужно socket-ретранслятору
type RelayStore interface {
	SaveMessage(message *models.Message) error
	GetMessage(id string) (*models.Message, error)
	GetMessageResolved(id string) (*models.Message, error)
	MarkMessageRead(id string) error
	ToggleReaction(messageID, userID uuid.UUID, emoji string) error
}
