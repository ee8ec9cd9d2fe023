package database

import (
	"errors"

	"github.com/google/uuid"
	"github.com/mlashkov/wavechat/internal/models"
	"gorm.io/gorm"
)

func (d *Database) SaveMessage(message *models.Message) error {
	return d.db.Create(message).Error
}

func (d *Database) GetMessage(id string) (*models.Message, error) {
	var message models.Message
	if err := d.db.First(&message, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// GetMessageResolved возвращает сообщение с именами отправителя/получателя/группы
// и реакциями — то, что уходит клиентам по сокету
func (d *Database) GetMessageResolved(id string) (*models.Message, error) {
	var message models.Message
	err := d.db.
		Preload("Sender").
		Preload("Receiver").
		Preload("Group").
		Preload("Reactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Reactions.User").
		First(&message, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (d *Database) UpdateMessage(message *models.Message) error {
	return d.db.Save(message).Error
}

func (d *Database) MarkMessageRead(id string) error {
	return d.db.Model(&models.Message{}).Where("id = ?", id).Update("read", true).Error
}

// ToggleReaction снимает реакцию, если она уже стоит, иначе добавляет
func (d *Database) ToggleReaction(messageID, userID uuid.UUID, emoji string) error {
	var existing models.Reaction
	err := d.db.
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		First(&existing).Error

	if err == nil {
		return d.db.Delete(&existing).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return d.db.Create(&models.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	}).Error
}

// GetDirectMessages — история переписки двух пользователей в хронологическом порядке
func (d *Database) GetDirectMessages(userID, peerID string) ([]models.Message, error) {
	var messages []models.Message

	err := d.db.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, peerID, peerID, userID).
		Order("created_at ASC").
		Preload("Sender").
		Preload("Receiver").
		Preload("Reactions.User").
		Find(&messages).Error

	return messages, err
}

func (d *Database) GetGroupMessages(groupID string) ([]models.Message, error) {
	var messages []models.Message

	err := d.db.
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Preload("Sender").
		Preload("Group").
		Preload("Reactions.User").
		Find(&messages).Error

	return messages, err
}

// GetDirectPeers возвращает собеседников пользователя в личных чатах
func (d *Database) GetDirectPeers(userID uuid.UUID) ([]uuid.UUID, error) {
	var peers []uuid.UUID

	err := d.db.Raw(`
		SELECT DISTINCT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END
		FROM messages
		WHERE group_id IS NULL AND (sender_id = ? OR receiver_id = ?)`,
		userID, userID, userID,
	).Scan(&peers).Error

	return peers, err
}

func (d *Database) GetLastDirectMessage(userID, peerID uuid.UUID) (*models.Message, error) {
	var message models.Message

	err := d.db.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, peerID, peerID, userID).
		Order("created_at DESC").
		Preload("Sender").
		Preload("Receiver").
		First(&message).Error
	if err != nil {
		return nil, err
	}

	return &message, nil
}
