package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/mlashkov/wavechat/internal/models"
)

func (d *Database) SaveUser(user *models.User) error {
	return d.db.Create(user).Error
}

func (d *Database) GetUser(id string) (*models.User, error) {
	user := models.User{}
	if err := d.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserWithGroups загружает пользователя вместе со списком групп
func (d *Database) GetUserWithGroups(id string) (*models.User, error) {
	user := models.User{}
	if err := d.db.Preload("Groups").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) FindUserByName(name string) (*models.User, error) {
	user := models.User{}
	if err := d.db.Where("name = ?", name).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers ищет пользователей по имени без учета регистра, себя исключаем.
// Онлайн показываются первыми, как в боковой панели клиента.
func (d *Database) SearchUsers(selfID uuid.UUID, query string) ([]models.User, error) {
	var users []models.User

	q := d.db.Where("id <> ?", selfID)
	if query != "" {
		q = q.Where("name ILIKE ?", "%"+query+"%")
	}

	err := q.Order("is_online DESC, name ASC").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// SetOnline обновляет флаг онлайна и last_seen разом
func (d *Database) SetOnline(id string, online bool) error {
	return d.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_online":    online,
		"last_seen_at": time.Now(),
	}).Error
}
