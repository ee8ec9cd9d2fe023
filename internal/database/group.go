package database

import (
	"github.com/google/uuid"
	"github.com/mlashkov/wavechat/internal/models"
	"gorm.io/gorm"
)

// CreateGroup создает группу и добавляет создателя с участниками одной транзакцией.
// Членство лежит в одной join-таблице, поэтому members группы и группы
// пользователя рассинхронизироваться не могут.
func (d *Database) CreateGroup(group *models.Group, memberIDs []uuid.UUID) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}

		seen := map[uuid.UUID]bool{group.CreatedBy: true}
		members := []models.GroupMember{{GroupID: group.ID, UserID: group.CreatedBy}}
		for _, id := range memberIDs {
			if !seen[id] {
				seen[id] = true
				members = append(members, models.GroupMember{GroupID: group.ID, UserID: id})
			}
		}

		return tx.Create(&members).Error
	})
}

func (d *Database) GetGroup(id string) (*models.Group, error) {
	var group models.Group
	err := d.db.
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			// Только членство этой группы: общий join умножал бы строки
			// по числу групп каждого участника
			return db.
				Joins("JOIN group_members gm ON gm.user_id = users.id AND gm.group_id = ?", id).
				Order("gm.joined_at ASC")
		}).
		First(&group, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (d *Database) GetUserGroups(userID string) ([]models.Group, error) {
	var user models.User
	err := d.db.Preload("Groups").First(&user, "id = ?", userID).Error
	if err != nil {
		return nil, err
	}

	// Для каждой группы подгружаем участников
	for i := range user.Groups {
		if err := d.db.Model(&user.Groups[i]).Association("Members").Find(&user.Groups[i].Members); err != nil {
			return nil, err
		}
	}

	return user.Groups, nil
}

// AddGroupMembers добавляет участников, уже состоящих пропускает
func (d *Database) AddGroupMembers(groupID string, memberIDs []uuid.UUID) error {
	gid, err := uuid.Parse(groupID)
	if err != nil {
		return err
	}

	return d.db.Transaction(func(tx *gorm.DB) error {
		var existing []models.GroupMember
		if err := tx.Where("group_id = ?", gid).Find(&existing).Error; err != nil {
			return err
		}

		current := make(map[uuid.UUID]bool, len(existing))
		for _, m := range existing {
			current[m.UserID] = true
		}

		var toAdd []models.GroupMember
		for _, id := range memberIDs {
			if !current[id] {
				current[id] = true
				toAdd = append(toAdd, models.GroupMember{GroupID: gid, UserID: id})
			}
		}

		if len(toAdd) == 0 {
			return nil
		}
		return tx.Create(&toAdd).Error
	})
}

func (d *Database) RemoveGroupMember(groupID, userID string) error {
	return d.db.
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{}).Error
}
