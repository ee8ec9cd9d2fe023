package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/mlashkov/wavechat/internal/models"
)

type UserInfo struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type GroupInfo struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type FileInfo struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ReactionView — эмодзи и кто его поставил; пустых наборов не бывает
type ReactionView struct {
	Emoji string     `json:"emoji"`
	Users []UserInfo `json:"users"`
}

// MessageResponse — сообщение в том виде, в каком его рендерит клиент
type MessageResponse struct {
	ID        uuid.UUID      `json:"id"`
	Sender    UserInfo       `json:"sender"`
	Receiver  *UserInfo      `json:"receiver,omitempty"`
	Group     *GroupInfo     `json:"group,omitempty"`
	Content   string         `json:"content"`
	Type      string         `json:"type"`
	File      *FileInfo      `json:"file,omitempty"`
	Delivered bool           `json:"delivered"`
	Read      bool           `json:"read"`
	IsEdited  bool           `json:"is_edited"`
	EditedAt  *time.Time     `json:"edited_at,omitempty"`
	IsDeleted bool           `json:"is_deleted"`
	ReplyToID *uuid.UUID     `json:"reply_to_id,omitempty"`
	Reactions []ReactionView `json:"reactions"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMessageResponse собирает ответ из загруженного с связями сообщения
func NewMessageResponse(m *models.Message) MessageResponse {
	resp := MessageResponse{
		ID:        m.ID,
		Sender:    UserInfo{ID: m.SenderID, Name: m.Sender.Name},
		Content:   m.Content,
		Type:      m.Type,
		Delivered: m.Delivered,
		Read:      m.Read,
		IsEdited:  m.IsEdited,
		EditedAt:  m.EditedAt,
		IsDeleted: m.IsDeleted,
		ReplyToID: m.ReplyToID,
		Reactions: groupReactions(m.Reactions),
		CreatedAt: m.CreatedAt,
	}

	if m.Receiver != nil {
		resp.Receiver = &UserInfo{ID: m.Receiver.ID, Name: m.Receiver.Name}
	}
	if m.Group != nil {
		resp.Group = &GroupInfo{ID: m.Group.ID, Name: m.Group.Name}
	}
	if m.FileURL != "" {
		resp.File = &FileInfo{URL: m.FileURL, Name: m.FileName, Size: m.FileSize}
	}

	return resp
}

// groupReactions сворачивает строки реакций в (эмодзи -> пользователи),
// порядок эмодзи — по первой поставленной реакции
func groupReactions(reactions []models.Reaction) []ReactionView {
	views := make([]ReactionView, 0, len(reactions))
	index := make(map[string]int)

	for _, r := range reactions {
		user := UserInfo{ID: r.UserID, Name: r.User.Name}
		if i, ok := index[r.Emoji]; ok {
			views[i].Users = append(views[i].Users, user)
			continue
		}
		index[r.Emoji] = len(views)
		views = append(views, ReactionView{Emoji: r.Emoji, Users: []UserInfo{user}})
	}

	return views
}
