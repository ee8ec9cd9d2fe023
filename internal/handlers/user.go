package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mlashkov/wavechat/internal/database"
	"github.com/mlashkov/wavechat/internal/middleware"
)

type UserHandler struct {
	users database.UserStore
}

func NewUserHandler(users database.UserStore) *UserHandler {
	return &UserHandler{users: users}
}

// ListUsers — поиск по имени для боковой панели; себя в выдаче нет
func (h *UserHandler) ListUsers(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	users, err := h.users.SearchUsers(userID, c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search users"})
		return
	}

	result := make([]gin.H, len(users))
	for i, user := range users {
		result[i] = gin.H{
			"id":           user.ID,
			"name":         user.Name,
			"is_online":    user.IsOnline,
			"last_seen_at": user.LastSeenAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{"users": result})
}

// Profile возвращает текущего пользователя вместе с его группами
func (h *UserHandler) Profile(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	user, err := h.users.GetUserWithGroups(userID.String())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	groups := make([]gin.H, len(user.Groups))
	for i, g := range user.Groups {
		groups[i] = gin.H{
			"id":          g.ID,
			"name":        g.Name,
			"description": g.Description,
			"image_url":   g.ImageURL,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            user.ID,
		"name":          user.Name,
		"is_online":     user.IsOnline,
		"last_seen_at":  user.LastSeenAt,
		"joined_groups": groups,
	})
}
