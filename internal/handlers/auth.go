package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mlashkov/wavechat/internal/database"
	"github.com/mlashkov/wavechat/internal/handlers/dto"
	"github.com/mlashkov/wavechat/internal/middleware"
	"github.com/mlashkov/wavechat/internal/models"
	"github.com/mlashkov/wavechat/pkg/auth"
)

type AuthHandler struct {
	users      database.UserStore
	jwtManager *auth.JWTManager
	redis      *redis.Client
}

func NewAuthHandler(users database.UserStore, jwtMgr *auth.JWTManager, rdb *redis.Client) *AuthHandler {
	return &AuthHandler{users: users, jwtManager: jwtMgr, redis: rdb}
}

// Join впускает по имени: пользователь создается при первом входе
func (h *AuthHandler) Join(c *gin.Context) {
	var req dto.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.FindUserByName(req.Name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = &models.User{
			Name:       req.Name,
			LastSeenAt: time.Now(),
			CreatedAt:  time.Now(),
		}
		if err := h.users.SaveUser(user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
			return
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up user"})
		return
	}

	if err := h.users.SetOnline(user.ID.String(), true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update status"})
		return
	}

	token, err := h.jwtManager.Generate(user.ID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, dto.JoinResponse{
		ID:    user.ID,
		Name:  user.Name,
		Token: token,
	})
}

// Logout ставит токен в черный список в Redis до истечения
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	rawToken, err := auth.ExtractTokenFromHeader(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exp, err := h.jwtManager.Expiry(rawToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ttl := time.Until(exp)
	h.redis.Set(context.Background(), "blacklist:"+rawToken, 1, ttl)

	h.users.SetOnline(userID.String(), false)

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
