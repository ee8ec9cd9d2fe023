package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mlashkov/wavechat/internal/database"
	"github.com/mlashkov/wavechat/internal/handlers/dto"
	"github.com/mlashkov/wavechat/internal/middleware"
	"github.com/mlashkov/wavechat/internal/models"
	ws "github.com/mlashkov/wavechat/internal/websocket"
)

const maxUploadSize = 10 << 20 // 10MB

var allowedExtensions = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true,
	".pdf": true, ".mp4": true, ".mov": true, ".avi": true,
}

// HTTPMessageHandler — REST-путь для сообщений: история, отправка с файлом,
// правка, мягкое удаление, реакции
type HTTPMessageHandler struct {
	messages  database.MessageStore
	users     database.UserStore
	relay     *Relay
	uploadDir string
}

func NewHTTPMessageHandler(messages database.MessageStore, users database.UserStore, relay *Relay, uploadDir string) *HTTPMessageHandler {
	return &HTTPMessageHandler{
		messages:  messages,
		users:     users,
		relay:     relay,
		uploadDir: uploadDir,
	}
}

// SendMessage отправляет сообщение через HTTP, с файлом — multipart
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	receiverID, err := parseOptionalID(c.PostForm("receiver_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receiver id"})
		return
	}
	groupID, err := parseOptionalID(c.PostForm("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	if (receiverID == nil) == (groupID == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receiver or group required"})
		return
	}

	msgType := c.PostForm("type")
	if msgType == "" {
		msgType = "text"
	}

	message := &models.Message{
		SenderID:   userID,
		ReceiverID: receiverID,
		GroupID:    groupID,
		Content:    c.PostForm("content"),
		Type:       msgType,
	}

	if replyTo, err := parseOptionalID(c.PostForm("reply_to_id")); err == nil && replyTo != nil {
		message.ReplyToID = replyTo
	}

	if file, err := c.FormFile("file"); err == nil {
		if file.Size > maxUploadSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file type"})
			return
		}

		// Имя на диске уникализируем временной меткой, оригинал остается в метаданных
		stored := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, stored)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
			return
		}

		message.FileURL = "/uploads/" + stored
		message.FileName = file.Filename
		message.FileSize = file.Size
	}

	if err := h.messages.SaveMessage(message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
		return
	}

	resolved, err := h.messages.GetMessageResolved(message.ID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return
	}

	response := dto.NewMessageResponse(resolved)

	// Живые клиенты получают то же событие, что и при отправке по сокету
	if receiverID != nil {
		h.relay.emitToRoom(ws.UserRoom(*receiverID), ws.TypeReceiveMessage, response)
	} else {
		h.relay.emitToRoomExcept(ws.GroupRoom(*groupID), userID, ws.TypeReceiveMessage, response)
	}
	h.relay.emitToRoom(ws.UserRoom(userID), ws.TypeMessageSent, response)

	c.JSON(http.StatusCreated, response)
}

// ChatHistory — переписка с одним пользователем
func (h *HTTPMessageHandler) ChatHistory(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	messages, err := h.messages.GetDirectMessages(userID.String(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	c.JSON(http.StatusOK, formatMessages(messages))
}

// GroupHistory — история группы
func (h *HTTPMessageHandler) GroupHistory(c *gin.Context) {
	messages, err := h.messages.GetGroupMessages(c.Param("groupId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	c.JSON(http.StatusOK, formatMessages(messages))
}

// Conversations — последнее сообщение каждого личного диалога
func (h *HTTPMessageHandler) Conversations(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	peers, err := h.messages.GetDirectPeers(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get conversations"})
		return
	}

	conversations := make([]gin.H, 0, len(peers))
	for _, peerID := range peers {
		peer, err := h.users.GetUser(peerID.String())
		if err != nil {
			continue
		}

		last, err := h.messages.GetLastDirectMessage(userID, peerID)
		if err != nil {
			continue
		}

		conversations = append(conversations, gin.H{
			"user": gin.H{
				"id":        peer.ID,
				"name":      peer.Name,
				"is_online": peer.IsOnline,
			},
			"last_message": dto.NewMessageResponse(last),
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// EditMessage правит свое сообщение; удаленное не редактируется
func (h *HTTPMessageHandler) EditMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req struct {
		Content string `json:"content" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messages.GetMessage(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	if message.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "you can only edit your own messages"})
		return
	}

	if message.IsDeleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot edit deleted message"})
		return
	}

	now := time.Now()
	message.Content = req.Content
	message.IsEdited = true
	message.EditedAt = &now

	if err := h.messages.UpdateMessage(message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update message"})
		return
	}

	h.broadcastUpdate(message, ws.TypeMessageEdited, c)
}

// DeleteMessage — мягкое удаление: содержимое заменяется заглушкой безвозвратно
func (h *HTTPMessageHandler) DeleteMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	message, err := h.messages.GetMessage(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	if message.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "you can only delete your own messages"})
		return
	}

	now := time.Now()
	message.IsDeleted = true
	message.DeletedAt = &now
	message.Content = models.DeletedPlaceholder

	if err := h.messages.UpdateMessage(message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}

	h.broadcastUpdate(message, ws.TypeMessageDeleted, c)
}

// ToggleReaction — HTTP-путь реакции; политика та же, что у сокета:
// переключается только указанное эмодзи
func (h *HTTPMessageHandler) ToggleReaction(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messages.GetMessage(c.Param("messageId"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return
	}

	if err := h.messages.ToggleReaction(message.ID, userID, req.Emoji); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle reaction"})
		return
	}

	h.broadcastUpdate(message, ws.TypeMessageReactionUpdated, c)
}

// broadcastUpdate перечитывает сообщение, шлет событие в комнаты доставки
// и отвечает инициатору этим же представлением
func (h *HTTPMessageHandler) broadcastUpdate(message *models.Message, t ws.EventType, c *gin.Context) {
	resolved, err := h.messages.GetMessageResolved(message.ID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return
	}

	response := dto.NewMessageResponse(resolved)
	for _, room := range deliveryRooms(message) {
		h.relay.emitToRoom(room, t, response)
	}

	c.JSON(http.StatusOK, response)
}

func formatMessages(messages []models.Message) []dto.MessageResponse {
	result := make([]dto.MessageResponse, len(messages))
	for i := range messages {
		result[i] = dto.NewMessageResponse(&messages[i])
	}
	return result
}

func parseOptionalID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
