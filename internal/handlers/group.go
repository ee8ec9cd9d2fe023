package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mlashkov/wavechat/internal/database"
	"github.com/mlashkov/wavechat/internal/middleware"
	"github.com/mlashkov/wavechat/internal/models"
)

type GroupHandler struct {
	groups database.GroupStore
}

func NewGroupHandler(groups database.GroupStore) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// CreateGroup создает группу; создатель становится участником автоматически
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		ImageURL    string   `json:"image_url"`
		MemberIDs   []string `json:"member_ids"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberIDs, err := parseMemberIDs(req.MemberIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	group := &models.Group{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CreatedBy:   userID,
		CreatedAt:   time.Now(),
	}

	if err := h.groups.CreateGroup(group, memberIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create group"})
		return
	}

	fullGroup, err := h.groups.GetGroup(group.ID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
		return
	}

	c.JSON(http.StatusCreated, formatGroupResponse(fullGroup))
}

// MyGroups — группы текущего пользователя
func (h *GroupHandler) MyGroups(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	groups, err := h.groups.GetUserGroups(userID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get groups"})
		return
	}

	result := make([]gin.H, len(groups))
	for i := range groups {
		result[i] = formatGroupResponse(&groups[i])
	}

	c.JSON(http.StatusOK, gin.H{"groups": result})
}

// AddMembers добавляет участников; разрешено только создателю
func (h *GroupHandler) AddMembers(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	groupID := c.Param("id")

	group, err := h.groups.GetGroup(groupID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}

	if group.CreatedBy != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only group creator can add members"})
		return
	}

	var req struct {
		MemberIDs []string `json:"member_ids" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberIDs, err := parseMemberIDs(req.MemberIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	if err := h.groups.AddGroupMembers(groupID, memberIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add members"})
		return
	}

	updated, err := h.groups.GetGroup(groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
		return
	}

	c.JSON(http.StatusOK, formatGroupResponse(updated))
}

// LeaveGroup выводит пользователя из группы
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	groupID := c.Param("id")

	if _, err := h.groups.GetGroup(groupID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}

	if err := h.groups.RemoveGroupMember(groupID, userID.String()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left group successfully"})
}

func parseMemberIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// formatGroupResponse форматирует ответ для группы
func formatGroupResponse(group *models.Group) gin.H {
	members := make([]gin.H, len(group.Members))
	for i, member := range group.Members {
		members[i] = gin.H{
			"id":        member.ID,
			"name":      member.Name,
			"is_online": member.IsOnline,
		}
	}

	return gin.H{
		"id":          group.ID,
		"name":        group.Name,
		"description": group.Description,
		"image_url":   group.ImageURL,
		"created_by":  group.CreatedBy,
		"created_at":  group.CreatedAt,
		"members":     members,
	}
}
