package server

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mlashkov/wavechat/internal/handlers"
	"github.com/mlashkov/wavechat/internal/middleware"
	authpkg "github.com/mlashkov/wavechat/pkg/auth"
)

func APIEndpoints(
	r *gin.Engine,
	jwtMgr *authpkg.JWTManager,
	rdb *redis.Client,
	uploadDir string,
	authH *handlers.AuthHandler,
	userH *handlers.UserHandler,
	groupH *handlers.GroupHandler,
	messageH *handlers.HTTPMessageHandler,
	wsH *handlers.WebSocketHandler,
) {
	requireAuth := middleware.RequireAuth(jwtMgr, rdb, false)

	// Auth endpoints
	auth := r.Group("/auth")
	{
		auth.POST("/join", authH.Join)
		auth.POST("/logout", requireAuth, authH.Logout)
	}

	// API endpoints
	api := r.Group("/api/v1", requireAuth)
	{
		api.GET("/users", userH.ListUsers)
		api.GET("/users/profile", userH.Profile)

		api.POST("/groups", groupH.CreateGroup)
		api.GET("/groups/my-groups", groupH.MyGroups)
		api.POST("/groups/:id/members", groupH.AddMembers)
		api.DELETE("/groups/:id/leave", groupH.LeaveGroup)

		api.POST("/messages", messageH.SendMessage)
		api.GET("/messages/chat/:userId", messageH.ChatHistory)
		api.GET("/messages/group/:groupId", messageH.GroupHistory)
		api.GET("/messages/conversations", messageH.Conversations)
		api.PUT("/messages/:messageId", messageH.EditMessage)
		api.DELETE("/messages/:messageId", messageH.DeleteMessage)
		api.POST("/messages/:messageId/reactions", messageH.ToggleReaction)
	}

	// WebSocket: credential проверяется до апгрейда
	r.GET("/ws", middleware.RequireAuth(jwtMgr, rdb, true), wsH.HandleWebSocket)

	r.Static("/uploads", uploadDir)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
