package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/apaluca/PrivateChat/internal/auth"
	"github.com/apaluca/PrivateChat/internal/config"
	"github.com/apaluca/PrivateChat/internal/core"
	"github.com/apaluca/PrivateChat/internal/store"
)

// NewServer builds the HTTP server: health check, the WebSocket relay
// endpoint, public auth routes, and the authenticated REST API.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, logger)))

	apiHandlers := NewAPIHandlers(authService, st, logger)
	roomHandlers := NewRoomHandlers(hub, st, logger)
	groupHandlers := NewGroupHandlers(hub, st, logger)
	convHandlers := NewConversationHandlers(st, logger)

	api := router.Group("/api")
	{
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(authService, logger))
		{
			protected.GET("/me", apiHandlers.Me)
			protected.GET("/users/search", apiHandlers.SearchUsers)
			protected.GET("/presence", presenceHandler(hub))

			protected.GET("/messages", roomHandlers.GlobalMessages)
			protected.GET("/rooms", roomHandlers.ListRooms)
			protected.POST("/rooms", roomHandlers.CreateRoom)
			protected.GET("/rooms/:id/messages", roomHandlers.RoomMessages)

			protected.GET("/groups", groupHandlers.ListGroups)
			protected.POST("/groups", groupHandlers.CreateGroup)
			protected.GET("/groups/:id/members", groupHandlers.GroupMembers)
			protected.POST("/groups/:id/members", groupHandlers.AddMember)
			protected.DELETE("/groups/:id/members/:userId", groupHandlers.RemoveMember)
			protected.GET("/groups/:id/messages", groupHandlers.GroupMessages)

			protected.GET("/conversations", convHandlers.ListConversations)
			protected.GET("/conversations/:id/messages", convHandlers.ConversationMessages)
		}
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// PresenceUser represents an online user in the presence response.
type PresenceUser struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

func presenceHandler(hub *core.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		online := hub.Registry().OnlineUsers()
		response := make([]PresenceUser, 0, len(online))
		for _, identity := range online {
			response = append(response, PresenceUser{
				UserID:   identity.UserID,
				Username: identity.Username,
			})
		}
		c.JSON(stdhttp.StatusOK, response)
	}
}
