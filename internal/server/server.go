package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/plume-sante/community-backend/internal/bodycodec"
	"github.com/plume-sante/community-backend/internal/handler"
	appmw "github.com/plume-sante/community-backend/internal/middleware"
	"github.com/plume-sante/community-backend/internal/repository"
	"github.com/plume-sante/community-backend/internal/service"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Server struct {
	e *echo.Echo
}

func New(db *gorm.DB, codec *bodycodec.Codec, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Person-ID"},
		AllowCredentials: true,
	}))

	convRepo := repository.NewConversationRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	personRepo := repository.NewPersonRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	notifSvc := service.NewNotificationService(notifRepo)
	convSvc := service.NewConversationService(db, convRepo, memberRepo, notifSvc)
	msgSvc := service.NewMessageService(db, msgRepo, convRepo, memberRepo, personRepo, codec, notifSvc)
	memberSvc := service.NewMembershipService(db, convRepo, memberRepo, msgRepo, reactionRepo, personRepo, notifSvc)
	readSvc := service.NewReadTracker(db, convRepo, memberRepo, msgRepo, notifSvc)
	summarySvc := service.NewSummaryService(convRepo, memberRepo, msgRepo, personRepo, codec)
	reactionSvc := service.NewReactionService(reactionRepo, msgRepo, memberRepo)

	convHandler := handler.NewConversationHandler(convSvc, memberSvc, summarySvc)
	msgHandler := handler.NewMessageHandler(msgSvc, readSvc)
	reactionHandler := handler.NewReactionHandler(reactionSvc)
	notifHandler := handler.NewNotificationHandler(notifSvc)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	api := e.Group("/api", appmw.RequirePerson)
	api.GET("/conversations", convHandler.List)
	api.POST("/conversations/direct", convHandler.CreateDirect)
	api.POST("/conversations/group", convHandler.CreateGroup)
	api.GET("/conversations/:id", convHandler.Get)
	api.POST("/conversations/:id/members", convHandler.AddMember)
	api.POST("/conversations/:id/leave", convHandler.Leave)
	api.DELETE("/conversations/:id", convHandler.DeleteGroup)
	api.POST("/conversations/:id/mute", convHandler.SetMuted)
	api.GET("/conversations/:id/messages", msgHandler.List)
	api.POST("/conversations/:id/messages", msgHandler.Post)
	api.PUT("/conversations/:id/messages/:msgId", msgHandler.Edit)
	api.DELETE("/conversations/:id/messages/:msgId", msgHandler.Delete)
	api.POST("/conversations/:id/read", msgHandler.MarkRead)
	api.GET("/conversations/:id/unread", msgHandler.UnreadCount)
	api.GET("/messages/:msgId/reactions", reactionHandler.List)
	api.POST("/messages/:msgId/reactions", reactionHandler.Add)
	api.DELETE("/messages/:msgId/reactions", reactionHandler.Remove)
	api.GET("/notifications", notifHandler.List)
	api.POST("/notifications/read", notifHandler.MarkAllRead)

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}
