package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"messenger-service/internal/config"
	"messenger-service/internal/db"
	"messenger-service/internal/handlers"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

const serviceName = "messenger-service"

func main() {
	cfg := config.Load()

	zapLogger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	database, err := db.Connect(cfg.DBDSN, logger)
	if err != nil {
		logger.Fatalw("failed to connect to db", "error", err)
	}
	defer database.Close()

	shutdownTracing, err := observability.InitTracing(context.Background(), cfg.OTLPEndpoint, serviceName)
	if err != nil {
		logger.Fatalw("failed to init tracing", "error", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Errorw("tracing shutdown failed", "error", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(logger, cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)

	audit := telemetry.NewAuditEmitter(logger, publisher, "audit.messenger", serviceName, cfg.Environment)

	chatRepo := repositories.NewChatRepo(database, logger)
	memberRepo := repositories.NewMemberRepo(database, logger)
	messageRepo := repositories.NewMessageRepo(database, logger)
	userRepo := repositories.NewUserRepo(database)

	chatHandler := handlers.NewChatHandler(chatRepo, memberRepo, audit)
	memberHandler := handlers.NewMemberHandler(memberRepo, audit)
	messageHandler := handlers.NewMessageHandler(messageRepo, userRepo, audit)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.DebugRoutes {
		router.GET("/debug/publisher", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"mode": rabbitmq.PublisherMode(publisher)})
		})
	}

	auth := middleware.Auth(cfg.JWTSecret)

	chats := router.Group("/chats", auth)
	{
		chats.POST("", chatHandler.CreateChat)
		chats.GET("", chatHandler.ListChats)
		chats.GET("/:chat_id", chatHandler.GetChat)
		chats.PATCH("/:chat_id", chatHandler.ModifyGroup)
		chats.DELETE("/:chat_id/me", memberHandler.LeaveChat)
		chats.POST("/:chat_id/read", memberHandler.MarkRead)

		chats.GET("/:chat_id/members", memberHandler.ListMembers)
		chats.POST("/:chat_id/members", memberHandler.AddMembers)
		chats.DELETE("/:chat_id/members/:user_id", memberHandler.RemoveMember)
		chats.POST("/:chat_id/owner", memberHandler.TransferOwnership)

		chats.POST("/:chat_id/messages", messageHandler.SendMessage)
		chats.GET("/:chat_id/messages", messageHandler.SearchMessages)
		chats.PATCH("/:chat_id/messages/:message_id", messageHandler.UpdateMessage)
		chats.PUT("/:chat_id/messages/:message_id/pin", messageHandler.PinMessage)
		chats.DELETE("/:chat_id/messages/:message_id", messageHandler.DeleteMessage)
	}

	logger.Infow("starting server", "port", cfg.Port, "publisher", rabbitmq.PublisherMode(publisher))
	if err := router.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Fatalw("server error", "error", err)
	}
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
