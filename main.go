package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"social-service/internal/auth"
	"social-service/internal/config"
	"social-service/internal/db"
	"social-service/internal/handlers"
	"social-service/internal/logger"
	"social-service/internal/middleware"
	"social-service/internal/observability"
	"social-service/internal/rabbitmq"
	"social-service/internal/repositories"
	"social-service/internal/resettoken"
	"social-service/internal/telemetry"
)

const serviceName = "social-service"

func main() {
	cfg, err := config.Load(os.Getenv("APP_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(!cfg.Production())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), serviceName, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		zlog.Fatalw("failed to set up tracing", "err", err)
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect(cfg.Database.DSN)
	if err != nil {
		zlog.Fatalw("failed to connect to db", "err", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, zlog)
	defer publisher.Close()
	zlog.Infow("event publisher ready", "mode", rabbitmq.PublisherMode(publisher))

	emitter := telemetry.NewAuditEmitter(publisher, "social.audit", serviceName, cfg.Server.Environment, zlog)

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	tokens := auth.NewManager(cfg.JWT.Secret, cfg.JWTExpiry)
	resets := resettoken.New(cfg.ResetTokenTTL)

	authHandler := handlers.NewAuthHandler(userRepo, tokens, resets, emitter, zlog, !cfg.Production())
	followHandler := handlers.NewFollowHandler(userRepo, emitter, zlog)
	messageHandler := handlers.NewMessageHandler(userRepo, messageRepo, emitter, zlog)
	userHandler := handlers.NewUserHandler(userRepo, zlog)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.RequestContextMiddleware(zlog))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(tokens, userRepo)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/reset-password", authHandler.ResetPassword)
	authGroup.GET("/me", authMiddleware, authHandler.Me)

	followGroup := api.Group("/follow", authMiddleware)
	followGroup.POST("", followHandler.Follow)
	followGroup.DELETE("/:username", followHandler.Unfollow)
	followGroup.GET("/status/:username", followHandler.Status)
	followGroup.GET("/followers/:username", followHandler.Followers)
	followGroup.GET("/following/:username", followHandler.Following)
	followGroup.GET("/counts/:username", followHandler.Counts)
	followGroup.GET("/suggestions", followHandler.Suggestions)

	messageGroup := api.Group("/messages", authMiddleware)
	messageGroup.POST("/send", messageHandler.Send)
	messageGroup.GET("/conversation/:username", messageHandler.Conversation)
	messageGroup.GET("/conversations", messageHandler.Conversations)
	messageGroup.POST("/mark-read/:username", messageHandler.MarkRead)
	messageGroup.PUT("/:message_id", messageHandler.Edit)
	messageGroup.DELETE("/:message_id", messageHandler.Delete)

	userGroup := api.Group("/users", authMiddleware)
	userGroup.GET("", userHandler.List)
	userGroup.GET("/search", userHandler.Search)
	userGroup.GET("/mentions", userHandler.Mentions)
	userGroup.GET("/:username", userHandler.Profile)

	handlers.RegisterDebugRoutes(router, emitter, !cfg.Production())

	zlog.Infow("starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		zlog.Fatalw("server error", "err", err)
	}
}
