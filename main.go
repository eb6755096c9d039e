package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attempt-service/config"
	"attempt-service/internal/handlers"
	"attempt-service/internal/middleware"
	"attempt-service/internal/repository"
	"attempt-service/internal/service"
	"attempt-service/pkg/cache"
	"attempt-service/pkg/database"
	"attempt-service/pkg/messaging"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	log.Println("Configuration loaded")

	pgClient, err := database.NewPostgresClient(&cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("Connected to PostgreSQL")
	defer pgClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := pgClient.InitSchema(ctx); err != nil {
		log.Printf("Warning: Failed to initialize PostgreSQL schema: %v", err)
	} else {
		log.Println("PostgreSQL schema initialized")
	}
	cancel()

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		redisClient = nil
	} else {
		log.Println("Connected to Redis")
		defer redisClient.Close()
	}

	rabbitClient, err := messaging.NewRabbitMQClient(&cfg.RabbitMQ)
	if err != nil {
		log.Printf("Warning: Failed to connect to RabbitMQ: %v", err)
		rabbitClient = nil
	} else {
		log.Println("Connected to RabbitMQ")
		defer rabbitClient.Close()
	}

	db := pgClient.GetDB()

	attemptRepo := repository.NewAttemptRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	entityRepo := repository.NewEntityRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	wrongAnswerRepo := repository.NewWrongAnswerRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)

	var publisher service.Publisher
	if rabbitClient != nil {
		publisher = rabbitClient
	}
	var dashboardCache service.Cache
	var cacheInvalidator service.CacheInvalidator
	if redisClient != nil {
		dashboardCache = redisClient
		cacheInvalidator = redisClient
	}

	attemptService := service.NewAttemptService(attemptRepo, answerRepo, entityRepo, publisher, cacheInvalidator)
	analyticsService := service.NewAnalyticsService(analyticsRepo, entityRepo)
	dashboardService := service.NewDashboardService(
		attemptRepo,
		analyticsRepo,
		subscriptionRepo,
		notificationRepo,
		bookmarkRepo,
		dashboardCache,
	)
	wrongAnswerService := service.NewWrongAnswerService(wrongAnswerRepo, entityRepo)

	attemptHandler := handlers.NewAttemptHandler(attemptService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	wrongAnswerHandler := handlers.NewWrongAnswerHandler(wrongAnswerService)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "attempt-service",
		})
	})

	auth := middleware.JWTAuth(cfg.JWT.Secret)

	attemptsGroup := router.Group("/attempts")
	attemptsGroup.Use(auth)
	{
		attemptsGroup.POST("", attemptHandler.Start)
		attemptsGroup.GET("", attemptHandler.History)
		attemptsGroup.POST("/answer", attemptHandler.SubmitAnswer)
		attemptsGroup.POST("/:id/complete", attemptHandler.Complete)
	}

	analyticsGroup := router.Group("/analytics")
	analyticsGroup.Use(auth)
	{
		analyticsGroup.GET("/performance", analyticsHandler.Performance)
		analyticsGroup.GET("/progress", analyticsHandler.Progress)
		analyticsGroup.GET("/weak-areas", analyticsHandler.WeakAreas)
		analyticsGroup.GET("/study-patterns", analyticsHandler.StudyPatterns)
	}

	dashboardGroup := router.Group("/dashboard")
	dashboardGroup.Use(auth)
	{
		dashboardGroup.GET("/stats", dashboardHandler.Stats)
	}

	wrongAnswersGroup := router.Group("/wrong-answers")
	wrongAnswersGroup.Use(auth)
	{
		wrongAnswersGroup.GET("", wrongAnswerHandler.List)
		wrongAnswersGroup.GET("/by-category", wrongAnswerHandler.ByCategory)
		wrongAnswersGroup.GET("/most-missed", wrongAnswerHandler.MostMissed)
		wrongAnswersGroup.GET("/trends", wrongAnswerHandler.Trends)
	}

	addr := ":" + cfg.Server.HTTPPort
	log.Printf("Attempt Service starting on %s", addr)

	go func() {
		if err := router.Run(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Attempt Service stopped")
}
