package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/haidang-dev/meeting-insight/pkg/validator"

	"github.com/haidang-dev/meeting-insight/internal/adapter/handler"
	"github.com/haidang-dev/meeting-insight/internal/adapter/repository"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/cache"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/database"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/external/email"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/external/graphstore"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/external/vectorstore"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/queue"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/storage"
	"github.com/haidang-dev/meeting-insight/internal/usecase/pipeline"
	"github.com/haidang-dev/meeting-insight/internal/usecase/rag"
	pkgai "github.com/haidang-dev/meeting-insight/pkg/ai"
	"github.com/haidang-dev/meeting-insight/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// Request IDs for log correlation
	e.Use(middleware.RequestID())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "X-User-ID", "X-Request-ID"},
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	log.Println("🔄 Applying schema migrations...")
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	// Initialize Redis
	log.Println("📦 Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(&cfg.Redis, cfg.GetRedisAddr())
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	meetingRepo := repository.NewMeetingRepository(db)
	chunkRepo := repository.NewChunkRepository(db)

	// Initialize the durable processing queue and its dispatcher
	log.Println("📮 Initializing processing queue...")
	jobQueue := queue.NewRedisQueue(redisClient, queue.Config{
		Name:              cfg.Queue.Name,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
		MaxRetries:        cfg.Queue.MaxRetries,
		RetentionPeriod:   24 * time.Hour,
	})

	// Initialize external clients
	log.Println("🤖 Initializing AI components...")
	llmClient := pkgai.NewOpenAIClient(&cfg.AI)
	vectorClient := vectorstore.NewClient(&cfg.Vector)
	graphClient := graphstore.NewClient(&cfg.Graph)

	// Email and recording archive are optional: leave them nil when not
	// configured and the pipeline skips those steps.
	var emailSender pipeline.EmailSender
	if cfg.Email.APIKey != "" {
		emailSender = email.NewClient(&cfg.Email)
	} else {
		log.Println("⚠️  EMAIL_API_KEY not set, summary emails disabled")
	}

	var archiver pipeline.Archiver
	var archiveSigner handler.ArchiveSigner
	if cfg.Storage.Endpoint != "" {
		minioClient, err := storage.NewMinIOClient(&cfg.Storage)
		if err != nil {
			log.Printf("⚠️  MinIO unavailable, recording archive disabled: %v", err)
		} else {
			archiver = minioClient
			archiveSigner = minioClient
		}
	}

	// Initialize pipeline service
	log.Println("🏗️  Initializing processing pipeline...")
	pipelineService := pipeline.NewService(
		meetingRepo,
		chunkRepo,
		jobQueue,
		llmClient,
		vectorClient,
		graphClient,
		emailSender,
		archiver,
		logger,
	)

	// Initialize RAG chat service with the Redis-backed response cache
	log.Println("💬 Initializing chat service...")
	responseCache := cache.NewResponseCache(cache.NewRedisStore(redisClient), logger)
	ragService := rag.NewService(meetingRepo, llmClient, vectorClient, graphClient, responseCache, logger)

	// Start the queue dispatcher
	dispatcher := pipeline.NewDispatcher(jobQueue, &cfg.Queue, logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	// Initialize handlers
	log.Println("🪝 Initializing handlers...")
	webhookHandler := handler.NewBotWebhook(pipelineService, cfg.Webhook.Secret, logger)
	workerHandler := handler.NewWorker(pipelineService, cfg.Queue.DispatchSecret, logger)
	meetingHandler := handler.NewMeeting(meetingRepo, chunkRepo, pipelineService, archiveSigner, logger)
	chatHandler := handler.NewChat(ragService, logger)
	graphHandler := handler.NewGraph(graphClient, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, webhookHandler, workerHandler, meetingHandler, chatHandler, graphHandler, db, redisClient)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
