package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/storytailer/api/internal/client"
	"github.com/storytailer/api/internal/config"
	"github.com/storytailer/api/internal/handler"
	"github.com/storytailer/api/internal/middleware"
	"github.com/storytailer/api/internal/repository"
	"github.com/storytailer/api/internal/service"
	ws "github.com/storytailer/api/internal/websocket"
	"github.com/storytailer/api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	setupLogger(cfg)

	// Redis backs the story repository, the job queue and the rate
	// limiter. Without it the server still comes up on in-memory
	// fallbacks for local development.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	redisAvailable := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisAvailable = false
		log.Warn().Err(err).Msg("Redis not available, using in-memory storage")
	}

	var repo repository.StoryRepository
	var limiterRedis *redis.Client
	if redisAvailable {
		repo = repository.NewRedisStoryRepository(redisClient)
		limiterRedis = redisClient
	} else {
		repo = repository.NewMemoryStoryRepository()
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	var blobs client.BlobStore
	if cfg.S3.Bucket != "" && cfg.S3.AccessKeyID != "" {
		s3Store, err := client.NewS3Store(&cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 store")
		}
		blobs = s3Store
	} else {
		log.Warn().Msg("S3 not configured, using in-memory blob storage")
		blobs = client.NewMemoryStore()
	}

	ollamaClient, err := client.NewOllamaClient(&cfg.Ollama)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Ollama client")
	}
	piperClient := client.NewPiperClient(&cfg.Piper)

	dispatcher := service.NewAsynqDispatcher(asynqClient)
	storyService := service.NewStoryService(
		repo,
		blobs,
		service.NewGenerator(ollamaClient),
		service.NewSynthesizer(piperClient, blobs),
		dispatcher,
		hub,
	)

	storyHandler := handler.NewStoryHandler(storyService, blobs, validate)
	rateLimiter := middleware.NewRateLimiter(limiterRedis)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    25 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":  redisAvailable,
				"ollama": ollamaClient.IsConfigured(),
				"piper":  piperClient.IsConfigured(),
			},
		})
	})

	api := app.Group("/api")
	if cfg.Auth.JWTSecret != "" {
		authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
		api.Use(authMiddleware.Authenticate())
	}

	api.Post("/stories/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), storyHandler.Generate)
	api.Get("/stories", storyHandler.List)
	api.Get("/stories/:storyId", storyHandler.Get)
	api.Delete("/stories/:storyId", storyHandler.Delete)
	api.Get("/files/*", storyHandler.File)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/stories/:storyId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("storyId"))
	}))

	go startWorkerServer(cfg, storyService)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Msg("Server starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Server.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Server.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info().
			Int("status", c.Response().StatusCode()).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Dur("latency", time.Since(start)).
			Msg("request")
		return err
	}
}

func startWorkerServer(cfg *config.Config, storyService *service.StoryService) {
	asynqLogLevel := asynq.InfoLevel
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug":
		asynqLogLevel = asynq.DebugLevel
	case "warn":
		asynqLogLevel = asynq.WarnLevel
	case "error":
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// Generation is model-bound; a small worker pool keeps the
			// Ollama and Piper backends from thrashing.
			Concurrency: 2,
			Queues: map[string]int{
				service.QueueStories: 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	storyWorker := worker.NewStoryWorker(storyService)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeGenerateStory, storyWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Error().Err(err).Msg("Asynq worker error")
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
