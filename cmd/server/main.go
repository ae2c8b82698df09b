package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"allchat/internal/config"
	"allchat/internal/database"
	"allchat/internal/handlers"
	"allchat/internal/jobs"
	"allchat/internal/llm"
	"allchat/internal/logging"
	"allchat/internal/middleware"
	"allchat/internal/platform"
	"allchat/internal/services"
	"allchat/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	logging.Init()

	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ No .env file found, using environment variables")
	}

	cfg := config.Load()
	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET is required")
	}
	if cfg.ProvidersFile != "" {
		if pf, err := config.LoadProviders(cfg.ProvidersFile); err == nil {
			pf.Apply(cfg)
			log.Printf("✅ Provider overrides loaded from %s", cfg.ProvidersFile)
		} else {
			log.Printf("⚠️ Providers file unreadable, using environment config: %v", err)
		}
	}

	ctx := context.Background()

	// MongoDB is required.
	db, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())
	if err := db.Initialize(ctx); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB: %v", err)
	}

	// Redis is optional; without it webhook dedup degrades to first-seen.
	var dedup *services.DedupService
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Invalid REDIS_URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️ Redis unreachable, webhook dedup disabled: %v", err)
		} else {
			dedup = services.NewDedupService(redisClient)
			log.Println("✅ Redis connected, webhook dedup enabled")
		}
	}

	registry := llm.NewRegistry(buildProviders(ctx, cfg))
	if cfg.ProvidersFile != "" {
		go watchProvidersFile(ctx, cfg, registry)
	}

	jwtAuth, err := auth.NewJWTAuth(cfg.JWTSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)
	if err != nil {
		log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
	}

	// Services.
	metrics := services.InitMetrics()
	tenantService := services.NewTenantService(db)
	conversationService := services.NewConversationService(db)
	userService := services.NewUserService(db)
	replyService := services.NewReplyService(tenantService, conversationService, registry, metrics)
	turnLimiter := services.NewTurnLimiter(cfg.TurnRatePerMinute, cfg.TurnRateBurst)
	sessionRegistry := services.NewSessionRegistry(cfg.AssistantSessionTTL)
	assistantService := services.NewAssistantService(tenantService, registry, sessionRegistry)

	lineClient := platform.NewLineClient()
	facebookClient := platform.NewFacebookClient()

	// Handlers.
	authHandler := handlers.NewAuthHandler(userService, tenantService, jwtAuth)
	tenantHandler := handlers.NewTenantHandler(tenantService)
	userHandler := handlers.NewUserHandler(userService, tenantService)
	webhookHandler := handlers.NewWebhookHandler(tenantService, conversationService, replyService, dedup, turnLimiter, metrics, lineClient, facebookClient)
	chatHandler := handlers.NewChatHandler(tenantService, replyService, turnLimiter)
	inboxHandler := handlers.NewInboxHandler(tenantService, conversationService, lineClient, facebookClient)
	assistantHandler := handlers.NewAssistantHandler(assistantService)
	healthHandler := handlers.NewHealthHandler(db)

	app := fiber.New(fiber.Config{
		AppName:      "AllChat Backend",
		ErrorHandler: errorHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New())

	prometheus := fiberprometheus.New("allchat")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Routes.
	app.Get("/health", healthHandler.Check)

	app.Post("/webhook/line/:tenantId", webhookHandler.Line)
	app.Get("/webhook/facebook/:tenantId", webhookHandler.FacebookVerify)
	app.Post("/webhook/facebook/:tenantId", webhookHandler.Facebook)

	api := app.Group("/api")

	// Brute-force protection on the credential endpoints.
	authRoutes := api.Group("/auth", limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
	}))
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/refresh", authHandler.Refresh)

	chat := api.Group("/chat/:tenantId")
	chat.Get("/welcome", chatHandler.Welcome)
	chat.Post("/message", chatHandler.Message)

	protected := api.Group("", middleware.AuthMiddleware(jwtAuth))
	protected.Get("/users/me", userHandler.Me)

	tenant := protected.Group("/tenants/:tenantId", middleware.RequireTenantRole(userService, "admin", "agent"))
	tenant.Get("", tenantHandler.Get)
	tenant.Patch("", middleware.RequireTenantRole(userService, "admin"), tenantHandler.Update)
	tenant.Post("/assistant", middleware.RequireTenantRole(userService, "admin"), assistantHandler.Message)
	tenant.Get("/conversations", inboxHandler.List)
	tenant.Get("/conversations/:userId", inboxHandler.Get)
	tenant.Post("/conversations/:userId/read", inboxHandler.MarkRead)
	tenant.Post("/conversations/:userId/messages", inboxHandler.SendMessage)

	// Background jobs.
	runner, err := jobs.NewRunner()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	if err := runner.RegisterSessionEviction(sessionRegistry, 5*time.Minute); err != nil {
		log.Fatalf("❌ Failed to register jobs: %v", err)
	}
	runner.Start()

	go func() {
		log.Printf("🚀 AllChat backend listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	runner.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("⚠️ Server shutdown error: %v", err)
	}
	log.Println("✅ Shutdown complete")
}

// buildProviders constructs the primary/fallback model handles from the
// current configuration. Either may come back nil when unconfigured.
func buildProviders(ctx context.Context, cfg *config.Config) (llm.PrimaryModel, llm.SecondaryModel) {
	var primary llm.PrimaryModel
	if cfg.GeminiAPIKey != "" {
		p, err := llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Printf("⚠️ Gemini provider init failed: %v", err)
		} else {
			primary = p
			log.Printf("✅ Primary provider ready: %s", cfg.GeminiModel)
		}
	} else {
		log.Println("⚠️ GEMINI_API_KEY not set, primary provider disabled")
	}

	var secondary llm.SecondaryModel
	if cfg.OpenAIAPIKey != "" {
		s, err := llm.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			log.Printf("⚠️ Fallback provider init failed: %v", err)
		} else {
			secondary = s
			log.Printf("✅ Fallback provider ready: %s", cfg.OpenAIModel)
		}
	} else {
		log.Println("⚠️ OPENAI_API_KEY not set, fallback provider disabled")
	}

	return primary, secondary
}

// watchProvidersFile hot-reloads provider settings when the file changes.
func watchProvidersFile(ctx context.Context, cfg *config.Config, registry *llm.Registry) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️ Providers file watcher unavailable: %v", err)
		return
	}
	defer watcher.Close()

	// Watch the directory: editors replace files, which drops inode watches.
	dir := filepath.Dir(cfg.ProvidersFile)
	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️ Failed to watch %s: %v", dir, err)
		return
	}

	target := filepath.Clean(cfg.ProvidersFile)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			pf, err := config.LoadProviders(cfg.ProvidersFile)
			if err != nil {
				log.Printf("⚠️ Providers file reload failed: %v", err)
				continue
			}

			next := *cfg
			pf.Apply(&next)
			registry.Swap(buildProviders(ctx, &next))
			log.Println("🔄 Providers reloaded from file")

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️ Providers file watcher error: %v", err)
		}
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
