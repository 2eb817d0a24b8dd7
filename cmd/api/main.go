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

	pkgvalidator "github.com/meetsync-team/meetsync/pkg/validator"

	"github.com/meetsync-team/meetsync/internal/adapter/handler"
	"github.com/meetsync-team/meetsync/internal/adapter/repository"
	"github.com/meetsync-team/meetsync/internal/infrastructure/cache"
	"github.com/meetsync-team/meetsync/internal/infrastructure/database"
	"github.com/meetsync-team/meetsync/internal/infrastructure/external/bot"
	"github.com/meetsync-team/meetsync/internal/infrastructure/external/calendar"
	"github.com/meetsync-team/meetsync/internal/infrastructure/external/oauth"
	"github.com/meetsync-team/meetsync/internal/usecase/auth"
	"github.com/meetsync-team/meetsync/internal/usecase/scheduler"
	"github.com/meetsync-team/meetsync/internal/usecase/sync"
	"github.com/meetsync-team/meetsync/internal/usecase/watch"
	"github.com/meetsync-team/meetsync/pkg/config"
	"github.com/meetsync-team/meetsync/pkg/jwt"
)

// @title           MeetSync API
// @version         1.0
// @description     Calendar reconciliation engine with adaptive sync scheduling and meeting bot integration

// @host      localhost:8080
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Set-Cookie", "Cookie"},
		AllowCredentials: true,
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run migrations only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Running migrations (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping migrations; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Initialize Redis
	log.Println("📦 Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	userRepo := repository.NewUserRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	watchRepo := repository.NewWatchRepository(db)
	syncLogRepo := repository.NewSyncLogRepository(db)

	// Initialize OAuth provider
	log.Println("🔐 Initializing OAuth provider...")
	googleProvider := oauth.NewGoogleProvider(
		cfg.OAuth.Google.ClientID,
		cfg.OAuth.Google.ClientSecret,
		cfg.OAuth.Google.RedirectURL,
	)

	// Initialize state manager with Redis for CSRF protection
	log.Println("🔒 Initializing state manager...")
	stateManager := oauth.NewStateManager(cache.NewRedisStore(redisClient))

	// Initialize JWT manager
	log.Println("🔑 Initializing JWT manager...")
	jwtManager := jwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry)

	// Initialize OAuth service
	log.Println("✨ Initializing OAuth service...")
	oauthService := auth.NewOAuthService(userRepo, googleProvider, stateManager, jwtManager)

	// Initialize calendar backends
	log.Println("📅 Initializing calendar clients...")
	googleCalendar := calendar.NewGoogleClient(googleProvider.Config(), cfg.Watch.WebhookURL, cfg.Watch.TTL)
	icsCalendar := calendar.NewICSClient(cfg.Sync.ProviderTimeout)

	// Initialize bot gateway client
	botClient := bot.NewClient(cfg.Bot.BaseURL, cfg.Bot.APIKey)
	if !botClient.Enabled() {
		log.Println("⚠️  Bot gateway not configured, auto-record disabled")
	}

	// Initialize sync engine
	log.Println("🔁 Initializing sync engine...")
	credentials := sync.NewCredentialProvider(userRepo, googleProvider, logger)
	syncService := sync.NewService(
		userRepo,
		meetingRepo,
		watchRepo,
		syncLogRepo,
		googleCalendar,
		icsCalendar,
		credentials,
		botClient,
		cfg.Sync,
		logger,
	)

	// Initialize watch lifecycle manager
	log.Println("📡 Initializing watch manager...")
	watchManager := watch.NewManager(watchRepo, userRepo, googleCalendar, credentials, cfg.Watch, logger)

	// Initialize adaptive scheduler and start actors for connected users
	log.Println("⏱️  Initializing sync scheduler...")
	syncScheduler := scheduler.NewScheduler(syncService, cfg.Sync, logger)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	connected, err := userRepo.ListConnected(bootCtx)
	bootCancel()
	if err != nil {
		log.Printf("⚠️  Failed to list connected users: %v", err)
	} else {
		for _, user := range connected {
			syncScheduler.Start(user.ID)
		}
		log.Printf("✅ Started sync actors for %d users", len(connected))
	}

	// Background loops: watch renewal and sync log pruning
	bgCtx, bgCancel := context.WithCancel(context.Background())
	go watchManager.RunRenewalLoop(bgCtx)
	go func() {
		ticker := time.NewTicker(12 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-bgCtx.Done():
				return
			case <-ticker.C:
				syncService.PruneLogs(bgCtx)
			}
		}
	}()

	// Initialize handlers
	log.Println("🚀 Initializing handlers...")
	authHandler := handler.NewAuth(oauthService, logger)
	syncHandler := handler.NewSync(syncService, watchManager, syncScheduler, userRepo, logger)
	meetingHandler := handler.NewMeeting(meetingRepo, logger)
	webhookHandler := handler.NewWebhook(watchRepo, syncScheduler, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, authHandler, syncHandler, meetingHandler, webhookHandler, oauthService)
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

	bgCancel()
	syncScheduler.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
