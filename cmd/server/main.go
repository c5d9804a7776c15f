package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/yukikurage/noel-en-famille/internal/config"
	"github.com/yukikurage/noel-en-famille/internal/database"
	"github.com/yukikurage/noel-en-famille/internal/handlers"
	"github.com/yukikurage/noel-en-famille/internal/logging"
	"github.com/yukikurage/noel-en-famille/internal/mailer"
	"github.com/yukikurage/noel-en-famille/internal/metrics"
	"github.com/yukikurage/noel-en-famille/internal/middleware"
	"github.com/yukikurage/noel-en-famille/internal/realtime"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"github.com/yukikurage/noel-en-famille/internal/scheduler"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"github.com/yukikurage/noel-en-famille/internal/storage"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)
	if cfg.IsProduction() && !cfg.CookieSecure {
		logger.Warn("COOKIE_SECURE is off in release mode; auth cookies will be sent over plain HTTP")
	}

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	db := database.GetDB()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	registry := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)
	hub := realtime.NewHub(metrics.NewRealtimeMetrics(registry))

	// Cross-instance realtime fan-out
	if cfg.RedisURL != "" {
		rdb, err := realtime.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		relay := realtime.NewRedisRelay(rdb, hub)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("realtime relay stopped", zap.Error(err))
			}
		}()
	}

	images, err := storage.NewLocalImageStore(storage.Options{
		Dir:        cfg.UploadDir,
		PublicPath: cfg.PublicUploadPath,
		MaxBytes:   cfg.MaxUploadBytes,
		MaxPixels:  cfg.MaxImagePixels,
	})
	if err != nil {
		logger.Fatal("failed to prepare upload directory", zap.Error(err))
	}

	var mail services.Mailer = mailer.LogMailer{}
	if cfg.MailEnabled() {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	// Initialize AI service
	var suggester services.IngredientSuggester
	if cfg.OpenAIAPIKey != "" {
		suggester = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	codeRepo := repository.NewEventCodeRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	contributionRepo := repository.NewContributionRepository(db)
	menuRepo := repository.NewMenuRepository(db)
	pollRepo := repository.NewPollRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// Services
	clock := clockwork.NewRealClock()
	tokens := services.NewTokenService(services.TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, clock)
	authService := services.NewAuthService(userRepo, eventRepo, codeRepo, refreshRepo, tokens)
	eventService := services.NewEventService(eventRepo, images)
	chatService := services.NewChatService(chatRepo, images, hub)
	reminderService := services.NewReminderService(taskRepo, mail, clock)
	adminService := services.NewAdminService(services.AdminDeps{
		Codes:    codeRepo,
		Users:    userRepo,
		Refresh:  refreshRepo,
		Stats:    repository.NewStatsRepository(db),
		Events:   eventService,
		Images:   images,
		Realtime: hub,
		Clock:    clock,
	})

	// Background jobs
	jobs := scheduler.New(scheduler.DefaultJobTimeout)
	if err := jobs.Add("refresh-token-purge", scheduler.TokenPurgeSpec, scheduler.TokenPurgeJob(authService)); err != nil {
		logger.Fatal("failed to schedule token purge", zap.Error(err))
	}
	if cfg.ReminderSchedule != "" {
		if err := jobs.Add("reminders", cfg.ReminderSchedule, scheduler.ReminderJob(reminderService)); err != nil {
			logger.Fatal("failed to schedule reminders", zap.Error(err))
		}
	}
	jobs.Start()

	// Initialize Gin router
	r := gin.New()
	r.Use(middleware.RequestLogger(logger), middleware.Recovery(logger), httpMetrics.Middleware())

	rt := &handlers.Router{
		Auth:          handlers.NewAuthHandler(authService, handlers.CookieConfig{Secure: cfg.CookieSecure}),
		Events:        handlers.NewEventHandler(eventService),
		Contributions: handlers.NewContributionHandler(services.NewContributionService(contributionRepo, menuRepo, images, hub)),
		Polls:         handlers.NewPollHandler(services.NewPollService(pollRepo, hub, clock)),
		Tasks:         handlers.NewTaskHandler(services.NewTaskService(taskRepo, eventRepo, hub)),
		Chat:          handlers.NewChatHandler(chatService),
		Menu:          handlers.NewMenuHandler(services.NewMenuService(menuRepo, eventRepo, suggester, hub)),
		Profile:       handlers.NewProfileHandler(services.NewProfileService(userRepo, images)),
		Admin:         handlers.NewAdminHandler(adminService, eventService, chatService),
		Reminders:     handlers.NewReminderHandler(reminderService),
		Realtime:      realtime.NewHandler(hub, authService, eventService, cfg.Origins()).Serve,
		Authenticator: authService,
		AccessChecker: eventService,
		LoginLimiter:  middleware.NewIPRateLimiter(cfg.LoginRatePerMinute),
		CronSecret:    cfg.CronSecret,
	}
	rt.Register(r)

	r.Static(images.PublicPath(), images.Dir())
	r.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduled jobs did not finish in time", zap.Error(err))
	}
	cancel()
	hub.Close()

	logger.Info("server stopped")
}
