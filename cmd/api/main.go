package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/auth"
	"github.com/BradenHooton/ticketdesk/internal/background"
	"github.com/BradenHooton/ticketdesk/internal/config"
	"github.com/BradenHooton/ticketdesk/internal/database"
	"github.com/BradenHooton/ticketdesk/internal/handlers"
	"github.com/BradenHooton/ticketdesk/internal/metrics"
	"github.com/BradenHooton/ticketdesk/internal/models"
	"github.com/BradenHooton/ticketdesk/internal/notify"
	"github.com/BradenHooton/ticketdesk/internal/reference"
	"github.com/BradenHooton/ticketdesk/internal/repositories"
	"github.com/BradenHooton/ticketdesk/internal/routes"
	"github.com/BradenHooton/ticketdesk/internal/services"
	pkgauth "github.com/BradenHooton/ticketdesk/pkg/auth"
	pkghttp "github.com/BradenHooton/ticketdesk/pkg/http"
	pkglogger "github.com/BradenHooton/ticketdesk/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	if cfg.Database.AutoMigrate {
		if err := migrate(cfg, logger); err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize database
	connectCtx, connectCancel := context.WithTimeout(context.Background(), time.Minute)
	db, err := database.NewConnection(connectCtx, &cfg.Database, logger)
	connectCancel()
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	m := metrics.New()
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize repositories
	refs := reference.NewAllocator(cfg.Reference.Prefix, cfg.Reference.Start)
	userRepo := repositories.NewUserRepository(db)
	complaintRepo := repositories.NewComplaintRepository(db, refs)
	historyRepo := repositories.NewStatusHistoryRepository(db)
	responseRepo := repositories.NewResponseRepository(db)
	resetTokenRepo := repositories.NewResetTokenRepository(db)

	// Notification delivery
	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize notifier", slog.Any("error", err))
		os.Exit(1)
	}
	dispatcher := notify.NewDispatcher(notifier, notify.DispatcherConfig{
		QueueSize:     cfg.Notify.QueueSize,
		MaxRetries:    cfg.Notify.MaxRetries,
		RatePerSecond: cfg.Notify.RatePerSecond,
	}, logger, m)

	// Initialize services
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry, userRepo)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Auth.LoginDelayBase,
		RandomDelay: cfg.Auth.LoginDelayJitter,
	})

	authService := services.NewAuthService(userRepo, tokenManager, timingDelay, logger, auditLogger)
	resetService := services.NewPasswordResetService(resetTokenRepo, userRepo, dispatcher, logger, auditLogger, m, services.PasswordResetConfig{
		TokenExpiry:         cfg.Reset.TokenExpiry,
		ConcealUnknownEmail: cfg.Reset.ConcealUnknownEmail,
	})
	complaintService := services.NewComplaintService(complaintRepo, historyRepo, responseRepo, logger, auditLogger, m, cfg.Reference.MaxAttempts)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, cfg.Auth, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	router := routes.NewRouter(routes.Dependencies{
		AuthHandler:      handlers.NewAuthHandler(authService, resetService, ipConfig),
		ComplaintHandler: handlers.NewComplaintHandler(complaintService),
		AdminHandler:     handlers.NewAdminHandler(complaintService),
		Tokens:           tokenManager,
		Health:           db,
		Metrics:          m,
		Logger:           logger,
		Env:              cfg.Server.Env,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		IPConfig:         ipConfig,
		AuthRateLimit:    cfg.Server.AuthRateLimit,
		WriteRateLimit:   cfg.Server.WriteRateLimit,
		RequestTimeout:   cfg.Server.RequestTimeout,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	cleanupManager := background.NewCleanupManager(resetService, logger, cfg.Reset.CleanupInterval)
	go cleanupManager.Start(workerCtx)
	dispatcher.Start(workerCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Queued reset emails are flushed after the last request has been answered
	cleanupManager.Stop()
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained", slog.Any("error", err))
	}
	workerCancel()

	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func migrate(cfg *config.Config, logger *slog.Logger) error {
	sqlDB, err := database.Open(cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return database.Migrate(ctx, sqlDB, logger)
}

func newNotifier(cfg *config.Config, logger *slog.Logger) (notify.Notifier, error) {
	if cfg.Email.Driver == "log" {
		return notify.NewLogNotifier(cfg.Email.FrontendURL, cfg.Server.Env, logger), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return notify.NewSESNotifier(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Email.FrontendURL, cfg.Reset.TokenExpiry, logger)
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, cfg config.AuthConfig, logger *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	adminEmail := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))

	// Check if admin already exists
	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	if err := pkgauth.ValidatePassword(cfg.AdminPassword); err != nil {
		return fmt.Errorf("invalid ADMIN_PASSWORD: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now()
	_, err = userRepo.Create(ctx, &models.User{
		Email:             adminEmail,
		PasswordHash:      hashedPassword,
		Name:              "Admin",
		Role:              models.RoleAdmin,
		PasswordChangedAt: &now,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
