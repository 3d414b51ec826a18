package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"librarian/internal/backend"
	"librarian/internal/config"
	"librarian/internal/handler"
	"librarian/internal/middleware"
	"librarian/internal/repository"
	"librarian/internal/repository/postgres"
	"librarian/internal/scheduler"
	"librarian/internal/service"
	"librarian/internal/session"
	"librarian/internal/tracker"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Librarian Bot", zap.String("api", cfg.API.BaseURL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Backend client; the library API is the source of truth for roles
	client := backend.NewClient(cfg.API.BaseURL, cfg.API.Timeout, logger)
	if err := client.Health(ctx); err != nil {
		logger.Warn("Library backend is not reachable yet", zap.Error(err))
	}

	mirror := repository.Mirror{client}
	if cfg.HasDatabase() {
		db, err := connectDatabase(cfg.DSN(), logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		logger.Info("Database connection established")

		if err := runMigrations(db, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		mirror = append(mirror, postgres.NewUserRepo(db))
	}

	// Initialize services
	authService := service.NewAuthService(mirror, cfg.AdminID, logger)
	libraryService := service.NewLibraryService(client, cfg.PageSize)
	userService := service.NewUserService(client, cfg.PageSize, logger)
	syncService := service.NewRoleSyncService(authService, logger)

	// Initialize Telegram bot
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.BotToken,
		Poller:  &tele.LongPoller{Timeout: cfg.PollTimeout},
		OnError: handler.OnError(logger),
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Telegram bot initialized", zap.String("username", bot.Me.Username))

	messenger := handler.NewTelegramMessenger(bot)
	sched := scheduler.New(messenger, logger, scheduler.Options{FrameInterval: cfg.Messages.FrameInterval})
	sessions := session.NewStore()
	tr := tracker.New(messenger, sched, sessions, logger, tracker.Options{
		ShortTTL: cfg.Messages.ShortTTL,
		LongTTL:  cfg.Messages.LongTTL,
		Animate:  cfg.Messages.Animate,
	})

	// Middleware
	bot.Use(
		middleware.Recover(logger),
		middleware.PrivateOnly(logger),
		middleware.RateLimit(cfg.RateLimit, logger),
	)

	// Initialize handler
	h := handler.NewHandler(authService, libraryService, userService, sessions, tr, sched, messenger, logger)
	h.RegisterHandlers(bot)

	logger.Info("Handlers registered")

	// Load approved users, then keep them in sync in background
	if err := syncService.Sync(ctx); err != nil {
		logger.Error("Failed to load approved users", zap.Error(err))
	}
	go runRoleSync(ctx, syncService, cfg.RoleSyncInterval, logger)

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully")
		bot.Start()
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping bot...")

	// Graceful shutdown; pending deletions are dropped, not executed
	bot.Stop()
	cancel()
	sched.Close()

	logger.Info("Bot stopped gracefully")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	return zapCfg.Build()
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations creates the role mirror table
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No new migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		logger.Info("Migrations applied successfully")
	}

	return nil
}

// runRoleSync periodically reloads the approved set
func runRoleSync(ctx context.Context, syncService *service.RoleSyncService, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Role sync stopped")
			return
		case <-ticker.C:
			if err := syncService.Sync(ctx); err != nil {
				logger.Error("Failed to sync approved users", zap.Error(err))
			}
		}
	}
}
