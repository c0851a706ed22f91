package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/ai"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

// backend is the selected persistence layer.
type backend struct {
	content  store.Store
	profiles store.ProfileStore
	ping     handlers.PingFunc
	close    func()
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DBPassword == "" {
			return nil, errors.New("DB_PASSWORD environment variable is required")
		}
		if err := database.Connect(cfg); err != nil {
			return nil, err
		}
		if err := database.Migrate(database.DB); err != nil {
			database.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		gs := store.NewGormStore(database.DB)
		return &backend{content: gs, profiles: gs, ping: database.Ping, close: database.Close}, nil
	case "mongo":
		client, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		ms := store.NewMongoStore(client.Database(cfg.MongoDatabase))
		if err := ms.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("index creation failed: %w", err)
		}
		return &backend{
			content:  ms,
			profiles: ms,
			ping: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					slog.Error("mongodb disconnect error", "error", err)
				}
			},
		}, nil
	case "memory":
		slog.Warn("using in-memory store; data is lost on restart")
		ms := store.NewMemoryStore()
		return &backend{content: ms, profiles: ms, close: func() {}}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func serve(ctx context.Context) error {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	// Log sinks: stdout, optional rotating file, ERROR+ to system_logs on postgres
	sinks := []slog.Handler{logging.StdoutHandler()}
	var logFile io.Closer
	if cfg.LogFile != "" {
		var fileHandler slog.Handler
		fileHandler, logFile = logging.NewFileHandler(cfg.LogFile)
		sinks = append(sinks, fileHandler)
	}
	var dbLogHandler *logging.DBHandler
	cleanupDone := make(chan struct{})
	if cfg.StoreDriver == "postgres" {
		dbLogHandler = logging.NewDBHandler(database.DB, 5*time.Second)
		sinks = append(sinks, dbLogHandler)
		// Log cleanup (30-day retention)
		logging.StartCleanup(database.DB, cleanupDone)
	}
	slog.SetDefault(slog.New(logging.NewMultiHandler(sinks...)))

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	provider, err := ai.NewProvider(ctx, ai.ProviderConfig{
		Provider:     cfg.AIProvider,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		CompatURL:    cfg.OpenAICompatAPIURL,
		CompatAPIKey: cfg.OpenAICompatAPIKey,
		CompatModel:  cfg.OpenAICompatModel,
		Timeout:      cfg.AITimeout,
	})
	if err != nil {
		return fmt.Errorf("AI provider setup failed: %w", err)
	}

	blobs, err := storage.NewDiskStore(cfg.StorageDir, cfg.PublicBaseURL)
	if err != nil {
		return err
	}

	// Services
	live := store.NewLiveStore(be.content)
	hub := live.Hub()
	pipeline := services.NewPipelineService(live, blobs, provider, provider, services.NewHubNotifier(hub))
	contentService := services.NewContentService(live, blobs)
	userService := services.NewUserService(be.profiles)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.StoreDriver, be.ping, hub)
	contentHandler := handlers.NewContentHandler(pipeline, contentService)
	streamHandler := handlers.NewStreamHandler(hub, contentService)
	userHandler := handlers.NewUserHandler(userService)
	adminHandler := handlers.NewAdminHandler(contentService)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.MaxUploadBytes) + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Uploaded blobs
	app.Static(storage.FilesPrefix, blobs.Root())

	routes.Setup(app, cfg, userService, healthHandler, contentHandler, streamHandler, userHandler, adminHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver, "ai", cfg.AIProvider)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-quit:
	case err := <-listenErr:
		if err != nil {
			slog.Error("server failed to start", "error", err)
			return err
		}
	}
	slog.Info("shutting down server...")

	// Live streams end first so Shutdown does not wait on them.
	hub.Close()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	pipeline.Wait()

	close(cleanupDone)
	if dbLogHandler != nil {
		dbLogHandler.Stop()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
	sentry.Flush(2 * time.Second)

	slog.Info("server stopped")
	return nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
