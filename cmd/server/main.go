package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/auth"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/config"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/database"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/storage"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow"
)

const serviceName = "student-hub"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Approval workflow and portfolio service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			db, err := database.New(&cfg.Database, database.LogLevel(cfg.Log.Level))
			if err != nil {
				return err
			}
			defer func() {
				if err := database.Close(db); err != nil {
					slog.Error("failed to close database", "error", err)
				}
			}()
			return database.Migrate(cmd.Context(), db)
		},
	})
	return root
}

func loadConfig(configFile string) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.SetDefault(newLogger(cfg.Log))
	return cfg, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("configuration loaded successfully",
		"db_driver", cfg.Database.Driver,
		"db_host", cfg.Database.Host,
		"db_name", cfg.Database.Name,
		"storage", cfg.Storage.Type,
	)

	slog.Info("CORS configuration",
		"allowed_origins", cfg.CORS.AllowedOrigins,
		"allowed_methods", cfg.CORS.AllowedMethods,
		"allow_credentials", cfg.CORS.AllowCredentials,
	)

	db, err := database.New(&cfg.Database, database.LogLevel(cfg.Log.Level))
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	driver, err := storage.NewDriverFromConfig(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	wm := workflow.NewManager(db, workflow.Options{
		ActMaxRetries:       cfg.Approval.ActMaxRetries,
		EventBufferSize:     cfg.Events.BufferSize,
		EventMaxElapsedTime: cfg.Events.MaxElapsedTime,
		Snapshots:           storage.NewSnapshotPublisher(driver),
	})
	slog.Info("starting approval event listener...")
	wm.StartEventListener()

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		otelgin.Middleware(serviceName),
		cors.New(corsConfig(cfg.CORS)),
		auth.Middleware(auth.NewTokenParser(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)),
	)

	engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context(), db); err != nil {
			slog.Error("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "service": serviceName})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})

	api := engine.Group("/api/v1")
	wm.RegisterRoutes(api)
	if cfg.Storage.Type == storage.TypeLocal {
		// S3 snapshots are served by the bucket itself
		storage.NewHTTPHandler(driver).RegisterRoutes(api.Group("/files"))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		slog.Error("failed to start server", "error", err)
	case sig := <-quit:
		slog.Info("shutting down server...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	// Deliver events already accepted before closing the database
	slog.Info("stopping approval event listener...")
	wm.StopEventListener()

	slog.Info("server stopped")
	return nil
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           time.Duration(cfg.MaxAge) * time.Second,
	}
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.AllowedOrigins
	}
	return cc
}
