package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"windspire/internal/auth"
	"windspire/internal/config"
	"windspire/internal/content"
	"windspire/internal/db"
	"windspire/internal/generator"
	"windspire/internal/handlers"
	"windspire/internal/store"
)

var Version = "dev"

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "windspire",
		Short:   "Windspire daily content API",
		Version: Version,
		RunE:    runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "windspire.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(seedPromptsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		dbc, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbc.Close()
		logger.Info("database migrated", zap.String("path", cfg.Database.Path))
		return nil
	},
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

// openDB opens and migrates the configured database, creating its
// directory if needed.
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}
	dbc, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, dbc); err != nil {
		dbc.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return dbc, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbc, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer dbc.Close()

	var gen generator.Generator = generator.Disabled{}
	if cfg.GenAI.APIKey != "" {
		gen, err = generator.NewGenAI(ctx, generator.GenAIConfig{
			APIKey:      cfg.GenAI.APIKey,
			Model:       cfg.GenAI.Model,
			Timeout:     config.Duration(cfg.GenAI.Timeout),
			Temperature: cfg.GenAI.Temperature,
		}, logger.Named("genai"))
		if err != nil {
			return err
		}
	} else {
		logger.Warn("no GenAI API key configured, content generation is disabled")
	}

	st := store.New(dbc)
	svc := content.NewService(st, gen, content.Config{
		Model:        cfg.GenAI.Model,
		DefaultCount: cfg.Generation.DefaultCount,
		MaxCount:     cfg.Generation.MaxCount,
		Concurrency:  cfg.Generation.Concurrency,
		Location:     cfg.Location(),
	}, logger.Named("content"))
	sessions := auth.NewManager(dbc, config.Duration(cfg.Auth.SessionTTL), config.Duration(cfg.Auth.RefreshTTL))
	h := handlers.New(st, svc, sessions, logger.Named("http"))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h.Routes(),
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
