package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"deployboard/domain/catalog"
	"deployboard/infrastructure/config"
	"deployboard/infrastructure/di"
	"deployboard/infrastructure/observability"
)

var (
	rootCmd = &cobra.Command{
		Use:          "deployboard",
		Short:        "Deployment configuration editor backend",
		SilenceUsage: true,
	}
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(resetCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the module catalog as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cat := catalog.Default()
		if cfg.CatalogFile != "" {
			if cat, err = catalog.LoadFile(cfg.CatalogFile); err != nil {
				return err
			}
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(map[string]interface{}{"categories": cat.Categories()})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the persisted placed modules and graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger, _, err := observability.NewLogger(cfg.Environment, cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		if cfg.Store.Driver != "badger" {
			logger.Warn("memory store has nothing persisted; reset is a no-op")
			return nil
		}
		container, cleanup, err := di.InitializeContainer(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		return container.Store.Reset(cmd.Context())
	},
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, level, err := observability.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: "deployboard",
		Environment: cfg.Environment,
		Endpoint:    cfg.TracingEndpoint,
	}, logger)
	if err != nil {
		return err
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer cleanup()

	res, err := container.Workspace.Mount(ctx)
	if err != nil {
		return fmt.Errorf("failed to mount workspace: %w", err)
	}
	logger.Info("workspace mounted",
		zap.String("source", res.Source),
		zap.Int("nodes", res.Nodes),
		zap.Int("edges", res.Edges))

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, cfg, logger)
		if err != nil {
			logger.Warn("config hot reload disabled", zap.Error(err))
		} else {
			watcher.OnChange(func(next *config.Config) {
				if err := observability.SetLevel(level, next.LogLevel); err != nil {
					logger.Warn("ignoring log level change", zap.Error(err))
					return
				}
				logger.Info("log level updated", zap.String("level", next.LogLevel))
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      container.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Tracer shutdown error", zap.Error(err))
	}
	return nil
}
