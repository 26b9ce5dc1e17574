package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/retracehq/retrace"
	"github.com/retracehq/retrace/blob"
	"github.com/retracehq/retrace/config"
	"github.com/retracehq/retrace/database"
	"github.com/retracehq/retrace/deploy"
	retracehttp "github.com/retracehq/retrace/http"
	"github.com/retracehq/retrace/llm"
	"github.com/retracehq/retrace/metrics"
	"github.com/retracehq/retrace/sharetoken"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the retrace HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5710, "HTTP server port")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	slog.Info("connected to database", "type", cfg.Database.Type)

	snapshot := config.NewSnapshot(cfg.Storage)
	collector := metrics.NewCollector()

	var blobOpts []blob.Option
	if cfg.Metrics.Enabled {
		blobOpts = append(blobOpts, blob.WithStats(collector))
	}
	blobs := blob.New(snapshot, blobOpts...)

	serviceCfg := retrace.ServiceConfig{
		CleanupTimeout: time.Duration(cfg.Service.CleanupTimeout) * time.Second,
	}
	if cfg.AI.APIKey != "" {
		summarizer, llmErr := llm.New(llm.Options{
			APIKey:    cfg.AI.APIKey,
			Endpoint:  cfg.AI.Endpoint,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
		})
		if llmErr != nil {
			return fmt.Errorf("create summarizer: %w", llmErr)
		}
		serviceCfg.Summarizer = summarizer
		slog.Info("summaries enabled", "model", cfg.AI.Model)
	}

	service, err := retrace.NewSessionService(repo, blobs, serviceCfg)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	var handlerOpts []retracehttp.HandlerOption
	if cfg.Share.Secret != "" {
		issuer, tokenErr := sharetoken.New(cfg.Share.Secret, time.Duration(cfg.Share.TTL)*time.Second)
		if tokenErr != nil {
			return fmt.Errorf("create share token issuer: %w", tokenErr)
		}
		handlerOpts = append(handlerOpts, retracehttp.WithShareTokens(issuer))
	}
	if cfg.Metrics.Enabled {
		handlerOpts = append(handlerOpts, retracehttp.WithMetrics(collector))
	}

	handlerConfig := retracehttp.HandlerConfig{
		IngestKey:   cfg.Ingest.Key,
		MaxBodySize: cfg.Ingest.MaxBodySize,
		ProxyPrefix: cfg.Storage.ProxyPrefix,
		Admin:       cfg.Admin,
		CORS:        cfg.CORS,
		Deploy:      deploy.Resolve(),
	}

	handler := retracehttp.NewHandler(&handlerConfig, service, blobs, handlerOpts...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))
	r.Mount("/", handler.Router())

	// Storage settings follow the config file without a restart. The
	// snapshot swap is atomic; in-flight requests finish against the old
	// settings.
	configFiles, _ := cmd.Flags().GetStringSlice("config")
	config.Watch(configFiles, cmd.Flags(), func(next *config.Config) {
		snapshot.Swap(next.Storage)
		blobs.InvalidateCredentials()
		slog.Info("storage settings reloaded", "mode", next.Storage.Mode)
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "storage_mode", cfg.Storage.Mode)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
