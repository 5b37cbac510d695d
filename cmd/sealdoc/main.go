package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/sealdoc/sealdoc/internal/blobstore"
	"github.com/sealdoc/sealdoc/internal/config"
	"github.com/sealdoc/sealdoc/internal/db"
	"github.com/sealdoc/sealdoc/internal/handler"
	"github.com/sealdoc/sealdoc/internal/job"
	"github.com/sealdoc/sealdoc/internal/pagecache"
	"github.com/sealdoc/sealdoc/internal/recovery"
	"github.com/sealdoc/sealdoc/internal/repo"
	"github.com/sealdoc/sealdoc/internal/schedule"
	"github.com/sealdoc/sealdoc/internal/service"
	"github.com/sealdoc/sealdoc/internal/watermark"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "sealdoc",
		Short: "sealdoc delivery server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run sealdoc server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("blob_store", cfg.BlobStore.Type),
		zap.Int("page_cache_size", cfg.PageCache.Size),
	)

	linkRepo := repo.NewShareLinkRepo(conn)
	docRepo := repo.NewDocumentRepo(conn)
	pageRepo := repo.NewPageRepo(conn)
	analyticsRepo := repo.NewAnalyticsRepo(conn)
	collectionRepo := repo.NewCollectionRepo(conn)

	blobs, err := blobstore.New(cfg.BlobStore)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}
	cache := pagecache.New(cfg.PageCache.Size, time.Duration(cfg.PageCache.TTLSeconds)*time.Second)
	coordinator := recovery.New(cfg.Recovery)
	engine := watermark.New(cfg.Watermark)

	policyService := service.NewPolicyService(linkRepo)
	analyticsService := service.NewAnalyticsService(analyticsRepo, nil)
	sessionTTL := time.Hour * time.Duration(cfg.SessionTTLHours)
	sessionService := service.NewSessionService(policyService, analyticsService, []byte(cfg.JWTSecret), sessionTTL)
	shareService := service.NewShareService(linkRepo, docRepo)
	documentService := service.NewDocumentService(docRepo, pageRepo, linkRepo, collectionRepo)
	deliveryService := service.NewDeliveryService(docRepo, pageRepo, collectionRepo,
		cache, blobs, coordinator, engine)

	deps := handler.RouterDeps{
		Shares:        handler.NewShareHandler(shareService, policyService, sessionService, analyticsService),
		Pages:         handler.NewPageHandler(deliveryService),
		Documents:     handler.NewDocumentHandler(documentService),
		JWTSecret:     []byte(cfg.JWTSecret),
		CORSAllowlist: cfg.CORSAllowlist,
		SessionWindow: time.Second,
	}
	router := handler.NewRouter(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	cleanup := job.NewPageCleanupJob(pageRepo, blobs, cache)
	if err := scheduler.AddJob(cleanup, cfg.CleanupCron); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
