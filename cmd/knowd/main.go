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

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/ai"
	"github.com/knowd-io/knowd/internal/blobstore"
	"github.com/knowd-io/knowd/internal/bot"
	"github.com/knowd-io/knowd/internal/config"
	"github.com/knowd-io/knowd/internal/db"
	"github.com/knowd-io/knowd/internal/embedcache"
	"github.com/knowd-io/knowd/internal/handler"
	"github.com/knowd-io/knowd/internal/index"
	"github.com/knowd-io/knowd/internal/intent"
	"github.com/knowd-io/knowd/internal/job"
	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/metrics"
	"github.com/knowd-io/knowd/internal/middleware"
	"github.com/knowd-io/knowd/internal/parser"
	"github.com/knowd-io/knowd/internal/rag"
	"github.com/knowd-io/knowd/internal/repo"
	"github.com/knowd-io/knowd/internal/schedule"
	"github.com/knowd-io/knowd/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "knowd",
		Short: "knowd knowledge base server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run knowd server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := logutil.Init(cfg.LogConfig); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logger := logutil.GetLogger(context.Background())
	logger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("blob_store", cfg.BlobStore.Type),
		zap.String("index", cfg.Index.Type),
	)

	nsRepo := repo.NewNamespaceRepo(database)
	docRepo := repo.NewDocumentRepo(database)
	logRepo := repo.NewQueryLogRepo(database)
	integRepo := repo.NewIntegrationRepo(database)

	blobs, err := blobstore.New(cfg.BlobStore)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	chatProvider, err := ai.NewChatProvider(cfg.AI.Chat.Provider, cfg.AI.Chat.Data)
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Embed.Provider, cfg.AI.Embed.Data)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	completer := ai.NewCompleter(chatProvider, cfg.AI.Chat.Model, timeout)
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.Embed.Model, cfg.AI.EmbedBatchSize, timeout)
	if cfg.AI.CacheSize > 0 {
		embedder = embedcache.WrapLRU(embedder, cfg.AI.CacheSize, time.Duration(cfg.AI.CacheTTLHours)*time.Hour)
	}

	var idx index.Index
	switch cfg.Index.Type {
	case "pgvector":
		idx, err = index.NewPGVector(database, cfg.AI.EmbedDim)
		if err != nil {
			return fmt.Errorf("init pgvector index: %w", err)
		}
	default:
		idx = index.NewManager(blobs, cfg.AI.EmbedDim)
	}

	mtr := metrics.New()
	classifier := intent.NewClassifier(completer, cfg.Query.IntentThreshold)
	engine := rag.NewEngine(completer)
	splitter := parser.NewSplitter(500, 50)

	nsService := service.NewNamespaceService(nsRepo, docRepo, idx)
	docService := service.NewDocumentService(docRepo, nsRepo, blobs, embedder, idx, splitter, mtr, cfg.Upload.MaxFileSizeBytes)
	queryService := service.NewQueryService(nsRepo, classifier, embedder, idx, engine, logRepo, docRepo, mtr, cfg.Query.HistoryLimit, cfg.Query.TopK)
	analyticsService := service.NewAnalyticsService(logRepo, docRepo)
	integService := service.NewIntegrationService(integRepo, func(ctx context.Context, channel, token string) error {
		if channel != "telegram" {
			return nil
		}
		if token == "" {
			// re-test of a stored integration; fall back to the runtime token
			token = cfg.Channels.TelegramToken
		}
		if token == "" {
			return fmt.Errorf("no telegram token configured")
		}
		return bot.VerifyToken(token)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := nsService.SeedBuiltins(ctx); err != nil {
		return fmt.Errorf("seed namespaces: %w", err)
	}
	if err := integService.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed integrations: %w", err)
	}
	if warm, ok := idx.(*index.Manager); ok {
		spaces, err := nsRepo.List(ctx)
		if err != nil {
			return fmt.Errorf("list namespaces: %w", err)
		}
		ids := make([]int64, 0, len(spaces))
		for _, ns := range spaces {
			ids = append(ids, ns.ID)
		}
		if err := warm.Preload(ctx, ids); err != nil {
			return fmt.Errorf("preload index: %w", err)
		}
	}

	deps := handler.RouterDeps{
		Query:        handler.NewQueryHandler(queryService),
		Namespaces:   handler.NewNamespaceHandler(nsService),
		Documents:    handler.NewDocumentHandler(docService),
		Analytics:    handler.NewAnalyticsHandler(analyticsService),
		Integrations: handler.NewIntegrationHandler(integService, queryService),
		Metrics:      mtr,
	}

	gin.SetMode(gin.ReleaseMode)
	engineHTTP := gin.New()
	engineHTTP.Use(gin.Recovery())
	engineHTTP.Use(middleware.RequestID())
	engineHTTP.Use(middleware.CORS(cfg.Channels.CORSOrigins))
	engineHTTP.Use(gzip.Gzip(gzip.DefaultCompression))
	engineHTTP.Use(middleware.RateLimit(time.Duration(cfg.Query.RateLimitSeconds) * time.Second))
	handler.RegisterRoutes(engineHTTP, deps)

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewQueryLogCleanupJob(logRepo, cfg.Jobs.QueryLogRetentionDays), cfg.Jobs.CleanupSpec); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewReprocessJob(docService, 10*time.Minute), cfg.Jobs.ReprocessSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.Channels.TelegramToken != "" {
		tg, err := bot.NewTelegram(cfg.Channels.TelegramToken, queryService, integService)
		if err != nil {
			logger.Error("telegram bot init failed", zap.Error(err))
		} else {
			go tg.Run(ctx)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler: engineHTTP,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
