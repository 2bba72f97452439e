package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/api"
	"github.com/Zaad1704/HNV1-sub001/internal/api/middleware"
	"github.com/Zaad1704/HNV1-sub001/internal/cache"
	"github.com/Zaad1704/HNV1-sub001/internal/config"
	"github.com/Zaad1704/HNV1-sub001/internal/db"
	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/Zaad1704/HNV1-sub001/internal/services"
	"github.com/Zaad1704/HNV1-sub001/internal/storage"
	"github.com/Zaad1704/HNV1-sub001/internal/store"
	"github.com/Zaad1704/HNV1-sub001/internal/tasks"
	"github.com/hibiken/asynq"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

const workerConcurrency = 10

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		logger.L().Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput, Path: cfg.LogPath}); err != nil {
		logger.L().Fatalf("Failed to initialize logger: %v", err)
	}
	log := logger.L()

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Errorf("Error disconnecting from MongoDB: %v", err)
		}
	}()
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx, mongoDb); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	cancelIndex()

	redisClient, err := cache.ConnectRedis(cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Errorf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Export files live on local disk or in S3.
	var fileStore storage.IFileStore
	switch cfg.ExportStorage {
	case "s3":
		fileStore, err = storage.NewS3Store(context.Background(), cfg)
	default:
		fileStore, err = storage.NewLocalStore(cfg.ExportDir)
	}
	if err != nil {
		log.Fatalf("Failed to initialize %s export storage: %v", cfg.ExportStorage, err)
	}

	analyticsCache := cache.NewAnalyticsCache(redisClient)
	periodStore := store.NewMongoPeriodStore(mongoDb)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	enqueuer := tasks.NewEnqueuer(taskClient, cfg)

	collectionService := services.NewRentCollectionService(
		periodStore,
		store.NewMongoTenantStore(mongoDb),
		store.NewMongoPropertyStore(mongoDb),
		store.NewMongoPaymentStore(mongoDb),
		analyticsCache,
		cfg,
	)
	analyticsService := services.NewAnalyticsService(periodStore, store.NewMongoPropertyStore(mongoDb), analyticsCache, cfg)
	exportService := services.NewExportService(
		store.NewMongoExportStore(mongoDb),
		store.NewMongoExportSource(mongoDb),
		fileStore,
		enqueuer,
		cfg,
	)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// Service API always runs.
	serviceSrv := &http.Server{
		Addr:              ":" + cfg.ServiceApiPort,
		Handler:           api.SetupServiceRouter(cfg, shutdownChan),
		ReadHeaderTimeout: 10 * time.Second,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("Service API listening on :%s", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		log.Info("Service API server stopped.")
	}()

	var (
		mainApiSrv        *http.Server
		backgroundTaskSrv *asynq.Server
		scheduler         *asynq.Scheduler
	)

	log.Infof("Starting application in '%s' mode...", cfg.RunMode)

	apiMode := func() {
		exportLimiter := middleware.NewExportRateLimiter(rootCtx, cfg)
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           api.SetupRouter(cfg, collectionService, analyticsService, exportService, exportLimiter),
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Infof("Main API listening on :%s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			log.Info("Main API server stopped.")
		}()
	}

	bgMode := func() {
		processor := tasks.NewTaskProcessor(exportService, collectionService)
		var mux *asynq.ServeMux
		backgroundTaskSrv, mux = tasks.SetupServer(redisClient, processor, workerConcurrency)
		if err := backgroundTaskSrv.Start(mux); err != nil {
			log.Fatalf("Background task server error: %v", err)
		}
		log.Info("Background task server started.")

		scheduler, err = tasks.NewScheduler(redisClient, cfg)
		if err != nil {
			log.Fatalf("Failed to configure scheduler: %v", err)
		}
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Scheduler error: %v", err)
		}
		log.Info("Scheduler started.")
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode specified in config: %s.", cfg.RunMode)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("Received signal: %s. Shutting down gracefully...", sig)
	case <-shutdownChan:
		log.Info("Shutdown requested via Service API. Shutting down gracefully...")
	}
	cancelRoot()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Errorf("Service API server shutdown error: %v", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Errorf("Main API server shutdown error: %v", err)
		}
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
	}

	wg.Wait()
	log.Info("Server gracefully stopped")
}
