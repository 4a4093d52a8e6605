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

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"pakolx/market/internal/api"
	"pakolx/market/internal/cache"
	"pakolx/market/internal/config"
	"pakolx/market/internal/db"
	"pakolx/market/internal/email"
	"pakolx/market/internal/logging"
	"pakolx/market/internal/services"
	"pakolx/market/internal/storage"
	"pakolx/market/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'img' (image processing), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Errorf("Error disconnecting from MongoDB: %v", err)
		}
	}()
	if err := db.EnsureIndexes(ctx, mongoDb); err != nil {
		log.Fatalf("Failed to ensure MongoDB indexes: %v", err)
	}

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Errorf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Loads the cache and subscribes to change notifications.
	configSvc := services.NewConfigService(mongoDb, cfg, redisClient)

	s3Client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load AWS config for S3 client: %v", err)
	}
	s3Storage := storage.NewS3Storage(cfg, s3Client)

	var primaryEmailSender email.Sender
	if cfg.MockServices {
		log.Info("MOCK_SERVICES enabled: using Redis email sender")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg.SmtpFromAddress)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)
	if cfg.EmailLogPath != "" {
		fileSender, err := email.NewFileEmailSender(cfg.EmailLogPath)
		if err != nil {
			log.Warnf("Failed to initialize file email sender (LOG_EMAILS=%q): %v. Proceeding without file logging.", cfg.EmailLogPath, err)
		} else {
			compositeSender.AddSender(fileSender)
			log.Infof("Logging outgoing emails to %s", cfg.EmailLogPath)
		}
	}

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	enqueuer := tasks.NewEnqueuer(taskClient)

	templateService := services.NewEmailTemplateService(mongoDb)
	taskProcessor := tasks.NewTaskProcessor(cfg, compositeSender, templateService, configSvc, s3Storage)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// The service API runs in every mode.
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(mongoDb, redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("Service API listening on :%s", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
	}()

	var mainApiSrv *http.Server
	var taskSrv *asynq.Server

	log.Infof("Starting application in '%s' mode", cfg.RunMode)

	startApi := func() {
		mainApiSrv = &http.Server{
			Addr: ":" + cfg.ApiPort,
			Handler: api.SetupRouter(ctx, cfg, api.Deps{
				DB:       mongoDb,
				Redis:    redisClient,
				Config:   configSvc,
				Storage:  s3Storage,
				Notifier: enqueuer,
				Images:   enqueuer,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Infof("Main API listening on :%s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
		}()
	}

	startWorkers := func(bgWorker, imageWorker bool) {
		srv, mux := tasks.SetupServer(redisClient, taskProcessor, bgWorker, imageWorker)
		if srv == nil {
			return
		}
		taskSrv = srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Infof("Task server starting (background=%t, images=%t)", bgWorker, imageWorker)
			if err := srv.Run(mux); err != nil {
				log.Fatalf("Task server error: %v", err)
			}
		}()
	}

	switch cfg.RunMode {
	case "api":
		startApi()
	case "bg":
		startWorkers(true, false)
	case "img":
		startWorkers(false, true)
	case "all":
		startApi()
		startWorkers(true, true)
	default:
		log.Fatalf("Invalid run mode specified in config: %s", cfg.RunMode)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("Received signal %s, shutting down gracefully", sig)
	case <-shutdownChan:
		log.Info("Shutdown requested via Service API, shutting down gracefully")
	}

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
	if taskSrv != nil {
		taskSrv.Shutdown()
	}
	cancel()

	wg.Wait()
	log.Info("Server gracefully stopped")
}
