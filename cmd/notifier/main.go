package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"updates_notifier/internal/archive"
	"updates_notifier/internal/config"
	"updates_notifier/internal/crawler"
	"updates_notifier/internal/digest"
	"updates_notifier/internal/enrich"
	"updates_notifier/internal/logger"
	"updates_notifier/internal/models"
	"updates_notifier/internal/notify"
	"updates_notifier/internal/queue"
	"updates_notifier/internal/secrets"
	"updates_notifier/internal/server"
	"updates_notifier/internal/store"

	"github.com/robfig/cron/v3"
)

func main() {
	logger.Init()
	defer logger.Log.Info("Application stopped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Загрузка конфигурации
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Log.Fatalf("Config load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Log.Fatalf("Config validation error: %v", err)
	}

	// Хранилище записей
	database, err := store.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Log.Fatalf("DB connection error: %v", err)
	}
	defer database.Close()

	// Публикация дайджестов и секреты
	objectStore, err := archive.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region)
	if err != nil {
		logger.Log.Fatalf("S3 client error: %v", err)
	}
	secretStore, err := secrets.NewSSMStore(ctx, cfg.S3.Region)
	if err != nil {
		logger.Log.Fatalf("SSM client error: %v", err)
	}

	// Клиент суммаризации
	apiKey, err := secretStore.Get(ctx, cfg.SummarizerAPI.APIKeySecretName)
	if err != nil {
		logger.Log.Fatalf("Summarizer API key error: %v", err)
	}
	summarizer := enrich.NewClient(apiKey, cfg.SummarizerAPI.BaseURL, cfg.SummarizerAPI.Model)

	dispatcher := notify.NewDispatcher(
		cfg.Notifiers,
		cfg.Summarizers,
		enrich.NewFetcher(),
		summarizer,
		database,
		secretStore,
		notify.NewHTTPSender(),
	)

	digestSvc, err := digest.NewService(database, digest.DefaultRules(), objectStore, cfg.Digest.PathPrefix)
	if err != nil {
		logger.Log.Fatalf("Digest service error: %v", err)
	}

	// Очередь событий изменений
	producer, err := queue.NewProducer(cfg.AMQP.URL, cfg.AMQP.Queue)
	if err != nil {
		logger.Log.Fatalf("AMQP producer error: %v", err)
	}
	defer producer.Close()

	consumer, err := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue)
	if err != nil {
		logger.Log.Fatalf("AMQP consumer error: %v", err)
	}
	defer consumer.Close()

	consumer.Consume(func(ev models.ChangeEvent) error {
		accepted := notify.FilterEvents([]models.ChangeEvent{ev})
		for _, outcome := range dispatcher.Dispatch(ctx, accepted) {
			if outcome.Err() == nil {
				continue
			}
			// Ошибки конфигурации не чинятся повтором — событие отбрасывается.
			if errors.Is(outcome.Err(), notify.ErrConfiguration) {
				logger.Log.Errorf("Dropping event for %s: %v", outcome.URL, outcome.Err())
				continue
			}
			return outcome.Err()
		}
		return nil
	})

	// Планировщик: опрос лент и формирование дайджеста
	crawl := crawler.New(database, producer, cfg.Notifiers, cfg.Crawl.RecencyDays)

	scheduler := cron.New()
	if cfg.Crawl.Cron != "" {
		if _, err := scheduler.AddFunc(cfg.Crawl.Cron, func() { crawl.Run(ctx) }); err != nil {
			logger.Log.Fatalf("Crawl schedule error: %v", err)
		}
	}
	if cfg.Digest.Cron != "" {
		if _, err := scheduler.AddFunc(cfg.Digest.Cron, func() {
			if _, err := digestSvc.Generate(ctx, cfg.Digest.Days, time.Now()); err != nil {
				logger.Log.Errorf("Scheduled digest failed: %v", err)
			}
		}); err != nil {
			logger.Log.Fatalf("Digest schedule error: %v", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP сервер
	srv := server.NewServer(digestSvc, dispatcher, database)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Routes()}
	go func() {
		logger.Log.Infof("Starting HTTP server on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down...")
	ctxShutdown, cancelShutdown := context.WithTimeout(ctx, 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logger.Log.Fatalf("Forced shutdown: %v", err)
	}
}
