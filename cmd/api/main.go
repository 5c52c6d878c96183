package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/ndr-engine/internal/adapter"
	"github.com/kursadbilgin/ndr-engine/internal/config"
	"github.com/kursadbilgin/ndr-engine/internal/domain"
	"github.com/kursadbilgin/ndr-engine/internal/events"
	"github.com/kursadbilgin/ndr-engine/internal/handler"
	"github.com/kursadbilgin/ndr-engine/internal/infra/postgresql"
	"github.com/kursadbilgin/ndr-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/ndr-engine/internal/infra/redis"
	"github.com/kursadbilgin/ndr-engine/internal/observability"
	"github.com/kursadbilgin/ndr-engine/internal/repository"
	"github.com/kursadbilgin/ndr-engine/internal/service"
	"github.com/kursadbilgin/ndr-engine/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.WebhookRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	broker, err := events.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer broker.Close()

	publisher := events.NewRabbitMQPublisher(broker)

	adapters, err := buildAdapters(cfg)
	if err != nil {
		logger.Fatal("outreach adapter initialization failed", zap.Error(err))
	}

	autoChannel, err := domain.ParseChannelFromString(cfg.AutoOutreachChan)
	if err != nil {
		logger.Fatal("invalid auto outreach channel", zap.Error(err))
	}

	location, err := time.LoadLocation(cfg.BusinessHoursTZ)
	if err != nil {
		logger.Fatal("invalid business hours timezone", zap.Error(err))
	}

	ndrRepo := repository.NewGormNDRRepo(db)
	deliveryRepo := repository.NewGormDeliveryRepo(db)
	outreachRepo := repository.NewGormOutreachRepo(db)
	auditRepo := repository.NewGormAuditRepo(db)

	metrics := observability.NewMetrics()

	outreachSvc, err := service.NewOutreachService(
		ndrRepo,
		deliveryRepo,
		outreachRepo,
		auditRepo,
		adapters,
		publisher,
		service.BusinessHours{
			Start:    cfg.BusinessHoursStart,
			End:      cfg.BusinessHoursEnd,
			Location: location,
		},
		autoChannel,
		logger,
	)
	if err != nil {
		logger.Fatal("outreach service initialization failed", zap.Error(err))
	}
	outreachSvc.SetMetrics(metrics)

	executor, err := service.NewAutoTriggerExecutor(
		cfg.AutoTriggerWorkers,
		cfg.AutoTriggerQueueSize,
		outreachSvc.AutoTrigger,
		logger,
	)
	if err != nil {
		logger.Fatal("auto trigger executor initialization failed", zap.Error(err))
	}
	executor.SetMetrics(metrics)

	ingestSvc, err := service.NewIngestService(
		ndrRepo,
		deliveryRepo,
		auditRepo,
		nil,
		publisher,
		executor,
		logger,
	)
	if err != nil {
		logger.Fatal("ingest service initialization failed", zap.Error(err))
	}
	ingestSvc.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:      "ndr-engine",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(transport.RequestCorrelation())
	app.Use(metrics.HTTPMiddleware())

	if err := handler.RegisterWebhookRoutes(app, ingestSvc, nil, limiter, logger); err != nil {
		logger.Fatal("webhook route registration failed", zap.Error(err))
	}
	if err := handler.RegisterOutreachRoutes(app, outreachSvc); err != nil {
		logger.Fatal("outreach route registration failed", zap.Error(err))
	}
	if err := handler.RegisterAuditRoutes(app, auditRepo); err != nil {
		logger.Fatal("audit route registration failed", zap.Error(err))
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb, broker)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return executor.Start(groupCtx)
	})

	g.Go(func() error {
		logger.Info("ndr-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		logger.Info("metrics endpoint started", zap.Int("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("api shutdown failed", zap.Error(err))
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown failed", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("ndr-engine exited with error", zap.Error(err))
	}
	logger.Info("ndr-engine stopped")
}

func buildAdapters(cfg *config.Config) (map[domain.Channel]adapter.Adapter, error) {
	whatsapp, err := adapter.NewWhatsAppGateway(cfg.WhatsAppGatewayURL)
	if err != nil {
		return nil, err
	}
	sms, err := adapter.NewSMSGateway(cfg.SMSGatewayURL)
	if err != nil {
		return nil, err
	}
	email, err := adapter.NewEmailGateway(cfg.EmailGatewayURL)
	if err != nil {
		return nil, err
	}
	voice, err := adapter.NewVoiceGateway(cfg.VoiceGatewayURL, domain.ChannelAIVoice)
	if err != nil {
		return nil, err
	}
	ivr, err := adapter.NewVoiceGateway(cfg.VoiceGatewayURL, domain.ChannelIVR)
	if err != nil {
		return nil, err
	}

	return map[domain.Channel]adapter.Adapter{
		domain.ChannelWhatsApp: whatsapp,
		domain.ChannelSMS:      sms,
		domain.ChannelEmail:    email,
		domain.ChannelAIVoice:  voice,
		domain.ChannelIVR:      ivr,
	}, nil
}
