package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/railrules-api/internal/config"
	"github.com/noah-isme/railrules-api/internal/database"
	"github.com/noah-isme/railrules-api/internal/handler"
	"github.com/noah-isme/railrules-api/internal/middleware"
	"github.com/noah-isme/railrules-api/internal/repository"
	"github.com/noah-isme/railrules-api/internal/router"
	"github.com/noah-isme/railrules-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set; highlight cache and cross-node relay disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	documentRepo := repository.NewDocumentRepository(db)
	changeLogRepo := repository.NewChangeLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, service.NotificationOptions{
		Redis:        redisClient,
		ChannelBase:  cfg.ChannelBase,
		NATS:         natsConn,
		HighlightTTL: cfg.HighlightTTL,
	}, validate, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notificationService.Start(ctx)

	changeLogService := service.NewChangeLogService(changeLogRepo, service.NewChangeLogBuilder(cfg.DiffLookahead), notificationService, logger)
	highlightService := service.NewHighlightService(notificationRepo, changeLogRepo, notificationService, redisClient, cfg.HighlightTTL, logger)
	documentService := service.NewDocumentService(documentRepo, changeLogService, highlightService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:            &logger,
		AllowOrigins:      cfg.CORSOrigins,
		RequestsPerMinute: cfg.RateLimitRPM,
	})
	router.Register(app, cfg, router.Dependencies{
		DocumentHandler:     handler.NewDocumentHandler(documentService, logger),
		ChangeLogHandler:    handler.NewChangeLogHandler(changeLogService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.StreamTimeout),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret, cfg.JWTIssuer),
		HealthProbes:        healthProbes(db, redisClient, natsConn),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) []handler.HealthProbe {
	probes := []handler.HealthProbe{{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}

	if redisClient != nil {
		probes = append(probes, handler.HealthProbe{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}

	if natsConn != nil {
		probes = append(probes, handler.HealthProbe{
			Name: "nats",
			Check: func(context.Context) error {
				if !natsConn.IsConnected() {
					return errors.New("nats connection is not established")
				}
				return nil
			},
		})
	}

	return probes
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
