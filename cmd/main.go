package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/config"
	"github.com/shenikar/fireguard_dispatch/internal/events"
	v1 "github.com/shenikar/fireguard_dispatch/internal/handler/http/v1"
	"github.com/shenikar/fireguard_dispatch/internal/ingest"
	"github.com/shenikar/fireguard_dispatch/internal/metrics"
	"github.com/shenikar/fireguard_dispatch/internal/relay"
	"github.com/shenikar/fireguard_dispatch/internal/repository"
	"github.com/shenikar/fireguard_dispatch/internal/repository/memory"
	"github.com/shenikar/fireguard_dispatch/internal/service"
	"github.com/shenikar/fireguard_dispatch/internal/webhook"
	"github.com/shenikar/fireguard_dispatch/pkg/logger"
	"github.com/shenikar/fireguard_dispatch/pkg/postgres"
	redisclient "github.com/shenikar/fireguard_dispatch/pkg/redis"

	_ "github.com/shenikar/fireguard_dispatch/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const metricsNamespace = "fireguard"

// storage - хранилища, выбранные по STORAGE_DRIVER
type storage struct {
	incidents service.IncidentRepository
	resources service.ResourceRepository
	dispatch  service.DispatchRepository
	locations service.LocationStore
	eventLog  events.Log
}

// @title FireGuard Dispatch API
// @version 1.0
// @description Dispatch coordination for fire and rescue: incidents, units, assignments, live unit locations and a versioned change stream.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func postgresStorage(dbpool *pgxpool.Pool, redisClient *redis.Client) *storage {
	return &storage{
		incidents: repository.NewIncidentRepository(dbpool),
		resources: repository.NewResourceRepository(dbpool),
		dispatch:  repository.NewDispatchRepository(dbpool),
		locations: repository.NewLocationRepository(redisClient),
		eventLog:  repository.NewEventLog(dbpool),
	}
}

func memoryStorage(retention int) *storage {
	store := memory.NewStore()
	return &storage{
		incidents: store.Incidents(),
		resources: store.Resources(),
		dispatch:  store.Dispatch(),
		locations: memory.NewLocationStore(),
		eventLog:  events.NewMemoryLog(retention),
	}
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Контекст для graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis обязателен для postgres (живые координаты) и для вебхуков
	var redisClient *redis.Client
	if cfg.StorageDriver == config.StoragePostgres || cfg.WebhookURL != "" {
		redisClient, err = redisclient.NewRedisClient(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPool,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Info("Successfully connected to Redis")
	}

	var store *storage
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		// Запуск миграций
		if err := runMigrations(cfg, log); err != nil {
			log.Fatalf("Failed to run database migrations: %v", err)
		}

		// Подключение к PostgreSQL
		dbpool, err := postgres.NewPostgresDB(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer dbpool.Close()
		log.Info("Successfully connected to PostgreSQL")

		store = postgresStorage(dbpool, redisClient)
	default:
		log.Warn("Using in-memory storage, state is lost on restart")
		store = memoryStorage(cfg.EventLogRetention)
	}

	m := metrics.New(cfg.MetricsEnabled, metricsNamespace)

	// Журнал событий и рассылка подписчикам
	broker := events.NewBroker(store.eventLog, log, m, cfg.EventSubscriberQueue)

	// Инициализация сервисов
	incidentService := service.NewIncidentService(store.incidents, broker, log, m)
	resourceService := service.NewResourceService(store.resources, broker, log, m)
	dispatchService := service.NewDispatchService(store.incidents, store.resources, store.dispatch, incidentService, broker, log, m)
	locationService := service.NewLocationService(store.locations, broker, log, m, cfg.LocationMinInterval, cfg.LocationStaleAfter)

	var wg sync.WaitGroup
	startRelay := func(r *relay.Relay) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				log.WithError(err).Error("Relay stopped with error")
			}
		}()
	}

	// Вебхуки: события журнала -> очередь Redis -> воркер доставки
	if cfg.WebhookURL != "" {
		webhookPublisher := webhook.NewRedisWebhookPublisher(redisClient)
		startRelay(relay.New("webhook", broker, webhookPublisher, relay.NewRedisCursor(redisClient, "webhook"), nil, log))

		webhookWorker := webhook.NewWebhookWorker(redisClient, log, cfg)
		webhookWorker.Start(ctx)
	}

	// Ретрансляция событий в NATS
	if cfg.NATSURL != "" {
		natsConn, err := relay.NewNATSConn(relay.NATSConfig{
			URL:            cfg.NATSURL,
			Name:           "fireguard-dispatch",
			ReconnectWait:  2 * time.Second,
			MaxReconnects:  -1,
			ConnectTimeout: 5 * time.Second,
		})
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsConn.Drain()

		var cursors relay.CursorStore
		if redisClient != nil {
			cursors = relay.NewRedisCursor(redisClient, "nats")
		}
		startRelay(relay.New("nats", broker, relay.NewNATSSink(natsConn, cfg.NATSSubject), cursors, nil, log))
		log.WithField("url", cfg.NATSURL).Info("NATS relay enabled")
	}

	// Приём координат единиц из MQTT
	if cfg.MQTTBrokerURL != "" {
		subscriber := ingest.NewLocationSubscriber(ingest.NewMQTTClient(ingest.MQTTConfig{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
		}), locationService, log, cfg.MQTTTopic)
		if err := subscriber.Start(ctx); err != nil {
			log.Fatalf("Failed to start MQTT ingest: %v", err)
		}
		defer subscriber.Stop()
	}

	// Выпуск отложенных координат после окна объединения
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.LocationFlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := locationService.FlushPending(ctx, now); n > 0 {
					log.WithField("flushed", n).Debug("Pending locations flushed")
				}
			}
		}
	}()

	// Инициализация хэндлеров
	handler := v1.NewHandler(incidentService, resourceService, dispatchService, locationService, broker, log, cfg)

	// Настройка Gin роутера
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Error starting HTTP server: %v", err)
			stop()
		}
	}()
	log.WithField("storage", cfg.StorageDriver).Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	wg.Wait()

	log.Info("Server gracefully stopped")
}

// requestLogger пишет в logrus одну строку на запрос
func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"actor":   c.GetHeader("X-Actor-ID"),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("Request served")
			return
		}
		entry.Debug("Request served")
	}
}
