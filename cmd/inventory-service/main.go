package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authevents "github.com/medstock/medstock-backend/internal/auth/events"
	authhandler "github.com/medstock/medstock-backend/internal/auth/handler"
	"github.com/medstock/medstock-backend/internal/auth/jwt"
	authrepo "github.com/medstock/medstock-backend/internal/auth/repository"
	authservice "github.com/medstock/medstock-backend/internal/auth/service"
	"github.com/medstock/medstock-backend/internal/inventory/consumers"
	"github.com/medstock/medstock-backend/internal/inventory/events"
	"github.com/medstock/medstock-backend/internal/inventory/handler"
	"github.com/medstock/medstock-backend/internal/inventory/service"
	settingshandler "github.com/medstock/medstock-backend/internal/settings/handler"
	settingsrepo "github.com/medstock/medstock-backend/internal/settings/repository"
	settingsservice "github.com/medstock/medstock-backend/internal/settings/service"
	"github.com/medstock/medstock-backend/pkg/config"
	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/httputil"
	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/messaging"
)

const serviceName = "inventory-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting MedStock inventory service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	// RabbitMQ is optional; without it events are dropped and scans run in-process
	var (
		rmq           *messaging.RabbitMQ
		publisher     *events.InventoryEventPublisher
		authPublisher *authevents.AuthEventPublisher
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(ctx, &cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewInventoryEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		authPublisher, err = authevents.NewAuthEventPublisher(rmq, serviceName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create auth event publisher")
		}
	}

	repos := service.NewRepositories(db)
	scanner := service.NewScanner(repos, publisher, cfg.Notifications.ExpiryWindowDays, log)

	var scans service.ScanQueue
	switch cfg.Notifications.Dispatch {
	case config.DispatchRabbitMQ:
		scanConsumer, err := consumers.NewScanConsumer(rmq, scanner, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create scan consumer")
		}
		if err := scanConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start scan consumer")
		}
		scans = service.NewBrokerScanQueue(publisher)
	default:
		local := service.NewLocalScanQueue(scanner, log)
		local.Start(ctx)
		defer local.Stop()
		scans = local
	}

	inventoryService := service.NewInventoryService(db, repos, publisher, scans, log)
	notificationService := service.NewNotificationService(repos, scanner, publisher, log)
	importer := service.NewImporter(inventoryService, log)

	jwtManager := jwt.NewManager(&cfg.JWT)
	authService := authservice.NewAuthService(db, authrepo.NewAdminRepository(db), jwtManager, authPublisher, log)
	settingsService := settingsservice.NewSettingsService(db, settingsrepo.NewSettingsRepository(db), log)

	inventoryHandlers := &handler.Handlers{
		Items:         handler.NewItemHandler(inventoryService, log),
		Batches:       handler.NewBatchHandler(inventoryService, log),
		Categories:    handler.NewCategoryHandler(inventoryService, log),
		Transactions:  handler.NewTransactionHandler(inventoryService, log),
		Notifications: handler.NewNotificationHandler(notificationService, log),
		Reports:       handler.NewReportHandler(inventoryService, log),
		Import:        handler.NewImportHandler(importer, cfg.Import.MaxUploadBytes, log),
		Aggregates:    handler.NewAggregateHandler(inventoryService, log),
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":   "ok",
			"service":  serviceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	r.Route("/api/auth", authhandler.NewAuthHandler(authService, log).Mount)

	r.Group(func(r chi.Router) {
		r.Use(httputil.Authenticate(jwtManager))
		r.Route("/api/inventory", inventoryHandlers.Mount)
		r.Route("/api/settings", settingshandler.NewSettingsHandler(settingsService, log).Mount)
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("dispatch", cfg.Notifications.Dispatch).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Stop consumers and the local scan worker after in-flight requests finish
	cancel()

	log.Info().Msg("server stopped")
}
