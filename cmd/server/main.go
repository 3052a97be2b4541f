package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"smsride/internal/app"
	"smsride/internal/config"
	"smsride/internal/handler"
	internalRedis "smsride/internal/redis"
	"smsride/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	stores, err := app.NewStores(ctx, cfg, nrApp)
	if err != nil {
		log.Fatalf("failed to initialize stores: %v", err)
	}
	defer stores.Close()

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	sink, sinkCloser, err := app.NewSink(cfg)
	if err != nil {
		log.Fatalf("failed to initialize notification sink: %v", err)
	}
	defer sinkCloser.Close()

	server, dispatchService := wireServer(stores, redisClient, sink, nrApp, cfg)

	go func() {
		log.Printf("Starting server on port %s (service number %s)", cfg.Server.Port, cfg.Dispatch.ServiceNumber)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	// Pending location lookups are cancelled; their fallback texts still go out.
	dispatchService.Close()

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	stores *app.Stores,
	redisClient *redis.Client,
	sink service.NotificationSink,
	nrApp *newrelic.Application,
	cfg *config.Config,
) (*http.Server, *service.DispatchService) {
	locationStore := internalRedis.NewLocationStore(redisClient)

	notificationService := service.NewNotificationService(cfg.Dispatch.ServiceNumber, sink)
	dispatchService := service.NewDispatchService(
		stores.Directory,
		stores.Rides,
		notificationService,
		locationStore,
		service.DispatchOptions{
			LocationTimeout:      cfg.Dispatch.LocationTimeout,
			BroadcastConcurrency: cfg.Dispatch.BroadcastConcurrency,
		},
	)

	router := app.NewRouter(app.RouterDeps{
		SMSHandler:         handler.NewSMSHandler(dispatchService, cfg.Dispatch.ServiceNumber),
		LocationHandler:    handler.NewLocationHandler(locationStore),
		RideHandler:        handler.NewRideHandler(stores.Rides),
		ParticipantHandler: handler.NewParticipantHandler(stores.Directory),
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, dispatchService
}
