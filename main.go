package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ipnote/internal/api"
	"ipnote/internal/config"
	"ipnote/internal/events"
	"ipnote/internal/logging"
	"ipnote/internal/realtime"
	"ipnote/internal/repository"
	"ipnote/internal/service"

	log "github.com/sirupsen/logrus"
)

// @title           ipnote API
// @version         1.0
// @description     IP 기반 쪽지 API

// @BasePath  /api
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer repo.Close()
	log.Printf("Connected to %s", cfg.DBDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	gateway := realtime.NewGateway(realtime.NewRegistry(), repo, api.ClientIP)
	notifier, closeNotifier, err := buildNotifier(ctx, cfg, gateway, &wg)
	if err != nil {
		log.Fatalf("Failed to initialize event bus: %v", err)
	}
	defer closeNotifier()

	serv := service.NewMessageService(repo, repo, notifier, service.Options{
		NearbyMode: service.NearbyMode(cfg.NearbyMode),
	})

	var scheduler *service.Scheduler
	if cfg.SessionSweepInterval > 0 {
		scheduler = service.NewScheduler(serv, gateway.LiveSessionIDs, cfg.SessionSweepInterval, cfg.SessionMaxAge)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	handler := api.NewAPIHandler(serv)
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.AccessLog(api.NewRouter(handler, gateway.ServeWS)),
	}

	go func() {
		log.Printf("Server starting on port %s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	waitForShutdown(server, gateway, scheduler, cancel, &wg)
	log.Println("Server gracefully stopped")
}

func openRepository(cfg *config.Config) (*repository.SQLRepo, error) {
	if cfg.DBDriver == repository.DriverSQLite {
		return repository.NewSQLiteRepo(cfg.DBPath)
	}
	return repository.NewPostgresRepo(cfg.PostgresDSN())
}

// buildNotifier returns the gateway itself for single-instance runs, or a bus
// that every instance subscribes its gateway to.
func buildNotifier(ctx context.Context, cfg *config.Config, gateway *realtime.Gateway, wg *sync.WaitGroup) (service.Notifier, func(), error) {
	var transport events.Transport
	switch cfg.EventBus {
	case "redis":
		client, err := events.NewRedisClient(ctx, cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		transport = events.NewRedisTransport(client, cfg.RedisChannel)
	case "nats":
		t, err := events.NewNATSTransport(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, err
		}
		transport = t
	default:
		return gateway, func() {}, nil
	}

	bus := events.NewBus(transport)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bus.Run(ctx, gateway); err != nil {
			log.Errorf("Event bus subscription ended: %v", err)
		}
	}()
	return bus, func() {
		if err := bus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}, nil
}

func waitForShutdown(server *http.Server, gateway *realtime.Gateway, scheduler *service.Scheduler, cancelApp context.CancelFunc, wg *sync.WaitGroup) {
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Unexpected error while shutting down server: %v", err)
	}
	if err := gateway.Shutdown(shutdownCtx); err != nil {
		log.Printf("Timed out closing socket connections: %v", err)
	}
	if scheduler != nil {
		_ = scheduler.Stop()
	}

	cancelApp()
	wg.Wait()
}
