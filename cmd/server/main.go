package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"subway/internal/config"
	"subway/internal/handler"
	"subway/internal/hub"
	"subway/internal/loader"
	"subway/internal/metrics"
	"subway/internal/service"
	"subway/internal/watcher"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Config file path (default: search)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting subway server...")

	cfg, path, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = *dbPath
	}
	if path != "" {
		log.Printf("Config loaded: %s", path)
	}
	log.Println(cfg.Summary())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()

	// Initialize metrics
	m := metrics.New()
	if lines, err := repo.ListLines(ctx); err != nil {
		log.Printf("Warning: failed to count lines: %v", err)
	} else {
		m.SetLines(len(lines))
	}

	// Initialize event bus and SSE hub
	eventBus := service.NewEventBus()
	sseHub := hub.New(cfg.Server.SSEKeepAlive.Duration())
	go sseHub.Run(ctx)

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for {
			select {
			case event := <-eventChan:
				sseHub.Broadcast(string(event.Type), event.Payload)
			case <-ctx.Done():
				eventBus.Unsubscribe(eventChan)
				return
			}
		}
	}()

	// Initialize services
	registry := service.NewStationRegistry(repo, cfg.Cache.StationSize, cfg.Cache.StationTTL.Duration())
	stationSvc := service.NewStationService(repo, registry, eventBus, m)
	lineSvc := service.NewLineService(repo, registry, eventBus, m, cfg.Service.MaxRetries)
	networkSvc := service.NewNetworkService(repo, lineSvc, registry, eventBus, m)

	// Seed document
	if cfg.Import.SeedPath != "" {
		seed, err := loader.NewSeed(networkSvc, cfg.Import.SeedPath, cfg.Import.Strategy)
		if err != nil {
			log.Fatalf("Invalid seed: %v", err)
		}
		if _, err := seed.Load(ctx); err != nil {
			log.Fatalf("Failed to load seed: %v", err)
		}
		if cfg.Import.Watch {
			go func() {
				w := watcher.New(seed.Path(), seed.Reload)
				if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("Seed watcher stopped: %v", err)
				}
			}()
		}
	}

	// Setup routes
	mux := http.NewServeMux()
	handler.NewStationHandler(stationSvc).Register(mux)
	handler.NewLineHandler(lineSvc).Register(mux)
	handler.NewNetworkHandler(networkSvc).Register(mux)
	mux.HandleFunc("GET /healthz", handler.Health)
	mux.Handle("GET /metrics", m.Handler())

	// SSE events endpoint
	mux.Handle("GET /events", sseHub)

	// Apply middleware
	finalHandler := handler.Chain(mux,
		handler.Recover,
		handler.CORSWithOrigin(cfg.Server.CORSOrigin),
		handler.Logger,
	)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
