package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maintenance-service/internal/api"
	"maintenance-service/internal/cascade"
	"maintenance-service/internal/config"
	"maintenance-service/internal/db"
	"maintenance-service/internal/dispatch"
	"maintenance-service/internal/kafka"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/notifier"
	"maintenance-service/internal/prediction"
	"maintenance-service/internal/sensors"
	"maintenance-service/internal/store"
	"maintenance-service/internal/ws"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config load failed:", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Log.File)
	if err != nil {
		log.Fatal("Logger init failed:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pick the store backend
	var st store.Store
	switch cfg.Store.Backend {
	case "memory":
		logger.Warnf("Using in-memory store, data will not survive restarts")
		st = store.NewMemoryStore()
	default:
		dbConn, err := db.New(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Errorf("DB connect failed: %v", err)
			log.Fatal("DB connect failed:", err)
		}
		defer dbConn.Close()
		if err := dbConn.EnsureSchema(ctx); err != nil {
			logger.Errorf("Schema apply failed: %v", err)
			log.Fatal("Schema apply failed:", err)
		}
		st = dbConn
	}

	// Wire the core
	hub := ws.NewHub(logger)
	defer hub.Close()
	notify := notifier.New(st, hub, logger, cfg.Notify.Timeout)
	dispatchEng := dispatch.NewEngine(st, logger)
	gen := cascade.NewGenerator(st, dispatchEng, notify, logger, cascade.DefaultCatalog(), cfg.Cascade.ClientFallback)
	sensorSvc := sensors.New(st, gen, logger)
	predictionEng := prediction.NewEngine(st, logger, cfg.Prediction.Window, cfg.Prediction.MinReadings)

	// Optional streaming ingest
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(kafka.Config{
			Broker:  cfg.Kafka.Broker,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, sensorSvc, logger)
		go consumer.Start(ctx)
	}

	// Start API server
	router := api.NewRouter(sensorSvc, dispatchEng, predictionEng, hub, logger, cfg.API.BasePath)
	server := &http.Server{Addr: cfg.API.Port, Handler: router}
	go func() {
		logger.Infof("API started on %s", cfg.API.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API run failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Errorf("Kafka close failed: %v", err)
		}
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Infof("Service stopped")
}
