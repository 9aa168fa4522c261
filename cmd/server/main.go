package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tilekeep/pkg/authn"
	"tilekeep/pkg/config"
	"tilekeep/pkg/gateway"
	"tilekeep/pkg/mapgrid"
	"tilekeep/pkg/persistence"
	"tilekeep/pkg/room"
)

func main() {
	cfg := loadAndConfigureSystem()

	store, err := persistence.NewSQLStore(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open persistence store")
	}
	defer store.Close()

	mapModel, err := mapgrid.LoadYAML(cfg.MapFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load map")
	}

	authSvc := authn.NewJWTService(cfg.JWTSigningKey)

	srv, listener := initializeServer(cfg, store, mapModel, authSvc)
	executeServerLifecycle(srv, listener, cfg)
}

// initializeServer wires the room registry, the session gateway, and the
// observability endpoints onto a single HTTP server, then opens the
// listener.
func initializeServer(cfg *config.Config, store persistence.Store, mapModel *mapgrid.Model, authSvc authn.Service) (*http.Server, net.Listener) {
	roomCfg := room.Config{
		TickPeriod:        cfg.TickPeriod(),
		AutoSaveInterval:  cfg.AutoSaveInterval,
		IdleCheckInterval: cfg.IdleCheckInterval,
		IdleWarnAfter:     cfg.IdleWarnAfter,
		IdleKickAfter:     cfg.IdleKickAfter,
		MaxPartySize:      cfg.MaxPartySize,
	}

	gw := gateway.New(cfg, nil, authSvc, nil)
	registry := room.NewRegistry(mapModel, store, gw, roomCfg)
	gw.SetRegistry(registry)

	metrics := gateway.NewMetrics(registry.Len)
	gw.SetMetrics(metrics)

	health := gateway.NewHealthChecker(registry, store, cfg)

	mux := http.NewServeMux()
	mux.Handle("/ws", gw)
	mux.HandleFunc("/health", health.HealthHandler)
	mux.HandleFunc("/ready", health.ReadinessHandler)
	mux.HandleFunc("/live", health.LivenessHandler)
	mux.Handle("/metrics", metrics.Handler())

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ServerPort))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start listener")
	}

	return &http.Server{Handler: mux}, listener
}

// loadAndConfigureSystem loads configuration and sets up logging.
func loadAndConfigureSystem() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	configureLogging(cfg.LogLevel)
	logStartupInfo(cfg)
	return cfg
}

// configureLogging sets up the logging system based on configuration.
func configureLogging(logLevel string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// logStartupInfo logs server startup information.
func logStartupInfo(cfg *config.Config) {
	logrus.WithFields(logrus.Fields{
		"port":     cfg.ServerPort,
		"tickRate": cfg.TickRate,
		"dbDriver": cfg.DatabaseDriver,
		"mapFile":  cfg.MapFile,
		"logLevel": cfg.LogLevel,
		"devMode":  cfg.EnableDevMode,
	}).Info("Starting tilekeep server")
}

// executeServerLifecycle handles the complete server lifecycle including startup and shutdown.
func executeServerLifecycle(srv *http.Server, listener net.Listener, cfg *config.Config) {
	sigChan, errChan := setupShutdownHandling()
	startServerAsync(srv, listener, errChan)
	waitForShutdownSignal(sigChan, errChan)
	performGracefulShutdown(srv, cfg)
}

// setupShutdownHandling creates channels for graceful shutdown signal handling.
func setupShutdownHandling() (chan os.Signal, chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	errChan := make(chan error, 1)
	return sigChan, errChan
}

// startServerAsync starts the server in a background goroutine.
func startServerAsync(srv *http.Server, listener net.Listener, errChan chan error) {
	go func() {
		logrus.WithField("address", listener.Addr()).Info("Server listening")
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server failed: %w", err)
		}
	}()
}

// waitForShutdownSignal waits for either a shutdown signal or server error.
func waitForShutdownSignal(sigChan chan os.Signal, errChan chan error) {
	select {
	case sig := <-sigChan:
		logrus.WithField("signal", sig).Info("Received shutdown signal")
	case err := <-errChan:
		logrus.WithError(err).Error("Server error")
	}
}

// performGracefulShutdown stops accepting new connections. In-flight rooms
// dispose themselves as their last session leaves and perform their own
// final save; this shutdown path does not force-dispose open rooms.
func performGracefulShutdown(srv *http.Server, cfg *config.Config) {
	logrus.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Error during graceful shutdown")
	}

	time.Sleep(cfg.ShutdownGracePeriod)
	logrus.Info("Server shutdown completed")
}
