package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arborly/paperqueue/internal/api"
	"github.com/arborly/paperqueue/internal/config"
	"github.com/arborly/paperqueue/internal/gateway"
	"github.com/arborly/paperqueue/internal/health"
	"github.com/arborly/paperqueue/internal/logger"
	"github.com/arborly/paperqueue/internal/startup"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LoggingLevel)

	log.Info("starting paperqueue", "version", Version, "commit", Commit)
	config.PrintConfig(log, cfg)

	startup.ValidateAtStartup(cfg, log)

	srv, err := gateway.New(cfg, log, true)
	if err != nil {
		log.Error("failed to construct gateway", "error", err)
		os.Exit(1)
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	workersDone := srv.Start(workerCtx)

	readinessMonitor := health.NewMonitor(&health.MonitorConfig{Logger: log}, srv.Tracker)
	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	go readinessMonitor.Start(monitorCtx)

	mux := api.NewMux(srv, true)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  4 * time.Minute,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("http server forced to shutdown", "error", err)
	}

	cancelWorkers()
	select {
	case <-waitChan(workersDone):
		log.Info("all workers exited cleanly")
	case <-ctx.Done():
		log.Warn("shutdown deadline reached before all workers exited; in-flight items left non-terminal")
	}

	srv.Dispatcher.Close()
	cancelMonitor()
	log.Info("shutdown complete")
}

func waitChan(wg interface{ Wait() }) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}
