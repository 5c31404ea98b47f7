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

	"github.com/spf13/pflag"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/config"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/hardware"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/serverapp"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/task"
)

func main() {
	configPath := pflag.StringP("config", "c", "taskplanner.yml", "path to config file")
	addr := pflag.String("addr", "", "listen address, overrides config")
	dataDir := pflag.String("data-dir", "", "data directory, overrides config")
	noHardware := pflag.Bool("no-hardware", false, "skip GPIO even when enabled in config")
	pflag.Parse()

	logger := log.New(os.Stdout, "", 0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	tasks, err := task.NewStore(cfg.DataDir, logger)
	if err != nil {
		logger.Fatalf("open task store: %v", err)
	}

	// GPIO is optional at runtime: a planner on a machine without the
	// hardware still serves the API.
	var hw *hardware.Manager
	if cfg.Hardware.Enabled && !*noHardware {
		hw, err = hardware.Open(cfg.Hardware, tasks, logger)
		if err != nil {
			logger.Printf("hardware unavailable, continuing without it: %v", err)
		}
	}

	app, err := serverapp.New(serverapp.Options{
		Config:   cfg,
		Logger:   logger,
		Tasks:    tasks,
		Hardware: hw,
	})
	if err != nil {
		logger.Fatalf("build server: %v", err)
	}
	if hw != nil {
		hw.Start()
		defer hw.Close()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Printf("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}
