package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/coursebook/internal/logging"
	"github.com/me/coursebook/internal/mockapi"
)

func main() {
	addr := flag.String("addr", ":5000", "Listen address")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "Log format (text, json)")
	secret := flag.String("secret", "", "JWT signing secret (default: development secret)")
	seed := flag.Bool("seed", true, "Load demo accounts and courses")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	if *debug {
		*logLevel = "debug"
	}
	logger := logging.New(*logLevel, *logFormat)

	cfg := mockapi.DefaultConfig()
	if *secret != "" {
		cfg.Secret = []byte(*secret)
	}
	srv := mockapi.New(cfg, logger)
	if *seed {
		if err := srv.Seed(); err != nil {
			fmt.Fprintf(os.Stderr, "seed: %v\n", err)
			os.Exit(1)
		}
		logger.Info("demo data loaded",
			"admin", mockapi.DemoAdminEmail, "admin_password", mockapi.DemoAdminPassword,
			"user", mockapi.DemoUserEmail, "user_password", mockapi.DemoUserPassword)
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("mock API starting", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
