package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"modernstack.dev/ragapi/internal/api"
	"modernstack.dev/ragapi/internal/app"
	"modernstack.dev/ragapi/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (defaults to $CONFIG_FILE)")
	flag.Parse()

	// Load configuration
	config.LoadConfig(*configPath)

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.Debug() {
		log.Println("Service starting in DEBUG mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, &config.AppConfig)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer application.Close()

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(application.IngestService, application.ChatService)
	limiter := api.NewRateLimiter(config.AppConfig.RateLimitRequests, config.AppConfig.RateLimitWindow)
	router := api.NewRouter(apiHandler, limiter)

	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	// No WriteTimeout: chat responses stream for as long as the model
	// generates. The stream writer sets a deadline per event instead.
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Printf("Could not listen on %s: %v", serverAddr, err)
		return
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	// Give in-flight streams time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		return
	}

	log.Println("Server exiting gracefully")
}
