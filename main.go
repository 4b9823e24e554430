/*
Package main is the entry point for the Milo agent service.

The service answers chat prompts with an LLM agent that acts on the caller's
hosted wallet, including gasless ticket transfers, through a small REST API
built on Echo.

The application follows these initialization steps:
1. Load .env and configuration from environment variables
2. Initialize structured logging
3. Create the core server instance with dependencies
4. Set up HTTP middleware (logging, recovery, CORS, rate limiting)
5. Register API routes
6. Start the server with graceful shutdown support
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"milo/core"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

func main() {
	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	config := core.LoadConfig()

	logger := core.InitializeLogger(config)
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.WithError(envErr).Warn("Failed to load .env file")
	}
	logger.WithField("version", core.Version).Info("Starting Milo agent server")

	server, err := core.NewServer(config, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())  // HTTP request logging
	e.Use(middleware.Recover()) // Panic recovery
	e.Use(middleware.CORS())    // Cross-Origin Resource Sharing
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(config.RateLimit))))

	server.RegisterRoutes(e)

	go func() {
		logger.WithField("port", config.Port).Info("Starting server")
		if err := e.Start(fmt.Sprintf(":%s", config.Port)); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Agent runs are cancelled before the listener drains so open requests
	// finish promptly; the wallet store closes last.
	if err := server.Shutdown(ctx, e); err != nil {
		logger.WithError(err).Error("Failed to gracefully shutdown server")
	} else {
		logger.Info("Server shutdown complete")
	}
}
