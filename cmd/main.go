package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"proposal-access-service/internal/config"
	"proposal-access-service/internal/database/mongo"
	"proposal-access-service/internal/database/redis"
	"proposal-access-service/internal/events"
	"proposal-access-service/internal/handlers"
	"proposal-access-service/internal/repository"
	"proposal-access-service/internal/service"
	"proposal-access-service/pkg/discovery"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/evolvia", "log", "proposal_access_service")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.ServiceConfig

	if cfg.TokenSecret == "" {
		log.Fatal("TOKEN_SECRET is not set, refusing to start")
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Proposal Access Service is healthy")
	})

	// Initialize repositories
	grantRepo := repository.NewGrantRepository(mongo.Mongo_Database)
	sessionRepo := repository.NewSessionRepository(redis.Redis_Client)

	// Create database indexes
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := grantRepo.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create grant indexes: %v", err)
	}
	cancel()

	// Initialize event publisher
	eventPublisher, err := events.NewEventPublisher(cfg.RabbitMQURI)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
		eventPublisher, _ = events.NewEventPublisher("")
	}

	// Initialize services
	tokenService := service.NewTokenService(cfg.TokenSecret)
	grantService := service.NewGrantService(grantRepo, tokenService, eventPublisher, cfg.MinGrantHours, cfg.MaxGrantHours)
	sessionService := service.NewSessionService(
		sessionRepo,
		grantRepo,
		time.Duration(cfg.SessionWindowMinutes)*time.Minute,
		time.Duration(cfg.ExtensionMinutes)*time.Minute,
		cfg.MaxSessionExtensions,
	)
	accessService := service.NewAccessService(tokenService, grantRepo, sessionService, eventPublisher)

	// Initialize event consumer
	eventConsumer, err := events.NewEventConsumer(cfg.RabbitMQURI, grantService)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
		eventConsumer = nil
	} else {
		if err := eventConsumer.Start(); err != nil {
			log.Printf("Warning: Failed to start event consumer: %v", err)
			eventConsumer.Close()
			eventConsumer = nil
		} else {
			log.Println("Successfully started proposal event consumer")
		}
	}

	// Initialize and register handlers
	grantHandler := handlers.NewGrantHandler(grantService)
	grantHandler.RegisterRoutes(app)
	accessHandler := handlers.NewAccessHandler(accessService, sessionService)
	accessHandler.RegisterRoutes(app)

	// Register with service discovery
	if err := discovery.ServiceDiscovery.Register(); err != nil {
		log.Printf("Warning: Failed to register with Consul: %v", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	// Close event publisher
	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}

	// Close event consumer
	if eventConsumer != nil {
		if err := eventConsumer.Close(); err != nil {
			log.Printf("Error closing event consumer: %v", err)
		}
	}

	// Disconnect from MongoDB
	mongo.DisconnectMongo()

	// Deregister from service discovery
	if discovery.ServiceDiscovery != nil {
		if err := discovery.ServiceDiscovery.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	<-doneChan
	log.Println("Server shutdown complete")
}
