/**
 * @description
 * This is the main entry point for the gifting-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * the Redis leaderboard and rate limiter, the message broker, the websocket hub,
 * the core application service, and the HTTP server. It wires everything together
 * and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Redis client for leaderboards and rate limits.
 * - internal/api, internal/app, internal/config, internal/gateway, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/usefuns/gifting-service/internal/api"
	"github.com/usefuns/gifting-service/internal/app"
	"github.com/usefuns/gifting-service/internal/config"
	"github.com/usefuns/gifting-service/internal/gateway"
	"github.com/usefuns/gifting-service/internal/store"
	rmrabbit "github.com/usefuns/gifting-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	levelThresholds, err := app.ParseLevelThresholds(config.SplitList(cfg.LevelThresholds))
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"level thresholds invalid\" err=%v", err)
	}
	treasureThresholds, err := app.ParseTreasureBoxThresholds(config.SplitList(cfg.TreasureBoxThresholds))
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"treasure box thresholds invalid\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting gifting-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	// Configure connection pool for high-traffic scenarios
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish economy events. The broker
	// being down degrades to a no-op publisher; gifting keeps working.
	var producer rmrabbit.Publisher
	eventProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Redis backs the contribution leaderboard and the gift rate limiter.
	// Missing Redis disables both; the core economy stays up.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; leaderboard and rate limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; leaderboard and rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; leaderboard and rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// The websocket hub doubles as the service's broadcaster.
	hub := gateway.NewHub()

	// Initialize the core application service with its dependencies.
	economyService := app.NewService(repository, hub, producer, app.EconomyConfig{
		LevelThresholds:        levelThresholds,
		TreasureBoxThresholds:  treasureThresholds,
		CashbackProbabilityPct: cfg.CashbackProbabilityPct,
		CashbackMaxShare:       cfg.CashbackMaxShare,
		CashbackWindow:         time.Duration(cfg.CashbackWindowSeconds) * time.Second,
		BeansPerDiamond:        cfg.BeansPerDiamond,
		GiftRateLimitPerMinute: cfg.GiftRateLimitPerMinute,
	})
	if redisClient != nil {
		economyService.SetContributionBoard(store.NewRoomLeaderboard(redisClient, cfg.RedisContributionPrefix))
		economyService.SetGiftRateLimiter(app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix))
	}

	// Initialize the API and websocket handlers.
	economyHandlers := api.NewEconomyHandlers(economyService)
	wsHandler := gateway.NewHandler(hub, economyService)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/", api.EconomyRoutes(economyHandlers, wsHandler, cfg.JWTSecret))

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Shutdown()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
