package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/rovify/rovify-api/internal/config"
	"github.com/rovify/rovify-api/internal/database"
	"github.com/rovify/rovify-api/internal/handler"
	"github.com/rovify/rovify-api/internal/middleware"
	"github.com/rovify/rovify-api/internal/queue"
	"github.com/rovify/rovify-api/internal/repository"
	"github.com/rovify/rovify-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Redis is optional. Without it the rate limiter and the event
	// listing cache silently disable themselves.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	nonces := repository.NewNonceRepo(db)
	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	transactions := repository.NewTransactionRepo(db)
	engagement := repository.NewEngagementRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens, nonces, handler.NewGoogleVerifier(cfg))
	eventH := handler.NewEventHandler(events, users, engagement)
	engH := handler.NewEngagementHandler(events, engagement)
	ticketH := handler.NewTicketHandler(events, tickets, transactions, users)
	userH := handler.NewUserHandler(users, events)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	var cache echo.MiddlewareFunc
	if rdb != nil {
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterEvents(e, eventH, engH, cfg.JWTSecret, cache)
	router.RegisterTickets(e, ticketH, cfg.JWTSecret)
	router.RegisterUsers(e, userH, cfg.JWTSecret)

	// Ticket notification consumer; reconnects on its own.
	go func() {
		if err := queue.StartTicketConsumer(); err != nil {
			log.Printf("ticket consumer stopped: %v", err)
		}
	}()

	// Expired wallet-login challenges accumulate, so sweep them
	// periodically. Used nonces are kept until they expire.
	go func() {
		t := time.NewTicker(10 * time.Minute)
		defer t.Stop()
		for range t.C {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if n, err := nonces.PurgeExpired(ctx, time.Now().UTC()); err != nil {
				log.Printf("nonce purge: %v", err)
			} else if n > 0 {
				log.Printf("nonce purge: removed %d expired challenges", n)
			}
			cancel()
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
