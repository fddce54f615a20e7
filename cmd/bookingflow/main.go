package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	mongoadapter "github.com/woodlands-thekkady/booking-flow/internal/adapters/mongo"
	"github.com/woodlands-thekkady/booking-flow/internal/adapters/pg"
	"github.com/woodlands-thekkady/booking-flow/internal/adapters/rabbit"
	redisadapter "github.com/woodlands-thekkady/booking-flow/internal/adapters/redis"
	"github.com/woodlands-thekkady/booking-flow/internal/availability"
	"github.com/woodlands-thekkady/booking-flow/internal/booking"
	"github.com/woodlands-thekkady/booking-flow/internal/catalog"
	"github.com/woodlands-thekkady/booking-flow/internal/clock"
	"github.com/woodlands-thekkady/booking-flow/internal/config"
	"github.com/woodlands-thekkady/booking-flow/internal/hold"
	httphandler "github.com/woodlands-thekkady/booking-flow/internal/http"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
	"github.com/woodlands-thekkady/booking-flow/internal/payment"
	"github.com/woodlands-thekkady/booking-flow/internal/rateLimit"
	"github.com/woodlands-thekkady/booking-flow/internal/reservapi"
	"github.com/woodlands-thekkady/booking-flow/internal/session"
	"github.com/woodlands-thekkady/booking-flow/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()
	clk := clock.NewSystem()

	api := reservapi.New(cfg.ReservationAPI, cfg.UpstreamTimeout, logger)
	cat := catalog.NewResolver(api, logger).Resolve(context.Background())
	logger.WithField("tier", string(cat.Tier)).Info("catalog resolved")

	checkout := payment.NewCallbackCheckout()

	// Everything below degrades gracefully: redis, mongo, postgres and
	// rabbitmq are each optional, wired in only when configured.
	var rl *rateLimit.RateLimiter
	var idemp booking.IdempotencyStore
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		rl = rateLimit.NewRateLimiter(redisadapter.NewCache(redisClient))
		idemp = redisadapter.NewIdempotency(redisClient)
		defer redisClient.Close()
	}

	var audit workflow.TransitionRecorder
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		audit = mongoadapter.NewAuditTrail(mongoClient.Database("bookingflow"), logger)
	}

	var journal workflow.ReconciliationSink
	if cfg.PGDSN != "" {
		pool, err := pgxpool.New(context.Background(), cfg.PGDSN)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		j := pg.NewJournal(pool)
		if err := j.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("failed to prepare reconciliation journal: %v", err)
		}
		journal = j
	}

	var events workflow.EventPublisher
	if cfg.RabbitURL != "" {
		rabbitConn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer rabbitConn.Close()
		pub, err := rabbit.NewPublisher(rabbitConn)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
		events = pub
	}

	factory := func(id string) *workflow.Controller {
		return workflow.NewController(id, workflow.Deps{
			Catalog:         cat,
			Availability:    availability.New(api, logger),
			Holds:           hold.NewManager(api, logger),
			Expiry:          hold.NewExpiryClock(clk),
			Payments:        payment.NewOrchestrator(api, checkout, logger),
			Bookings:        booking.NewConfirmer(api, idemp, logger),
			Logger:          logger,
			Clock:           clk,
			CheckoutTimeout: cfg.CheckoutTimeout,
			Audit:           audit,
			Events:          events,
			Journal:         journal,
		})
	}
	sessions := session.NewRegistry(factory, cfg.SessionIdleTTL, logger)

	handlers := httphandler.NewHandlers(sessions, checkout, logger)
	r := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	runCtx, stop := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return sessions.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	stop()
	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("worker exited: ", err)
	}
	logger.Info("Server exiting")
}
