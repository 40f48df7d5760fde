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

	"github.com/robertarktes/order-lifecycle/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/order-lifecycle/internal/adapters/mongo"
	"github.com/robertarktes/order-lifecycle/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/order-lifecycle/internal/adapters/redis"
	"github.com/robertarktes/order-lifecycle/internal/clock"
	"github.com/robertarktes/order-lifecycle/internal/config"
	httphandler "github.com/robertarktes/order-lifecycle/internal/http"
	"github.com/robertarktes/order-lifecycle/internal/idempotency"
	"github.com/robertarktes/order-lifecycle/internal/lifecycle"
	"github.com/robertarktes/order-lifecycle/internal/observability"
	"github.com/robertarktes/order-lifecycle/internal/query"
	"github.com/robertarktes/order-lifecycle/internal/rateLimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PGDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("order_lifecycle")
	auditLog := mongoadapter.NewAuditLog(mongoDB, logger)
	accounts := mongoadapter.NewAccountDirectory(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(cache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	clk := clock.NewSystem()
	engine := lifecycle.NewTransitionEngine(repo, auditLog, logger)
	refunds := lifecycle.NewRefundWorkflow(repo, auditLog, clk, logger)
	courtesy := lifecycle.NewCourtesyIssuer(repo, accounts, auditLog, clk, logger)
	resender := lifecycle.NewResender(repo, rabbitPub, auditLog, logger)
	queries := query.NewService(repo, cache, cfg.SummaryCacheTTL, logger)

	handlers := httphandler.NewHandlers(repo, engine, refunds, courtesy, resender, queries, auditLog, idemp, logger)
	router := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
