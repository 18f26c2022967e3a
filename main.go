package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"live-auction/internal/adminauth"
	"live-auction/internal/audit"
	auction "live-auction/internal/auctionService"
	"live-auction/internal/broadcast"
	"live-auction/internal/broadcast/relay"
	"live-auction/internal/config"
	"live-auction/internal/coordinator"
	"live-auction/internal/ledger"
	"live-auction/internal/models"
	"live-auction/internal/observability"
	"live-auction/internal/ratelimit"
	"live-auction/internal/registry"
	"live-auction/internal/repository"
	"live-auction/internal/repository/postgres"
	"live-auction/internal/server"
	"live-auction/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	utils.SetLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownOTel(sctx)
	}()

	health := map[string]server.HealthCheck{}

	repo, closeRepo, err := openRepository(ctx, cfg, health)
	if err != nil {
		return err
	}
	defer closeRepo()

	var registryOpts []registry.Option
	if cfg.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		health["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		registryOpts = append(registryOpts, registry.WithAuditor(audit.NewMongoAuditor(client.Database(cfg.MongoDB))))
	}

	hub := broadcast.NewHub(
		broadcast.WithHeartbeat(cfg.HeartbeatInterval),
		broadcast.WithBuffer(cfg.SubscriberBuffer),
	)

	bidLedger := ledger.New(repo)
	coord := coordinator.New(repo, bidLedger,
		coordinator.WithPublisher(hub),
		coordinator.WithCommitTimeout(cfg.CommitTimeout),
	)
	service := auction.NewAuctionService(registry.New(repo, registryOpts...), bidLedger, coord)

	deps := server.Deps{Service: service, Feed: hub, Health: health}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		deps.Limiter = ratelimit.New(rdb, cfg.BidRateLimit, cfg.BidRatePeriod)
	}

	if cfg.AdminJWTSecret != "" {
		deps.Tokens, err = adminauth.NewManager(cfg.AdminJWTSecret, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("admin auth: %w", err)
		}
	} else {
		utils.Warn("ADMIN_JWT_SECRET not set, admin routes disabled", nil)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.RabbitURL != "" {
		conn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		defer conn.Close()
		pub, err := relay.NewPublisher(conn)
		if err != nil {
			return err
		}
		g.Go(func() error { return pub.Run(gctx, hub) })
	}

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           server.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		utils.Info("Starting auction server", map[string]any{"addr": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		utils.Info("Shutting down", nil)

		// Live streams only end once the hub is closed.
		hub.Close()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// openRepository connects to Postgres when DATABASE_DSN is set and
// otherwise falls back to a seeded in-memory store.
func openRepository(ctx context.Context, cfg *config.Config, health map[string]server.HealthCheck) (repository.AuctionDB, func(), error) {
	if cfg.DatabaseDSN == "" {
		utils.Warn("DATABASE_DSN not set, using in-memory store", nil)
		repo := repository.NewMemoryRepo()
		prepopulateItems(repo)
		return repo, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	repo := postgres.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	health["postgres"] = pool.Ping
	return repo, pool.Close, nil
}

// prepopulateItems adds sample items to the in-memory repo
func prepopulateItems(repo *repository.MemoryRepo) {
	now := time.Now().UTC()
	items := []models.Auction{
		{ID: "dmo001", Title: "Vintage oud", City: "Riyadh", OwnerID: "seller1", SellerName: "@seller1", StartingPrice: 100},
		{ID: "dmo002", Title: "Camel saddle", City: "Jeddah", OwnerID: "seller2", SellerName: "@seller2", StartingPrice: 200},
		{ID: "dmo003", Title: "Brass dallah", City: "Abha", OwnerID: "seller1", SellerName: "@seller1", StartingPrice: 150},
	}

	for _, item := range items {
		item.CurrentPrice = item.StartingPrice
		item.CreatedAt = now
		item.EndsAt = now.Add(72 * time.Hour)
		item.Images = []string{}
		item.Thumbnails = []string{}
		repo.AddAuction(item)
	}
}
