package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/basket-checkout/internal/adapter/handler"
	"github.com/rl1809/basket-checkout/internal/adapter/payment"
	"github.com/rl1809/basket-checkout/internal/adapter/storage"
	"github.com/rl1809/basket-checkout/internal/config"
	"github.com/rl1809/basket-checkout/internal/core/service"
	"github.com/rl1809/basket-checkout/internal/port"
)

const shutdownTimeout = 5 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "basket-checkout").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	zerolog.SetGlobalLevel(cfg.Level())
	cfg.WatchLogLevel(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	locker, closeLocker, err := openLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	gateway, closeGateway := openGateway(cfg, logger)
	defer closeGateway()

	dispatcher := payment.NewDispatcher(gateway, payment.DispatcherConfig{
		Workers:   cfg.SettlementWorkers,
		QueueSize: cfg.SettlementQueueSize,
	}, logger.With().Str("component", "settlement").Logger())
	defer dispatcher.Close()

	checkout := service.NewCheckoutService(store, locker,
		service.WithSettlement(dispatcher),
		service.WithLogger(logger.With().Str("component", "checkout").Logger()),
	)
	bounded := handler.WithCheckoutTimeout(checkout, cfg.CheckoutTimeout)
	services := handler.Services{
		Users:          service.NewUserService(store.Users(), logger),
		Items:          service.NewItemService(store, logger),
		Baskets:        service.NewBasketService(store, logger),
		BasketContents: service.NewBasketContentService(store, logger),
		Checkout:       bounded,
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryLogger(logger)))
	handler.RegisterCheckoutServer(grpcServer, handler.NewGRPCHandler(bounded))

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.NewRouter(handler.NewHTTPHandler(services, logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP shutdown")
		}
		logger.Info().Msg("HTTP server stopped")

		grpcServer.GracefulStop()
		logger.Info().Msg("gRPC server stopped")
		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (port.TxStore, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		return storage.NewMemoryAdapter(), func() {}, nil
	}

	if cfg.MigrateOnStart {
		version, err := storage.Migrate(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Uint("version", version).Msg("schema migrated")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping mysql: %w", err)
	}
	logger.Info().Msg("connected to mysql")

	return storage.NewMySQLAdapter(db), func() { db.Close() }, nil
}

func openLocker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (port.CheckoutLocker, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, checkout lock is per process")
		return storage.NewLocalLocker(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")

	return storage.NewRedisLocker(rdb, cfg.CheckoutLockTTL), func() { rdb.Close() }, nil
}

func openGateway(cfg *config.Config, logger zerolog.Logger) (port.PaymentGateway, func()) {
	if cfg.SettlementDriver == config.SettlementKafka {
		gw := payment.NewKafkaGateway(cfg.KafkaBrokers, cfg.KafkaSettlementTopic)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaSettlementTopic).Msg("settling through kafka")
		return gw, func() {
			if err := gw.Close(); err != nil {
				logger.Error().Err(err).Msg("close kafka writer")
			}
		}
	}
	return payment.NewNoopGateway(logger), func() {}
}
