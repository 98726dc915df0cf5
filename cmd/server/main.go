package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/shopcore/internal/adapter/handler"
	"github.com/rl1809/shopcore/internal/adapter/payment"
	"github.com/rl1809/shopcore/internal/adapter/storage"
	"github.com/rl1809/shopcore/internal/config"
	"github.com/rl1809/shopcore/internal/core/domain"
	"github.com/rl1809/shopcore/internal/core/service"
	"github.com/rl1809/shopcore/internal/port"
	"github.com/rl1809/shopcore/internal/worker"
)

var seedCatalog = []struct {
	name  string
	price float64
}{
	{"Shoes", 20},
	{"Wine", 5},
	{"Phone", 500.45},
	{"Laptop", 900},
	{"Socks", 2.25},
	{"Slippers", 2.67},
	{"TV", 700},
}

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Idempotency store
	var cache port.CacheRepository = storage.NewMemoryAdapter()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cache = storage.NewRedisAdapter(rdb)
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	// Order archive
	var archive port.DatabaseRepository
	var db *sql.DB
	if cfg.MySQLDSN != "" {
		db, err = sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			logger.Fatal("failed to open mysql", zap.Error(err))
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("failed to ping mysql", zap.Error(err))
		}
		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate mysql", zap.Error(err))
		}
		archive = mysqlAdapter
		logger.Info("connected to mysql")
	}

	// Services
	catalog := service.NewCatalogService(logger)
	if cfg.SeedCatalog {
		for _, item := range seedCatalog {
			if _, err := catalog.Register(item.name, domain.MoneyFromFloat(item.price)); err != nil {
				logger.Fatal("failed to seed catalog", zap.String("name", item.name), zap.Error(err))
			}
		}
	}

	customers := service.NewCustomerRegistry(logger)
	if _, err := customers.RegisterAdmin(cfg.AdminUsername, cfg.AdminName); err != nil {
		logger.Fatal("failed to register admin", zap.Error(err))
	}

	carts := service.NewCartService(catalog, customers, logger)

	opts := []service.Option{service.WithLogger(logger)}
	if cfg.StrictTransitions {
		opts = append(opts, service.WithTransitionPolicy(domain.StrictTransitions))
	}
	orders := service.NewOrderService(customers, cache, cfg.QueueSize, opts...)

	// Fulfilment workers
	var pool *worker.Pool
	if queue := orders.GetOrderQueue(); queue != nil {
		pool = worker.NewPool(payment.NewLogCharger(logger), archive, logger)
		pool.Start(cfg.WorkerCount, queue)
	}

	// gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterStorefrontServer(grpcServer, handler.NewGRPCHandler(customers, carts, orders, logger))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// HTTP server
	httpHandler := handler.NewHTTPHandler(catalog, customers, carts, orders, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(httpHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Close the ledger queue and let workers drain it
	orders.Close()
	if pool != nil {
		pool.Wait()
	}
	logger.Info("workers stopped")

	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	logger.Info("connections closed")
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
