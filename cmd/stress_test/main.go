package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/shopcore/internal/adapter/storage"
	"github.com/rl1809/shopcore/internal/core/domain"
	"github.com/rl1809/shopcore/internal/core/service"
	"github.com/rl1809/shopcore/internal/port"
)

func main() {
	customerCount := flag.Int("customers", 200, "number of concurrent customers")
	retries := flag.Int("retries", 3, "duplicate checkout attempts per customer")
	redisAddr := flag.String("redis", "", "redis address for idempotency keys (in-memory when empty)")
	flag.Parse()

	logger, _ := zap.NewDevelopment()

	ok := run(logger, *customerCount, *retries, *redisAddr)
	logger.Sync()
	if !ok {
		os.Exit(1)
	}
}

// run drives the checkout load and reports whether every check passed.
func run(logger *zap.Logger, customerCount, retries int, redisAddr string) bool {
	ctx := context.Background()

	var cache port.CacheRepository = storage.NewMemoryAdapter()
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		cache = storage.NewRedisAdapter(rdb)
	}

	catalog := service.NewCatalogService(nil)
	shoes, err := catalog.Register("Shoes", domain.MoneyFromFloat(20))
	if err != nil {
		logger.Fatal("failed to register product", zap.Error(err))
	}
	wine, err := catalog.Register("Wine", domain.MoneyFromFloat(5))
	if err != nil {
		logger.Fatal("failed to register product", zap.Error(err))
	}

	customers := service.NewCustomerRegistry(nil)
	carts := service.NewCartService(catalog, customers, nil)
	orders := service.NewOrderService(customers, cache, customerCount)
	defer orders.Close()

	// Drain the ledger queue in background
	go func() {
		for range orders.GetOrderQueue() {
		}
	}()

	ids := make([]int, customerCount)
	for i := range ids {
		c, err := customers.Register(fmt.Sprintf("user-%d", i), fmt.Sprintf("User %d", i))
		if err != nil {
			logger.Fatal("failed to register customer", zap.Error(err))
		}
		ids[i] = c.ID
		if err := customers.SetAddress(c.ID, "1 Main St"); err != nil {
			logger.Fatal("failed to set address", zap.Int("customer_id", c.ID), zap.Error(err))
		}
		for _, itemID := range []int{shoes.ID, wine.ID} {
			if _, err := carts.AddItem(c.ID, itemID); err != nil {
				logger.Fatal("failed to fill cart", zap.Int("customer_id", c.ID), zap.Error(err))
			}
		}
	}

	// Counters
	var successCount atomic.Int32
	var duplicateCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for _, id := range ids {
		requestID := uuid.NewString()
		for r := 0; r < retries; r++ {
			wg.Add(1)
			go func(customerID int) {
				defer wg.Done()

				_, err := orders.Checkout(ctx, customerID, requestID)
				switch {
				case err == nil:
					successCount.Add(1)
				case errors.Is(err, domain.ErrDuplicateRequest):
					duplicateCount.Add(1)
				default:
					failCount.Add(1)
				}
			}(id)
		}
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	duplicates := duplicateCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Customers:        %d\n", customerCount)
	fmt.Printf("Attempts:         %d\n", customerCount*retries)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Duplicates:       %d\n", duplicates)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	ok := true
	if int(success) != customerCount || fail != 0 {
		fmt.Printf("FAIL: expected %d orders and no failures, got %d/%d\n", customerCount, success, fail)
		ok = false
	} else {
		fmt.Printf("PASS: exactly %d orders placed\n", success)
	}

	history := orders.History()
	for i, o := range history {
		if o.ID != i+1 {
			fmt.Printf("FAIL: order at position %d has id %d\n", i, o.ID)
			ok = false
			break
		}
		if o.Total != domain.MoneyFromFloat(25) {
			fmt.Printf("FAIL: order %d total %s\n", o.ID, o.Total)
			ok = false
			break
		}
	}
	if ok {
		fmt.Println("PASS: order ids are dense and totals match")
	}

	for _, id := range ids {
		lines, err := carts.Lines(id)
		if err != nil || len(lines) != 0 {
			fmt.Printf("FAIL: customer %d cart not cleared\n", id)
			ok = false
			break
		}
	}
	if ok {
		fmt.Println("PASS: every cart cleared")
	}
	return ok
}
