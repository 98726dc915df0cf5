package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/shopcore/internal/core/domain"
	"github.com/rl1809/shopcore/internal/port"
)

const eventTimeout = 5 * time.Second

// Pool drains ledger events: placed orders are charged and archived, status
// changes are archived. Failures are logged and the event is dropped.
type Pool struct {
	charger port.Charger
	archive port.DatabaseRepository
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewPool creates a pool. archive may be nil when no archive is configured.
func NewPool(charger port.Charger, archive port.DatabaseRepository, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		charger: charger,
		archive: archive,
		logger:  logger,
	}
}

// Start launches n workers reading from queue. Events are sharded by order
// id so events for one order are handled in publish order. Workers exit once
// the queue is closed and drained.
func (p *Pool) Start(n int, queue <-chan domain.LedgerEvent) {
	if n < 1 {
		n = 1
	}

	shards := make([]chan domain.LedgerEvent, n)
	for i := range shards {
		shards[i] = make(chan domain.LedgerEvent, cap(queue)/n+1)

		p.wg.Add(1)
		go func(id int, shard <-chan domain.LedgerEvent) {
			defer p.wg.Done()
			p.workerLoop(id, shard)
		}(i, shards[i])
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for event := range queue {
			shards[event.Order.ID%n] <- event
		}
		for _, shard := range shards {
			close(shard)
		}
	}()

	p.logger.Info("started workers", zap.Int("count", n))
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) workerLoop(id int, queue <-chan domain.LedgerEvent) {
	log := p.logger.With(zap.Int("worker", id))

	for event := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		p.handle(ctx, log, event)
		cancel()
	}
}

func (p *Pool) handle(ctx context.Context, log *zap.Logger, event domain.LedgerEvent) {
	order := event.Order

	switch event.Kind {
	case domain.LedgerEventOrderPlaced:
		if p.charger != nil {
			if err := p.charger.Charge(ctx, order); err != nil {
				log.Error("charge failed", zap.Int("order_id", order.ID), zap.Error(err))
			}
		}
		if p.archive != nil {
			if err := p.archive.SaveOrder(ctx, order); err != nil {
				log.Error("failed to archive order", zap.Int("order_id", order.ID), zap.Error(err))
				return
			}
			log.Debug("archived order", zap.Int("order_id", order.ID))
		}

	case domain.LedgerEventStatusChanged:
		if p.archive != nil {
			if err := p.archive.UpdateOrderStatus(ctx, order.ID, order.Status, order.UpdatedAt); err != nil {
				log.Error("failed to archive status",
					zap.Int("order_id", order.ID),
					zap.String("status", string(order.Status)),
					zap.Error(err))
			}
		}

	default:
		log.Warn("unknown ledger event", zap.String("kind", string(event.Kind)))
	}
}
