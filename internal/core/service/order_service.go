package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/shopcore/internal/core/domain"
	"github.com/rl1809/shopcore/internal/port"
)

// OrderService owns the order ledger. It turns carts into orders and applies
// status changes, publishing a ledger event after each change.
type OrderService struct {
	customers  *CustomerRegistry
	cache      port.CacheRepository
	logger     *zap.Logger
	transition domain.TransitionPolicy
	now        func() time.Time

	mu     sync.RWMutex
	orders []domain.Order

	queueMu    sync.RWMutex
	closed     bool
	orderQueue chan domain.LedgerEvent
}

type Option func(*OrderService)

func WithLogger(logger *zap.Logger) Option {
	return func(s *OrderService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTransitionPolicy replaces the default permissive status policy.
func WithTransitionPolicy(policy domain.TransitionPolicy) Option {
	return func(s *OrderService) {
		if policy != nil {
			s.transition = policy
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewOrderService creates an empty ledger. Ledger events are buffered up to
// queueSize; a queueSize of zero disables them. cache may be nil, in which
// case checkout request ids are not deduplicated.
func NewOrderService(customers *CustomerRegistry, cache port.CacheRepository, queueSize int, opts ...Option) *OrderService {
	s := &OrderService{
		customers:  customers,
		cache:      cache,
		logger:     zap.NewNop(),
		transition: domain.PermissiveTransitions,
		now:        time.Now,
	}
	if queueSize > 0 {
		s.orderQueue = make(chan domain.LedgerEvent, queueSize)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout converts the customer's cart into a pending order and clears the
// cart. The snapshot, the ledger append and the clear happen in one critical
// section. A non-empty requestID makes the call idempotent per customer; the
// id is released again when no order is placed.
func (s *OrderService) Checkout(ctx context.Context, customerID int, requestID string) (domain.Order, error) {
	var idempotencyKey string
	if requestID != "" && s.cache != nil {
		idempotencyKey = fmt.Sprintf("checkout:%d:%s", customerID, requestID)

		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return domain.Order{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return domain.Order{}, domain.ErrDuplicateRequest
		}
	}

	var order domain.Order
	err := s.customers.update(customerID, func(rec *customerRecord) error {
		if rec.cart.Len() == 0 {
			return domain.ErrEmptyCart
		}
		order = s.appendOrder(rec.customer, &rec.cart)
		rec.cart.Clear()
		return nil
	})
	if err != nil {
		if idempotencyKey != "" {
			s.releaseKey(ctx, idempotencyKey)
		}
		return domain.Order{}, fmt.Errorf("checkout customer %d: %w", customerID, err)
	}

	s.logger.Info("order placed",
		zap.Int("order_id", order.ID),
		zap.Int("customer_id", customerID),
		zap.Int("lines", len(order.Lines)),
		zap.Stringer("total", order.Total))

	s.publish(ctx, domain.LedgerEvent{Kind: domain.LedgerEventOrderPlaced, Order: order.Clone()})

	return order, nil
}

// releaseKey gives back a request id claimed by a checkout that placed no
// order, so the client can retry with it.
func (s *OrderService) releaseKey(ctx context.Context, key string) {
	if err := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("failed to release request id",
			zap.String("key", key),
			zap.Error(err))
	}
}

func (s *OrderService) appendOrder(customer domain.Customer, cart *domain.Cart) domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	order := domain.Order{
		ID: len(s.orders) + 1,
		Customer: domain.CustomerRef{
			ID:       customer.ID,
			Username: customer.Username,
			Name:     customer.Name,
		},
		Lines:     cart.Lines(),
		Total:     cart.Total(),
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.orders = append(s.orders, order)

	return order.Clone()
}

// History returns every order in creation order.
func (s *OrderService) History() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out
}

// OrdersFor returns the orders placed by one customer, oldest first.
func (s *OrderService) OrdersFor(customerID int) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Order
	for _, o := range s.orders {
		if o.Customer.ID == customerID {
			out = append(out, o.Clone())
		}
	}
	return out
}

func (s *OrderService) FindByID(orderID int) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if orderID < 1 || orderID > len(s.orders) {
		return domain.Order{}, fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}
	return s.orders[orderID-1].Clone(), nil
}

// SetStatus moves an order to the named status. The name is matched
// case-insensitively; the transition policy decides whether the move is
// allowed.
func (s *OrderService) SetStatus(ctx context.Context, orderID int, statusName string) (domain.Order, error) {
	status, err := domain.ParseOrderStatus(statusName)
	if err != nil {
		return domain.Order{}, err
	}

	s.mu.Lock()
	if orderID < 1 || orderID > len(s.orders) {
		s.mu.Unlock()
		return domain.Order{}, fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}
	current := &s.orders[orderID-1]
	previous := current.Status
	if err := s.transition(previous, status); err != nil {
		s.mu.Unlock()
		return domain.Order{}, fmt.Errorf("order %d: %w", orderID, err)
	}
	current.Status = status
	current.UpdatedAt = s.now()
	order := current.Clone()
	s.mu.Unlock()

	s.logger.Info("order status changed",
		zap.Int("order_id", orderID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))

	s.publish(ctx, domain.LedgerEvent{Kind: domain.LedgerEventStatusChanged, Order: order.Clone()})

	return order, nil
}

func (s *OrderService) publish(ctx context.Context, event domain.LedgerEvent) {
	if s.orderQueue == nil {
		return
	}

	s.queueMu.RLock()
	defer s.queueMu.RUnlock()

	if s.closed {
		s.logger.Warn("ledger event dropped after close",
			zap.String("kind", string(event.Kind)),
			zap.Int("order_id", event.Order.ID))
		return
	}

	select {
	case s.orderQueue <- event:
	case <-ctx.Done():
		s.logger.Warn("ledger event dropped",
			zap.String("kind", string(event.Kind)),
			zap.Int("order_id", event.Order.ID),
			zap.Error(ctx.Err()))
	}
}

// GetOrderQueue returns the ledger event stream consumed by fulfilment
// workers. It is nil when events are disabled.
func (s *OrderService) GetOrderQueue() <-chan domain.LedgerEvent {
	return s.orderQueue
}

// Close stops publishing and closes the queue so workers can drain and exit.
func (s *OrderService) Close() {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.orderQueue != nil {
		close(s.orderQueue)
	}
}
