package service

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rl1809/shopcore/internal/core/domain"
)

type customerRecord struct {
	customer domain.Customer
	cart     domain.Cart
}

// CustomerRegistry is the append-only registry of customers. Each customer
// owns exactly one cart, which is guarded by the registry lock.
type CustomerRegistry struct {
	logger *zap.Logger

	mu         sync.RWMutex
	records    []*customerRecord
	byUsername map[string]*customerRecord
}

func NewCustomerRegistry(logger *zap.Logger) *CustomerRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerRegistry{
		logger:     logger,
		byUsername: make(map[string]*customerRecord),
	}
}

// Register signs up a customer with the customer role.
func (r *CustomerRegistry) Register(username, name string) (domain.Customer, error) {
	return r.register(username, name, domain.RoleCustomer)
}

// RegisterAdmin signs up a customer with the admin role.
func (r *CustomerRegistry) RegisterAdmin(username, name string) (domain.Customer, error) {
	return r.register(username, name, domain.RoleAdmin)
}

func (r *CustomerRegistry) register(username, name string, role domain.Role) (domain.Customer, error) {
	if utf8.RuneCountInString(username) < domain.MinFieldLength {
		return domain.Customer{}, fmt.Errorf("%w: username must be at least %d characters", domain.ErrInvalidField, domain.MinFieldLength)
	}

	r.mu.Lock()
	if _, exists := r.byUsername[username]; exists {
		r.mu.Unlock()
		return domain.Customer{}, fmt.Errorf("%w: %q", domain.ErrDuplicateUsername, username)
	}
	if utf8.RuneCountInString(name) < domain.MinFieldLength {
		r.mu.Unlock()
		return domain.Customer{}, fmt.Errorf("%w: name must be at least %d characters", domain.ErrInvalidField, domain.MinFieldLength)
	}
	rec := &customerRecord{
		customer: domain.Customer{
			ID:       len(r.records) + 1,
			Username: username,
			Name:     name,
			Role:     role,
		},
	}
	r.records = append(r.records, rec)
	r.byUsername[username] = rec
	customer := rec.customer
	r.mu.Unlock()

	r.logger.Info("customer registered",
		zap.Int("customer_id", customer.ID),
		zap.String("username", customer.Username),
		zap.String("role", string(customer.Role)))

	return customer, nil
}

func (r *CustomerRegistry) FindByUsername(username string) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byUsername[username]
	if !ok {
		return domain.Customer{}, fmt.Errorf("customer %q: %w", username, domain.ErrNotFound)
	}
	return rec.customer, nil
}

func (r *CustomerRegistry) FindByID(id int) (domain.Customer, error) {
	var customer domain.Customer
	err := r.view(id, func(rec *customerRecord) error {
		customer = rec.customer
		return nil
	})
	return customer, err
}

// List returns every customer in registration order.
func (r *CustomerRegistry) List() []domain.Customer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Customer, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.customer
	}
	return out
}

func (r *CustomerRegistry) SetAddress(customerID int, address string) error {
	return r.update(customerID, func(rec *customerRecord) error {
		rec.customer.Address = address
		return nil
	})
}

func (r *CustomerRegistry) SetName(customerID int, name string) error {
	return r.update(customerID, func(rec *customerRecord) error {
		rec.customer.Name = name
		return nil
	})
}

// view runs fn under the read lock. fn must not mutate rec.
func (r *CustomerRegistry) view(id int, fn func(rec *customerRecord) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, err := r.lookup(id)
	if err != nil {
		return err
	}
	return fn(rec)
}

// update runs fn under the write lock. fn must leave rec unchanged when it
// returns an error.
func (r *CustomerRegistry) update(id int, fn func(rec *customerRecord) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.lookup(id)
	if err != nil {
		return err
	}
	return fn(rec)
}

func (r *CustomerRegistry) lookup(id int) (*customerRecord, error) {
	if id < 1 || id > len(r.records) {
		return nil, fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
	}
	return r.records[id-1], nil
}
