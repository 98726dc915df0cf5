package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/shopcore/internal/core/domain"
)

// CartService exposes the cart of each registered customer.
type CartService struct {
	catalog   *CatalogService
	customers *CustomerRegistry
	logger    *zap.Logger
}

func NewCartService(catalog *CatalogService, customers *CustomerRegistry, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		catalog:   catalog,
		customers: customers,
		logger:    logger,
	}
}

// AddItem puts one unit of a catalog item into the customer's cart and
// returns the resulting lines.
func (s *CartService) AddItem(customerID, itemID int) ([]domain.CartLine, error) {
	item, err := s.catalog.LookupByID(itemID)
	if err != nil {
		return nil, err
	}

	var lines []domain.CartLine
	err = s.customers.update(customerID, func(rec *customerRecord) error {
		rec.cart.AddItem(item)
		lines = rec.cart.Lines()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("item added to cart",
		zap.Int("customer_id", customerID),
		zap.Int("item_id", itemID))

	return lines, nil
}

// RemoveItem drops the item's line from the customer's cart. Removing an
// item that is not in the cart is not an error.
func (s *CartService) RemoveItem(customerID, itemID int) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	err := s.customers.update(customerID, func(rec *customerRecord) error {
		rec.cart.RemoveItem(itemID)
		lines = rec.cart.Lines()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("item removed from cart",
		zap.Int("customer_id", customerID),
		zap.Int("item_id", itemID))

	return lines, nil
}

func (s *CartService) Lines(customerID int) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	err := s.customers.view(customerID, func(rec *customerRecord) error {
		lines = rec.cart.Lines()
		return nil
	})
	return lines, err
}

func (s *CartService) Total(customerID int) (domain.Money, error) {
	var total domain.Money
	err := s.customers.view(customerID, func(rec *customerRecord) error {
		total = rec.cart.Total()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cart total: %w", err)
	}
	return total, nil
}
