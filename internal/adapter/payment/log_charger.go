package payment

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/shopcore/internal/core/domain"
)

// LogCharger reports charges to the log instead of a payment provider.
type LogCharger struct {
	logger *zap.Logger
}

func NewLogCharger(logger *zap.Logger) *LogCharger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogCharger{logger: logger}
}

func (c *LogCharger) Charge(ctx context.Context, order domain.Order) error {
	c.logger.Info("charged customer",
		zap.Int("order_id", order.ID),
		zap.String("username", order.Customer.Username),
		zap.Stringer("amount", order.Total))
	return nil
}
