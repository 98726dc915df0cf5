package port

import (
	"context"
	"time"

	"github.com/rl1809/shopcore/internal/core/domain"
)

type DatabaseRepository interface {
	// SaveOrder archives a placed order together with its line snapshot
	SaveOrder(ctx context.Context, order domain.Order) error

	// UpdateOrderStatus records a status change of an archived order
	UpdateOrderStatus(ctx context.Context, orderID int, status domain.OrderStatus, updatedAt time.Time) error
}
