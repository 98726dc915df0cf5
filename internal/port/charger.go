package port

import (
	"context"

	"github.com/rl1809/shopcore/internal/core/domain"
)

type Charger interface {
	// Charge bills the customer for a placed order
	Charge(ctx context.Context, order domain.Order) error
}
