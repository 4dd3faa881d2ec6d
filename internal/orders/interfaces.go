package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
)

type txRunner interface {
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SheetNotifier mirrors committed order changes to an external spreadsheet. Calls
// must not block and must not fail the caller.
type SheetNotifier interface {
	OrderCreated(ctx context.Context, order *models.Order)
	OrderStatusChanged(ctx context.Context, order *models.Order)
}

type noopNotifier struct{}

func (noopNotifier) OrderCreated(context.Context, *models.Order)       {}
func (noopNotifier) OrderStatusChanged(context.Context, *models.Order) {}
