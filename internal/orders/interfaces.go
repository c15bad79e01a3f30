package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the orders ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, status enums.FulfillmentStatus, deliveredAt *time.Time) error
	AttachPayment(ctx context.Context, id string, status enums.PaymentStatus, reference *string) error
	ResolvePayment(ctx context.Context, id string, status enums.PaymentStatus, reference *string) (bool, error)
}
