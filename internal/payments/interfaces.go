package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	"github.com/avoronkov/laptopshop-backend/pkg/enums"
)

// PaymentsRepository defines the persistence surface required by the payments
// service.
type PaymentsRepository interface {
	WithTx(tx *gorm.DB) PaymentsRepository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID int64) (*models.Payment, error)
	TransitionStatus(ctx context.Context, paymentID int64, from, to enums.PaymentStatus) (bool, error)
}
