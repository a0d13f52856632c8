package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	"github.com/avoronkov/laptopshop-backend/pkg/enums"
)

// Repository exposes persistence operations for payment rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) PaymentsRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a payment row. The order_id unique index rejects a second
// payment for the same order.
func (r *Repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.Status == "" {
		payment.Status = enums.PaymentStatusPending
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// FindByOrderID loads the payment attached to an order.
func (r *Repository) FindByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// TransitionStatus flips the payment's status only when it still holds the
// expected value. The conditional update is the single serialization point
// for concurrent gateway notifications; false means the row was not in the
// expected state.
func (r *Repository) TransitionStatus(ctx context.Context, paymentID int64, from, to enums.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
