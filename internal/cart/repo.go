package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
)

// Repository exposes persistence operations for per-user cart entries.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// IncrementEntry adds the given quantity to the (user, product, configuration)
// entry, inserting the row when absent. The increment rides on the composite
// unique index so concurrent adds never lose updates.
func (r *Repository) IncrementEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64, by int) error {
	if by <= 0 {
		return fmt.Errorf("increment must be positive, got %d", by)
	}
	entry := models.CartEntry{
		UserID:          userID,
		ProductID:       productID,
		ConfigurationID: configurationID,
		Quantity:        by,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "product_id"},
				{Name: "configuration_id"},
			},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_entries.quantity + ?", by),
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).
		Create(&entry).Error
}

// DecrementOrDeleteEntry lowers the entry's quantity by one, deleting the row
// when the quantity would reach zero. Both paths are single conditional
// statements, so concurrent removals cannot drive the quantity negative.
// Returns false when no matching entry exists.
func (r *Repository) DecrementOrDeleteEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64) (bool, error) {
	tx := r.db.WithContext(ctx)

	res := tx.Model(&models.CartEntry{}).
		Where("user_id = ? AND product_id = ? AND configuration_id = ? AND quantity > 1",
			userID, productID, configurationID).
		UpdateColumn("quantity", gorm.Expr("quantity - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	res = tx.Where("user_id = ? AND product_id = ? AND configuration_id = ? AND quantity = 1",
		userID, productID, configurationID).
		Delete(&models.CartEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetEntry loads a single entry with its product and configuration.
func (r *Repository) GetEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64) (*models.CartEntry, error) {
	var entry models.CartEntry
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Configuration").
		Where("user_id = ? AND product_id = ? AND configuration_id = ?", userID, productID, configurationID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetEntryByProduct loads the user's earliest entry for the product,
// whichever configuration it carries.
func (r *Repository) GetEntryByProduct(ctx context.Context, userID uuid.UUID, productID int64) (*models.CartEntry, error) {
	var entry models.CartEntry
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Configuration").
		Where("user_id = ? AND product_id = ?", userID, productID).
		Order("id ASC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListEntries returns the user's cart, oldest entries first.
func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID) ([]models.CartEntry, error) {
	var rows []models.CartEntry
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Configuration").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ClearEntries removes every entry owned by the user.
func (r *Repository) ClearEntries(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartEntry{}).Error
}
