package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
)

// Repository exposes persistence operations for products and their
// configuration variants.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CatalogRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// GetProduct loads a single product with its manufacturer.
func (r *Repository) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Manufacturer").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListVariantsForProduct returns the variants sellable with the product,
// cheapest upgrade first.
func (r *Repository) ListVariantsForProduct(ctx context.Context, productID int64) ([]models.ConfigurationVariant, error) {
	var rows []models.ConfigurationVariant
	err := r.db.WithContext(ctx).
		Joins("JOIN available_configurations ac ON ac.configuration_id = configuration_variants.id").
		Where("ac.product_id = ?", productID).
		Order("configuration_variants.additional_price ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetVariant loads a variant regardless of product association.
func (r *Repository) GetVariant(ctx context.Context, variantID int64) (*models.ConfigurationVariant, error) {
	var variant models.ConfigurationVariant
	err := r.db.WithContext(ctx).
		Where("id = ?", variantID).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetVariantForProduct loads a variant only when it is sellable with the product.
func (r *Repository) GetVariantForProduct(ctx context.Context, productID, variantID int64) (*models.ConfigurationVariant, error) {
	var variant models.ConfigurationVariant
	err := r.db.WithContext(ctx).
		Joins("JOIN available_configurations ac ON ac.configuration_id = configuration_variants.id").
		Where("ac.product_id = ? AND configuration_variants.id = ?", productID, variantID).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetDefaultVariantForProduct returns the variant flagged as the product's
// default tier.
func (r *Repository) GetDefaultVariantForProduct(ctx context.Context, productID int64) (*models.ConfigurationVariant, error) {
	var variant models.ConfigurationVariant
	err := r.db.WithContext(ctx).
		Joins("JOIN available_configurations ac ON ac.configuration_id = configuration_variants.id").
		Where("ac.product_id = ? AND configuration_variants.is_default = ?", productID, true).
		Order("configuration_variants.id ASC").
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}
