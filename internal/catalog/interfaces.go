package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
)

// CatalogRepository defines the persistence surface required by the catalog service.
type CatalogRepository interface {
	WithTx(tx *gorm.DB) CatalogRepository
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ListVariantsForProduct(ctx context.Context, productID int64) ([]models.ConfigurationVariant, error)
	GetVariant(ctx context.Context, variantID int64) (*models.ConfigurationVariant, error)
	GetVariantForProduct(ctx context.Context, productID, variantID int64) (*models.ConfigurationVariant, error)
	GetDefaultVariantForProduct(ctx context.Context, productID int64) (*models.ConfigurationVariant, error)
}
