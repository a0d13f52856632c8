package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	IncrementEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64, by int) error
	DecrementOrDeleteEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64) (bool, error)
	GetEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64) (*models.CartEntry, error)
	GetEntryByProduct(ctx context.Context, userID uuid.UUID, productID int64) (*models.CartEntry, error)
	ListEntries(ctx context.Context, userID uuid.UUID) ([]models.CartEntry, error)
	ClearEntries(ctx context.Context, userID uuid.UUID) error
}
