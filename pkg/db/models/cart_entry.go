package models

import (
	"time"

	"github.com/google/uuid"
)

// CartEntry is one (owner, product, configuration) row of the persisted cart.
// The composite unique index is what the atomic upsert-increment conflicts on;
// a quantity reaching zero deletes the row.
type CartEntry struct {
	ID              int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cart_owner_product_configuration"`
	ProductID       int64                 `gorm:"column:product_id;not null;uniqueIndex:idx_cart_owner_product_configuration"`
	ConfigurationID int64                 `gorm:"column:configuration_id;not null;uniqueIndex:idx_cart_owner_product_configuration"`
	Quantity        int                   `gorm:"column:quantity;not null;default:1"`
	Product         *Product              `gorm:"foreignKey:ProductID"`
	Configuration   *ConfigurationVariant `gorm:"foreignKey:ConfigurationID"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
