package models

import (
	"time"

	"github.com/avoronkov/laptopshop-backend/pkg/enums"
)

// Payment tracks payment progress for an order (1:1). The validated amount is
// never stored here; it is recomputed from the order's line items every time.
type Payment struct {
	ID        int64               `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64               `gorm:"column:order_id;not null;uniqueIndex"`
	Status    enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
