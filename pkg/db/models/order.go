package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is an immutable purchase snapshot. Only buyer/delivery metadata and
// the tracking number may change after creation; line items never do.
// UserID is nil for guest orders until the order is claimed at registration.
type Order struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          *uuid.UUID      `gorm:"column:user_id;type:uuid;index"`
	Date            time.Time       `gorm:"column:date;not null"`
	Comment         string          `gorm:"column:comment;not null;default:''"`
	BuyerName       string          `gorm:"column:buyer_name;not null;default:''"`
	BuyerPhone      string          `gorm:"column:buyer_phone;not null;default:''"`
	RegionCode      int             `gorm:"column:region_code;not null;default:0"`
	RegionName      string          `gorm:"column:region_name;not null;default:''"`
	CityCode        int             `gorm:"column:city_code;not null;default:0"`
	CityName        string          `gorm:"column:city_name;not null;default:''"`
	DeliveryAddress string          `gorm:"column:delivery_address;not null;default:''"`
	TrackingNumber  string          `gorm:"column:tracking_number;not null;default:''"`
	Items           []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment         *Payment        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
