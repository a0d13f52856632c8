package models

import "time"

// OrderLineItem captures the snapshot of one product+configuration within an
// order. Names and prices are denormalized at order creation so later catalog
// changes never rewrite history.
type OrderLineItem struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID           int64     `gorm:"column:order_id;not null;index"`
	ProductID         int64     `gorm:"column:product_id;not null"`
	ProductName       string    `gorm:"column:product_name;not null"`
	BasePrice         int       `gorm:"column:base_price;not null"`
	ConfigurationID   int64     `gorm:"column:configuration_id;not null"`
	ConfigurationName string    `gorm:"column:configuration_name;not null"`
	AdditionalPrice   int       `gorm:"column:additional_price;not null;default:0"`
	Quantity          int       `gorm:"column:quantity;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}
