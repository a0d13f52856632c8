package models

import "time"

// Product represents a sellable laptop listing. Price is an integer in the
// smallest display unit; configuration deltas come from variants.
type Product struct {
	ID             int64         `gorm:"column:id;primaryKey;autoIncrement"`
	Name           string        `gorm:"column:name;not null"`
	Description    string        `gorm:"column:description;not null;default:''"`
	Price          int           `gorm:"column:price;not null"`
	Count          int           `gorm:"column:count;not null;default:0"`
	ManufacturerID int64         `gorm:"column:manufacturer_id;not null"`
	Manufacturer   *Manufacturer `gorm:"foreignKey:ManufacturerID"`
	CreatedAt      time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
