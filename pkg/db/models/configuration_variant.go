package models

import "fmt"

// ConfigurationVariant is a globally defined RAM/SSD tier. Variants attach to
// products through AvailableConfiguration, so one variant serves many models.
type ConfigurationVariant struct {
	ID              int64 `gorm:"column:id;primaryKey;autoIncrement"`
	RAMAmount       int   `gorm:"column:ram_amount;not null"`
	SSDAmount       int   `gorm:"column:ssd_amount;not null"`
	AdditionalPrice int   `gorm:"column:additional_price;not null;default:0"`
	IsDefault       bool  `gorm:"column:is_default;not null;default:false"`
	AdditionalRAM   bool  `gorm:"column:additional_ram;not null;default:false"`
	SolderedRAM     int   `gorm:"column:soldered_ram;not null;default:0"`
}

// DisplayName renders the tier the way line items and storefront lists show it.
func (v ConfigurationVariant) DisplayName() string {
	return fmt.Sprintf("%d GB RAM / %d GB SSD", v.RAMAmount, v.SSDAmount)
}

// AvailableConfiguration associates a variant with a product it may be sold
// with. The (product, configuration) pair is unique.
type AvailableConfiguration struct {
	ID              int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID       int64                 `gorm:"column:product_id;not null;uniqueIndex:idx_available_product_configuration"`
	ConfigurationID int64                 `gorm:"column:configuration_id;not null;uniqueIndex:idx_available_product_configuration"`
	Configuration   *ConfigurationVariant `gorm:"foreignKey:ConfigurationID"`
}
