package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. Credentials live with the
// external identity providers; only profile data is stored here.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null;default:''"`
	Phone     string    `gorm:"column:phone;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
