package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog entry orders reference. The catalog owns its ids.
type Product struct {
	ID        string           `gorm:"column:id;type:text;primaryKey"`
	Name      string           `gorm:"column:name;not null"`
	Price     decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive  bool             `gorm:"column:is_active;not null"`
	Inventory *InventoryRecord `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
