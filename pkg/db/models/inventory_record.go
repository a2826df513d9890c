package models

import "time"

// InventoryRecord tracks the sellable quantity per product.
type InventoryRecord struct {
	ProductID         string    `gorm:"column:product_id;type:text;primaryKey"`
	AvailableQty      int       `gorm:"column:available_qty;not null;default:0;check:available_qty >= 0"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryRecord) TableName() string {
	return "inventory_records"
}
