package inventory

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

var (
	// ErrRecordMissing means the product has no inventory row yet.
	ErrRecordMissing = errors.New("inventory record missing")
	// ErrInsufficientStock means the guarded decrement matched no row.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity rejects zero or negative decrements.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Repository persists inventory records.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// Decrement subtracts qty in a single guarded statement so available_qty
// never goes negative, even under concurrent orders.
func (r *Repository) Decrement(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	res := r.DB(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ? AND available_qty >= ?", productID, qty).
		Update("available_qty", gorm.Expr("available_qty - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	exists, err := r.exists(ctx, productID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRecordMissing
	}
	return ErrInsufficientStock
}

// Get loads the record for productID.
func (r *Repository) Get(ctx context.Context, productID string) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	if err := r.DB(ctx).First(&rec, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert inserts the record or overwrites quantity and threshold.
func (r *Repository) Upsert(ctx context.Context, rec *models.InventoryRecord) (*models.InventoryRecord, error) {
	err := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"available_qty", "low_stock_threshold", "updated_at"}),
		}).
		Create(rec).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, rec.ProductID)
}

// ListLowStock returns records at or below their threshold, scarcest first.
func (r *Repository) ListLowStock(ctx context.Context, limit int) ([]models.InventoryRecord, error) {
	var rows []models.InventoryRecord
	err := r.DB(ctx).
		Where("available_qty <= low_stock_threshold").
		Order("available_qty ASC").
		Order("product_id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) exists(ctx context.Context, productID string) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count > 0, err
}
