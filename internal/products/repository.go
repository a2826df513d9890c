// Package products is the read side of the product catalog. Catalog
// maintenance happens elsewhere; orders only look products up.
package products

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository wraps product lookups.
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

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Exists reports whether a product with the id is in the catalog.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", strings.TrimSpace(id)).
		Count(&count).Error
	return count > 0, err
}

// Create inserts a catalog row. Used by seeding and tests.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}
