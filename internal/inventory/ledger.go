package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// DefaultLowStockThreshold applies when neither the caller nor config sets one.
const DefaultLowStockThreshold = 5

// ProductLookup reports whether a product exists in the catalog.
type ProductLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// RecordDTO is the admin view of an inventory record.
type RecordDTO struct {
	ProductID         string    `json:"productId"`
	AvailableQty      int       `json:"availableQty"`
	LowStockThreshold int       `json:"lowStockThreshold"`
	LowStock          bool      `json:"lowStock"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// SetInput restocks a product. A nil threshold keeps the stored one.
type SetInput struct {
	ProductID         string
	AvailableQty      *int
	LowStockThreshold *int
}

// Ledger is the per-product stock counter.
type Ledger struct {
	repo             *Repository
	products         ProductLookup
	defaultThreshold int
}

// NewLedger builds the ledger. threshold <= 0 falls back to DefaultLowStockThreshold.
func NewLedger(repo *Repository, products ProductLookup, threshold int) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &Ledger{repo: repo, products: products, defaultThreshold: threshold}, nil
}

// Decrement removes qty units. It returns ErrRecordMissing, ErrInsufficientStock
// or ErrInvalidQuantity untouched so callers can decide how to react.
func (l *Ledger) Decrement(ctx context.Context, productID string, qty int) error {
	return l.repo.Decrement(ctx, strings.TrimSpace(productID), qty)
}

// Set overwrites the available quantity, creating the record on first restock.
func (l *Ledger) Set(ctx context.Context, input SetInput) (*RecordDTO, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, pkgerrors.Required("productId")
	}
	if input.AvailableQty == nil {
		return nil, pkgerrors.Required("availableQty")
	}
	if *input.AvailableQty < 0 {
		return nil, pkgerrors.Invalid("availableQty", "must be >= 0")
	}
	if input.LowStockThreshold != nil && *input.LowStockThreshold < 0 {
		return nil, pkgerrors.Invalid("lowStockThreshold", "must be >= 0")
	}

	exists, err := l.products.Exists(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Storage(err, "lookup product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	threshold := l.defaultThreshold
	if input.LowStockThreshold != nil {
		threshold = *input.LowStockThreshold
	} else if current, err := l.repo.Get(ctx, productID); err == nil {
		threshold = current.LowStockThreshold
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Storage(err, "load inventory")
	}

	saved, err := l.repo.Upsert(ctx, &models.InventoryRecord{
		ProductID:         productID,
		AvailableQty:      *input.AvailableQty,
		LowStockThreshold: threshold,
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "save inventory")
	}
	return toDTO(saved), nil
}

// Get returns the record for productID or a NOT_FOUND error.
func (l *Ledger) Get(ctx context.Context, productID string) (*RecordDTO, error) {
	rec, err := l.repo.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return nil, pkgerrors.Storage(err, "load inventory")
	}
	return toDTO(rec), nil
}

// ListLowStock returns the records at or below their threshold.
func (l *Ledger) ListLowStock(ctx context.Context, limit int) ([]RecordDTO, error) {
	rows, err := l.repo.ListLowStock(ctx, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Storage(err, "list low stock")
	}
	out := make([]RecordDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

// FailureReason maps a decrement error onto a short metrics label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrRecordMissing):
		return "missing_record"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	default:
		return "storage"
	}
}

func toDTO(rec *models.InventoryRecord) *RecordDTO {
	return &RecordDTO{
		ProductID:         rec.ProductID,
		AvailableQty:      rec.AvailableQty,
		LowStockThreshold: rec.LowStockThreshold,
		LowStock:          rec.AvailableQty <= rec.LowStockThreshold,
		UpdatedAt:         rec.UpdatedAt,
	}
}
