package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListOrders(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Order, error)
}

// ListFilters narrows the order listing. Zero values match everything.
type ListFilters struct {
	UserID     *uuid.UUID
	CustomerID *uuid.UUID
	Status     enums.OrderStatus
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventLog queues order events inside the caller's transaction and reads
// them back per order. *outbox.Service satisfies it.
type EventLog interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	Trail(ctx context.Context, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) ([]models.OutboxEvent, error)
}

// IdentityResolver attaches Customer and User ids to an order.
type IdentityResolver interface {
	Resolve(ctx context.Context, input customers.ResolveInput) (customers.Resolution, error)
}

// InventoryDecrementer removes sold units from stock.
type InventoryDecrementer interface {
	Decrement(ctx context.Context, productID string, qty int) error
}

// Recorder receives placement metrics. *metrics.OrderMetrics satisfies it.
type Recorder interface {
	ObservePlaced(channel string, duration time.Duration)
	IncDecrementFailure(reason string)
	IncStatusChange(status string)
	IncCustomerCreated()
}
