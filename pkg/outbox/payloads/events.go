package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent records a freshly placed order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	CustomerID *uuid.UUID        `json:"customer_id,omitempty"`
	UserID     *uuid.UUID        `json:"user_id,omitempty"`
	Status     enums.OrderStatus `json:"status"`
	Total      decimal.Decimal   `json:"total"`
	ItemCount  int               `json:"item_count"`
	Channel    string            `json:"channel"`
}

// OrderStatusChangedEvent records a status written through an order update.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	Previous enums.OrderStatus `json:"previous"`
	Status   enums.OrderStatus `json:"status"`
}
