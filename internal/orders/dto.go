package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ItemInput is one cart line as submitted at checkout. Price is the cart
// snapshot and is stored as-is.
type ItemInput struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Size      *string         `json:"size"`
}

// PlaceOrderInput is the body of POST /orders and POST /admin/orders.
type PlaceOrderInput struct {
	Items           []ItemInput            `json:"items"`
	CustomerName    string                 `json:"customerName"`
	CustomerPhone   string                 `json:"customerPhone"`
	CustomerEmail   string                 `json:"customerEmail"`
	WhatsApp        string                 `json:"whatsapp"`
	Quartier        string                 `json:"quartier"`
	DropOffPoint    string                 `json:"dropOffPoint"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress"`
	ShippingMethod  string                 `json:"shippingMethod"`
	DeliveryNotes   string                 `json:"deliveryNotes"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	Shipping        decimal.Decimal        `json:"shipping"`
	Total           decimal.Decimal        `json:"total"`
	PaymentMethod   string                 `json:"paymentMethod"`
	UserID          *uuid.UUID             `json:"userId"`

	Channel Channel `json:"-"`
}

// UpdateOrderInput is the body of PUT /orders/{id}. Nil fields are untouched.
type UpdateOrderInput struct {
	Status         *string `json:"status"`
	PaymentMethod  *string `json:"paymentMethod"`
	DeliveryNotes  *string `json:"deliveryNotes"`
	ShippingMethod *string `json:"shippingMethod"`
}

// ListInput carries the order listing query.
type ListInput struct {
	UserID string
	Status string
	Limit  int
	Cursor string
}

// OrderItemDTO is the API shape of an order line.
type OrderItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Size      *string         `json:"size,omitempty"`
}

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID              uuid.UUID              `json:"id"`
	Reference       string                 `json:"reference,omitempty"`
	CustomerID      *uuid.UUID             `json:"customerId"`
	UserID          *uuid.UUID             `json:"userId"`
	CustomerName    string                 `json:"customerName"`
	CustomerPhone   string                 `json:"customerPhone"`
	CustomerEmail   *string                `json:"customerEmail,omitempty"`
	WhatsApp        *string                `json:"whatsapp,omitempty"`
	Quartier        *string                `json:"quartier,omitempty"`
	DropOffPoint    *string                `json:"dropOffPoint,omitempty"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress,omitempty"`
	ShippingMethod  *string                `json:"shippingMethod,omitempty"`
	DeliveryNotes   *string                `json:"deliveryNotes,omitempty"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	Shipping        decimal.Decimal        `json:"shipping"`
	Total           decimal.Decimal        `json:"total"`
	PaymentMethod   enums.PaymentMethod    `json:"paymentMethod"`
	Status          enums.OrderStatus      `json:"status"`
	Items           []OrderItemDTO         `json:"items"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// FromModel maps a persisted order (with items loaded) to its DTO.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
			Size:      it.Size,
		})
	}
	return &OrderDTO{
		ID:              o.ID,
		Reference:       Reference(o.ID),
		CustomerID:      o.CustomerID,
		UserID:          o.UserID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerEmail:   o.CustomerEmail,
		WhatsApp:        o.WhatsApp,
		Quartier:        o.Quartier,
		DropOffPoint:    o.DropOffPoint,
		ShippingAddress: o.ShippingAddress,
		ShippingMethod:  o.ShippingMethod,
		DeliveryNotes:   o.DeliveryNotes,
		Subtotal:        o.Subtotal,
		Shipping:        o.ShippingCost,
		Total:           o.Total,
		PaymentMethod:   o.PaymentMethod,
		Status:          o.Status,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// EventDTO is one entry of an order's event timeline. Data holds the decoded
// payload, e.g. *payloads.OrderStatusChangedEvent.
type EventDTO struct {
	ID         uuid.UUID             `json:"id"`
	Type       enums.OutboxEventType `json:"type"`
	Version    int                   `json:"version,omitempty"`
	ActorRole  string                `json:"actorRole,omitempty"`
	OccurredAt time.Time             `json:"occurredAt"`
	Data       any                   `json:"data"`
}
