package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is a placed storefront order. Ids are UUIDv7 so the creation instant
// can be recovered from the id alone.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID      *uuid.UUID             `gorm:"column:customer_id;type:uuid;index"`
	UserID          *uuid.UUID             `gorm:"column:user_id;type:uuid;index"`
	CustomerName    string                 `gorm:"column:customer_name;not null"`
	CustomerPhone   string                 `gorm:"column:customer_phone;not null"`
	CustomerEmail   *string                `gorm:"column:customer_email"`
	WhatsApp        *string                `gorm:"column:whatsapp"`
	Quartier        *string                `gorm:"column:quartier"`
	DropOffPoint    *string                `gorm:"column:drop_off_point"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	ShippingMethod  *string                `gorm:"column:shipping_method"`
	DeliveryNotes   *string                `gorm:"column:delivery_notes"`
	Subtotal        decimal.Decimal        `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost    decimal.Decimal        `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Total           decimal.Decimal        `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentMethod   enums.PaymentMethod    `gorm:"column:payment_method;type:text;not null"`
	Status          enums.OrderStatus      `gorm:"column:status;type:text;not null;index"`
	Items           []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		o.ID = id
	}
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = enums.PaymentMethodCashOnDelivery
	}
	return nil
}
