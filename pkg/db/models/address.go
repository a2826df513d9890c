package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Address is an address book entry. At most one per user carries IsDefault.
type Address struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID        *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	Type          enums.AddressType `gorm:"column:type;type:text;not null;default:'shipping'"`
	IsDefault     bool              `gorm:"column:is_default;not null;default:false"`
	Label         *string           `gorm:"column:label"`
	RecipientName *string           `gorm:"column:recipient_name"`
	Phone         *string           `gorm:"column:phone"`
	Street        string            `gorm:"column:address;not null"`
	City          string            `gorm:"column:city;not null"`
	State         *string           `gorm:"column:state"`
	PostalCode    *string           `gorm:"column:postal_code"`
	Country       string            `gorm:"column:country;not null"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
