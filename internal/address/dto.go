package address

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// AddressDTO is the API shape of an address book entry.
type AddressDTO struct {
	ID            uuid.UUID         `json:"id"`
	UserID        *uuid.UUID        `json:"userId"`
	Type          enums.AddressType `json:"type"`
	IsDefault     bool              `json:"isDefault"`
	Label         *string           `json:"label,omitempty"`
	RecipientName *string           `json:"recipientName,omitempty"`
	Phone         *string           `json:"phone,omitempty"`
	Street        string            `json:"address"`
	City          string            `json:"city"`
	State         *string           `json:"state,omitempty"`
	PostalCode    *string           `json:"postalCode,omitempty"`
	Country       string            `json:"country"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// CreateInput is the body of POST /addresses.
type CreateInput struct {
	UserID        string  `json:"userId"`
	Type          string  `json:"type" validate:"omitempty,oneof=shipping billing"`
	IsDefault     bool    `json:"isDefault"`
	Label         *string `json:"label"`
	RecipientName *string `json:"recipientName"`
	Phone         *string `json:"phone"`
	Street        string  `json:"address"`
	City          string  `json:"city"`
	State         *string `json:"state"`
	PostalCode    *string `json:"postalCode"`
	Country       string  `json:"country"`
}

// UpdateInput is a partial update; nil fields are left untouched. The owner
// cannot be changed through an update.
type UpdateInput struct {
	Type          *string `json:"type" validate:"omitempty,oneof=shipping billing"`
	IsDefault     *bool   `json:"isDefault"`
	Label         *string `json:"label"`
	RecipientName *string `json:"recipientName"`
	Phone         *string `json:"phone"`
	Street        *string `json:"address"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	PostalCode    *string `json:"postalCode"`
	Country       *string `json:"country"`
}

// FromModel maps a persisted address to its DTO.
func FromModel(a *models.Address) *AddressDTO {
	if a == nil {
		return nil
	}
	return &AddressDTO{
		ID:            a.ID,
		UserID:        a.UserID,
		Type:          a.Type,
		IsDefault:     a.IsDefault,
		Label:         a.Label,
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		Street:        a.Street,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
