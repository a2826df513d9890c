package types

import "strings"

// ShippingAddress is the structured delivery address snapshotted onto an order.
// It is stored as JSON so later address book edits never rewrite history.
type ShippingAddress struct {
	RecipientName string  `json:"recipientName,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Street        string  `json:"address"`
	City          string  `json:"city"`
	State         *string `json:"state,omitempty"`
	PostalCode    *string `json:"postalCode,omitempty"`
	Country       string  `json:"country"`
}

// IsZero reports whether no meaningful address line was captured.
func (a ShippingAddress) IsZero() bool {
	return strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.Country) == ""
}
