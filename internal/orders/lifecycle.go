package orders

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Channel identifies where an order was entered.
type Channel string

const (
	ChannelStorefront Channel = "storefront"
	ChannelAdmin      Channel = "admin"
)

// InitialStatus is the status a new order starts in. Storefront orders wait
// for review; admin entries are already being worked on.
func InitialStatus(channel Channel) enums.OrderStatus {
	if channel == ChannelAdmin {
		return enums.OrderStatusProcessing
	}
	return enums.OrderStatusPending
}

// Transition moves an order to target. Any known status is reachable from any
// other, terminal ones included; only unknown targets are rejected.
func Transition(current enums.OrderStatus, target string) (enums.OrderStatus, error) {
	next, err := enums.ParseOrderStatus(strings.TrimSpace(target))
	if err != nil {
		return current, pkgerrors.New(pkgerrors.CodeValidation, "status is invalid").
			WithDetails(map[string]any{"status": "must be one of " + statusList()})
	}
	return next, nil
}

func statusList() string {
	statuses := enums.OrderStatuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}
