package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes order placement, lookup, fulfillment updates and tracking.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, input UpdateOrderInput) (*OrderDTO, error)
	ListOrders(ctx context.Context, input ListInput) (*pagination.Page[OrderDTO], error)
	Track(ctx context.Context, reference string) (*Tracking, error)
	ListEvents(ctx context.Context, id uuid.UUID) ([]EventDTO, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Resolver  IdentityResolver
	Inventory InventoryDecrementer
	Outbox    EventLog
	Metrics   Recorder
	Logger    *logger.Logger
	// Now is the tracking clock; defaults to time.Now.
	Now func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	resolver  IdentityResolver
	inventory InventoryDecrementer
	outbox    EventLog
	metrics   Recorder
	decoders  *outbox.DecoderRegistry
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		resolver:  params.Resolver,
		inventory: params.Inventory,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		decoders:  outbox.OrderEvents(),
		logg:      logg,
		now:       now,
	}, nil
}

// PlaceOrder resolves the buyer, persists the order with its item snapshot and
// then debits stock line by line. Stock debits are best effort: a failed
// decrement is logged and counted but the order stands and nothing is
// compensated.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error) {
	started := time.Now()
	if len(input.Items) == 0 {
		return nil, pkgerrors.Required("items")
	}
	channel := input.Channel
	if channel == "" {
		channel = ChannelStorefront
	}

	identity, err := s.resolver.Resolve(ctx, customers.ResolveInput{
		Email:  input.CustomerEmail,
		Name:   input.CustomerName,
		Phone:  input.CustomerPhone,
		UserID: input.UserID,
	})
	if err != nil {
		return nil, err
	}

	order := buildOrder(input, identity, channel)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(identity.UserID, channel),
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				UserID:     order.UserID,
				Status:     order.Status,
				Total:      order.Total,
				ItemCount:  len(order.Items),
				Channel:    string(channel),
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "create order")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.decrementStock(logCtx, order)

	if s.metrics != nil {
		s.metrics.ObservePlaced(string(channel), time.Since(started))
		if identity.CustomerCreated {
			s.metrics.IncCustomerCreated()
		}
	}
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"channel":          channel,
		"item_count":       len(order.Items),
		"customer_created": identity.CustomerCreated,
		"user_linked":      identity.UserLinked,
	}), "order.placed")

	return FromModel(order), nil
}

func (s *service) decrementStock(ctx context.Context, order *models.Order) {
	var failures error
	for _, item := range order.Items {
		err := s.inventory.Decrement(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}
		reason := inventory.FailureReason(err)
		s.logg.WarnErr(s.logg.WithFields(ctx, map[string]any{
			"product_id": item.ProductID,
			"qty":        item.Quantity,
			"reason":     reason,
		}), "inventory.decrement_failed", err)
		if s.metrics != nil {
			s.metrics.IncDecrementFailure(reason)
		}
		failures = multierr.Append(failures, fmt.Errorf("%s: %w", item.ProductID, err))
	}
	if failures != nil {
		s.logg.WarnErr(s.logg.WithField(ctx, "failed_lines", len(multierr.Errors(failures))),
			"inventory.decrement_incomplete", failures)
	}
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Storage(err, "load order")
	}
	return FromModel(order), nil
}

// ListEvents returns the order's recorded events, oldest first, with each
// payload decoded. A row whose payload no longer decodes is kept with empty
// data so the timeline has no gaps.
func (s *service) ListEvents(ctx context.Context, id uuid.UUID) ([]EventDTO, error) {
	if _, err := s.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.outbox.Trail(ctx, enums.AggregateOrder, id)
	if err != nil {
		return nil, pkgerrors.Storage(err, "load order events")
	}

	events := make([]EventDTO, 0, len(rows))
	for _, row := range rows {
		event := EventDTO{ID: row.ID, Type: row.EventType, OccurredAt: row.CreatedAt}
		env, data, err := s.decoders.Decode(row)
		if err != nil {
			s.logg.WarnErr(s.logg.WithFields(s.logg.WithOrderID(ctx, id.String()), map[string]any{
				"event_id":   row.ID.String(),
				"event_type": row.EventType,
			}), "order.event_decode_failed", err)
		}
		if env != nil {
			event.Version = env.Version
			event.OccurredAt = env.OccurredAt
			if env.Actor != nil {
				event.ActorRole = env.Actor.Role
			}
		}
		event.Data = data
		events = append(events, event)
	}
	return events, nil
}

// UpdateOrder writes fulfillment fields. Any known status is accepted from any
// current status. A missing order is reported as a storage failure, not 404.
func (s *service) UpdateOrder(ctx context.Context, id uuid.UUID, input UpdateOrderInput) (*OrderDTO, error) {
	if input.Status != nil {
		if _, err := Transition("", *input.Status); err != nil {
			return nil, err
		}
	}

	var (
		previous enums.OrderStatus
		next     enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindOrder(ctx, id)
		if err != nil {
			return err
		}
		previous, next = current.Status, current.Status

		updates := map[string]any{}
		if input.Status != nil {
			next, _ = Transition(current.Status, *input.Status)
			updates["status"] = next
		}
		if input.PaymentMethod != nil {
			updates["payment_method"] = enums.NormalizePaymentMethod(*input.PaymentMethod)
		}
		if input.DeliveryNotes != nil {
			updates["delivery_notes"] = optional(*input.DeliveryNotes)
		}
		if input.ShippingMethod != nil {
			updates["shipping_method"] = optional(*input.ShippingMethod)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := repo.UpdateOrder(ctx, id, updates); err != nil {
			return err
		}
		if next == previous {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   id,
			Actor:         &outbox.ActorRef{Role: string(ChannelAdmin)},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:  id,
				Previous: previous,
				Status:   next,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "update order")
	}

	if next != previous {
		if s.metrics != nil {
			s.metrics.IncStatusChange(next.String())
		}
		s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, id.String()), map[string]any{
			"previous": previous,
			"status":   next,
		}), "order.status_changed")
	}

	return s.GetOrder(ctx, id)
}

func (s *service) ListOrders(ctx context.Context, input ListInput) (*pagination.Page[OrderDTO], error) {
	var filters ListFilters
	if raw := strings.TrimSpace(input.UserID); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "userId is invalid").
				WithDetails(map[string]string{"userId": "must be a uuid"})
		}
		filters.UserID = &userID
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := Transition("", raw)
		if err != nil {
			return nil, err
		}
		filters.Status = status
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cursor is invalid")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	rows, err := s.repo.ListOrders(ctx, filters, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Storage(err, "list orders")
	}

	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	page := pagination.Trim(dtos, limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

// Track answers the public tracker from the reference alone. The persisted
// status is not consulted.
func (s *service) Track(_ context.Context, reference string) (*Tracking, error) {
	return Track(reference, s.now())
}

func buildOrder(input PlaceOrderInput, identity customers.Resolution, channel Channel) *models.Order {
	items := make([]models.OrderItem, 0, len(input.Items))
	for i, it := range input.Items {
		items = append(items, models.OrderItem{
			Position:  i,
			ProductID: strings.TrimSpace(it.ProductID),
			Name:      strings.TrimSpace(it.Name),
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
			Size:      optional(valueOf(it.Size)),
		})
	}

	var shipping = input.ShippingAddress
	if shipping != nil && shipping.IsZero() {
		shipping = nil
	}

	return &models.Order{
		CustomerID:      identity.CustomerID,
		UserID:          identity.UserID,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
		CustomerEmail:   optional(input.CustomerEmail),
		WhatsApp:        optional(input.WhatsApp),
		Quartier:        optional(input.Quartier),
		DropOffPoint:    optional(input.DropOffPoint),
		ShippingAddress: shipping,
		ShippingMethod:  optional(input.ShippingMethod),
		DeliveryNotes:   optional(input.DeliveryNotes),
		Subtotal:        input.Subtotal,
		ShippingCost:    input.Shipping,
		Total:           input.Total,
		PaymentMethod:   enums.NormalizePaymentMethod(input.PaymentMethod),
		Status:          InitialStatus(channel),
		Items:           items,
	}
}

func actorFor(userID *uuid.UUID, channel Channel) *outbox.ActorRef {
	role := string(enums.UserRoleCustomer)
	if channel == ChannelAdmin {
		role = string(enums.UserRoleAdmin)
	}
	return &outbox.ActorRef{UserID: userID, Role: role}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func valueOf(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
