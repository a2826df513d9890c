package outbox

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeInsideTransaction(t *testing.T) {
	client := dbtest.Client(t)
	svc := NewService(NewRepository(client.DB()), logger.Nop())
	ctx := context.Background()
	orderID := uuid.New()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:  orderID,
				Previous: enums.OrderStatusPending,
				Status:   enums.OrderStatusShipped,
			},
		})
	})
	require.NoError(t, err)

	rows, err := svc.Trail(ctx, enums.AggregateOrder, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderStatusChanged, rows[0].EventType)

	var data payloads.OrderStatusChangedEvent
	env, err := DecodeEnvelope(rows[0].Payload, &data)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Version)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, enums.OrderStatusShipped, data.Status)
	assert.Equal(t, enums.OrderStatusPending, data.Previous)
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	client := dbtest.Client(t)
	svc := NewService(NewRepository(client.DB()), nil)
	ctx := context.Background()
	orderID := uuid.New()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	rows, err := svc.Trail(ctx, enums.AggregateOrder, orderID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEmitRejectsMissingTxAndUnknownTypes(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderCreated}))

	client := dbtest.Client(t)
	err := svc.Emit(context.Background(), client.DB(), DomainEvent{
		EventType:     "order_exploded",
		AggregateType: enums.AggregateOrder,
	})
	assert.Error(t, err)
}

func TestEmitRequiresAggregateAndLinksEventID(t *testing.T) {
	client := dbtest.Client(t)
	svc := NewService(NewRepository(client.DB()), nil)
	ctx := context.Background()

	err := svc.Emit(ctx, client.DB(), DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate id")

	orderID := uuid.New()
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          payloads.OrderCreatedEvent{OrderID: orderID},
		})
	}))

	rows, err := svc.Trail(ctx, enums.AggregateOrder, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	env, err := DecodeEnvelope(rows[0].Payload, nil)
	require.NoError(t, err)
	assert.Equal(t, rows[0].ID.String(), env.EventID)
	assert.EqualValues(t, 7, rows[0].ID.Version())
}
