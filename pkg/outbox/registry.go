package outbox

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type decoderFunc func(data json.RawMessage) (any, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps an event type and payload version onto a typed decoder.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// OrderEvents returns a registry that knows every order event this service emits.
func OrderEvents() *DecoderRegistry {
	r := NewDecoderRegistry()
	r.Register(enums.EventOrderCreated, currentVersion, decodeInto[payloads.OrderCreatedEvent])
	r.Register(enums.EventOrderStatusChanged, currentVersion, decodeInto[payloads.OrderStatusChangedEvent])
	return r
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Decode unwraps a stored row and returns its envelope plus the typed data,
// e.g. *payloads.OrderCreatedEvent.
func (r *DecoderRegistry) Decode(event models.OutboxEvent) (*PayloadEnvelope, any, error) {
	env, err := DecodeEnvelope(event.Payload, nil)
	if err != nil {
		return nil, nil, err
	}
	r.mtx.RLock()
	decoder, ok := r.registry[registryKey{eventType: event.EventType, version: env.Version}]
	r.mtx.RUnlock()
	if !ok {
		return env, nil, fmt.Errorf("decoder not registered for %s@v%d", event.EventType, env.Version)
	}
	data, err := decoder(env.Data)
	if err != nil {
		return env, nil, err
	}
	return env, data, nil
}

func decodeInto[T any](data json.RawMessage) (any, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %T: %w", out, err)
	}
	return &out, nil
}
