package orders

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const referencePrefix = "ORD-"

// Tracking is the customer-facing progress estimate for an order. It is
// derived from the order reference only and may disagree with the stored
// status.
type Tracking struct {
	Reference string            `json:"reference"`
	Status    enums.OrderStatus `json:"status"`
	PlacedAt  time.Time         `json:"placedAt"`
	Steps     []TrackingStep    `json:"steps"`
}

// TrackingStep is one milestone on the tracker timeline.
type TrackingStep struct {
	Status    enums.OrderStatus `json:"status"`
	Completed bool              `json:"completed"`
}

var trackingBuckets = []struct {
	below  time.Duration
	status enums.OrderStatus
}{
	{time.Hour, enums.OrderStatusProcessing},
	{12 * time.Hour, enums.OrderStatusShipped},
	{36 * time.Hour, enums.OrderStatusOutForDelivery},
}

// Reference renders the public order reference, "ORD-<unix ms>".
func Reference(id uuid.UUID) string {
	if id.Version() != 7 {
		return ""
	}
	return referencePrefix + strconv.FormatInt(timeFromUUIDv7(id).UnixMilli(), 10)
}

// PlacedAt recovers the creation instant from an order id (UUIDv7) or a
// public "ORD-<unix ms>" reference.
func PlacedAt(reference string) (time.Time, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return time.Time{}, pkgerrors.Required("reference")
	}
	if id, err := uuid.Parse(reference); err == nil {
		if id.Version() != 7 {
			return time.Time{}, invalidReference("order id carries no timestamp")
		}
		return timeFromUUIDv7(id), nil
	}
	if len(reference) > len(referencePrefix) && strings.EqualFold(reference[:len(referencePrefix)], referencePrefix) {
		ms, err := strconv.ParseInt(reference[len(referencePrefix):], 10, 64)
		if err != nil || ms <= 0 {
			return time.Time{}, invalidReference("reference timestamp is not numeric")
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, invalidReference("unrecognised reference format")
}

// EstimateStatus buckets the time since placement:
// under 1h processing, under 12h shipped, under 36h out for delivery,
// delivered afterwards.
func EstimateStatus(placedAt, now time.Time) enums.OrderStatus {
	elapsed := now.Sub(placedAt)
	for _, b := range trackingBuckets {
		if elapsed < b.below {
			return b.status
		}
	}
	return enums.OrderStatusDelivered
}

// Track builds the tracker view for reference as of now.
func Track(reference string, now time.Time) (*Tracking, error) {
	placedAt, err := PlacedAt(reference)
	if err != nil {
		return nil, err
	}
	status := EstimateStatus(placedAt, now)

	timeline := []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered,
	}
	steps := make([]TrackingStep, len(timeline))
	reached := true
	for i, s := range timeline {
		steps[i] = TrackingStep{Status: s, Completed: reached}
		if s == status {
			reached = false
		}
	}

	return &Tracking{
		Reference: strings.TrimSpace(reference),
		Status:    status,
		PlacedAt:  placedAt,
		Steps:     steps,
	}, nil
}

// timeFromUUIDv7 reads the big-endian 48-bit unix millisecond prefix.
func timeFromUUIDv7(id uuid.UUID) time.Time {
	var buf [8]byte
	copy(buf[2:], id[:6])
	return time.UnixMilli(int64(binary.BigEndian.Uint64(buf[:]))).UTC()
}

func invalidReference(reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("reference is invalid: %s", reason)).
		WithDetails(map[string]string{"reference": reason})
}
