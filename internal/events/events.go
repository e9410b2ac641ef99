// Package events defines the change notifications pushed to kitchen, floor
// and table clients, and the sinks that carry them.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resto-qr/api/internal/enum"
)

const (
	TypeItemUpdated        = "kitchen:update_item"
	TypeOrderStatusUpdated = "kitchen:update_order"
	TypeOrderCreated       = "order:new"
	TypeOrderUpdated       = "order:updated"
	TypeOrderDeleted       = "order:deleted"
	TypeTableStatusUpdated = "table:update_status"
)

// Event is the envelope shared by every sink. Key groups related events
// (the order ID) for partitioned sinks.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Rooms      []string        `json:"rooms"`
	Key        string          `json:"key,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// New builds an event with a fresh ID and the JSON-encoded payload.
func New(typ, key string, rooms []string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		Rooms:      rooms,
		Key:        key,
		Payload:    b,
	}, nil
}

// Decode unmarshals the payload of e into T.
func Decode[T any](e Event) (T, error) {
	var t T
	if err := json.Unmarshal(e.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return t, nil
}

// OrderRooms is where order events go: the kitchen, the floor staff and the
// order's table when it has one.
func OrderRooms(tableID *uuid.UUID) []string {
	rooms := []string{enum.RoomKitchen, enum.RoomFloor}
	if tableID != nil {
		rooms = append(rooms, enum.TableRoom(tableID.String()))
	}
	return rooms
}

// ---- Payloads ----

type ItemUpdated struct {
	OrderID         uuid.UUID `json:"order_id"`
	ItemID          uuid.UUID `json:"item_id"`
	Status          string    `json:"status"`
	Version         int64     `json:"version"`
	SuggestedStatus string    `json:"suggested_status,omitempty"`
}

type OrderStatusUpdated struct {
	OrderID        uuid.UUID  `json:"order_id"`
	TableID        *uuid.UUID `json:"table_id"`
	Code           string     `json:"code"`
	PreviousStatus string     `json:"previous_status"`
	Status         string     `json:"status"`
	Version        int64      `json:"version"`
}

// OrderChanged is the payload of order:new and order:updated.
type OrderChanged struct {
	OrderID    uuid.UUID  `json:"order_id"`
	TableID    *uuid.UUID `json:"table_id"`
	Code       string     `json:"code"`
	Status     string     `json:"status"`
	TotalPrice string     `json:"total_price"`
	ItemCount  int        `json:"item_count"`
	Version    int64      `json:"version"`
}

// OrderDeleted carries the version after the deletion so clients order it
// after every earlier change of the order.
type OrderDeleted struct {
	OrderID uuid.UUID  `json:"order_id"`
	TableID *uuid.UUID `json:"table_id"`
	Code    string     `json:"code"`
	Version int64      `json:"version"`
}

type TableStatusUpdated struct {
	TableID uuid.UUID `json:"table_id"`
	Status  string    `json:"status"`
}
