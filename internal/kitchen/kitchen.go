// Package kitchen builds the kitchen board: ticket ranking, progress and the
// wait-time heuristic.
package kitchen

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/enum"
	"github.com/resto-qr/api/internal/workflow"
)

var ErrInvalidSortMode = errors.New("sort must be time or priority")

// Item is one line of a kitchen ticket.
type Item struct {
	ID              uuid.UUID `json:"id"`
	DishName        string    `json:"dish_name"`
	Quantity        int32     `json:"quantity"`
	Note            string    `json:"note,omitempty"`
	Status          string    `json:"status"`
	PreparationTime int32     `json:"preparation_time"`
	Position        int32     `json:"position"`
}

// Ticket is the kitchen view of an order.
type Ticket struct {
	OrderID        uuid.UUID  `json:"order_id"`
	Code           string     `json:"code"`
	TableID        *uuid.UUID `json:"table_id"`
	Status         string     `json:"status"`
	Note           string     `json:"note,omitempty"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	ElapsedMinutes int        `json:"elapsed_minutes"`
	WaitEstimate   float64    `json:"wait_estimate_minutes"`
	Progress       int        `json:"progress"`
	SuggestReady   bool       `json:"suggest_ready"`
	Items          []Item     `json:"items"`
}

// ParseSortMode validates a sort query value. Empty means time.
func ParseSortMode(s string) (string, error) {
	switch s {
	case "", enum.SortModeTime:
		return enum.SortModeTime, nil
	case enum.SortModePriority:
		return enum.SortModePriority, nil
	}
	return "", ErrInvalidSortMode
}

// SortTickets orders tickets in place. Time mode puts the newest order first;
// priority mode puts the order that has waited longest first. Ties fall back
// to the order ID so the result is deterministic.
func SortTickets(tickets []Ticket, mode string, now time.Time) {
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if mode == enum.SortModePriority {
				return now.Sub(a.CreatedAt) > now.Sub(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.OrderID.String() < b.OrderID.String()
	})
}

// ItemRemaining estimates the minutes left for one item.
func ItemRemaining(status string, preparationTime int32) float64 {
	switch status {
	case enum.OrderItemStatusWaiting:
		return float64(preparationTime)
	case enum.OrderItemStatusPreparing:
		return float64(preparationTime) / 2
	}
	return 0
}

// WaitEstimate is the largest remaining time of any item, assuming items are
// cooked in parallel.
func WaitEstimate(items []Item) float64 {
	var longest float64
	for _, it := range items {
		if r := ItemRemaining(it.Status, it.PreparationTime); r > longest {
			longest = r
		}
	}
	return longest
}

// Progress is the rounded percentage of items that are DONE.
func Progress(items []Item) int {
	if len(items) == 0 {
		return 0
	}
	done := 0
	for _, it := range items {
		if it.Status == enum.OrderItemStatusDone {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(items)) * 100))
}

var groupRank = map[string]int{
	enum.OrderItemStatusPreparing: 0,
	enum.OrderItemStatusWaiting:   1,
	enum.OrderItemStatusDone:      2,
	enum.OrderItemStatusFailed:    3,
}

// GroupItems returns a copy of items with in-flight work first. The input
// slice is left untouched.
func GroupItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return groupRank[out[i].Status] < groupRank[out[j].Status]
	})
	return out
}

// ToItem converts a stored order item.
func ToItem(it database.OrderItem) Item {
	item := Item{
		ID:              it.ID,
		DishName:        it.DishName,
		Quantity:        it.Quantity,
		Status:          string(it.Status),
		PreparationTime: it.PreparationTime,
		Position:        it.Position,
	}
	if it.Note.Valid {
		item.Note = it.Note.String
	}
	return item
}

// BuildTicket assembles the board entry for an order and its items.
func BuildTicket(o database.Order, items []database.OrderItem, now time.Time) Ticket {
	t := Ticket{
		OrderID:   o.ID,
		Code:      o.Code,
		Status:    string(o.Status),
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		Items:     make([]Item, len(items)),
	}
	if t.Code == "" {
		t.Code = o.ID.String()[:8]
	}
	if o.TableID.Valid {
		id := uuid.UUID(o.TableID.Bytes)
		t.TableID = &id
	}
	if o.Note.Valid {
		t.Note = o.Note.String
	}

	statuses := make([]string, len(items))
	for i, it := range items {
		t.Items[i] = ToItem(it)
		statuses[i] = string(it.Status)
	}

	if elapsed := now.Sub(o.CreatedAt); elapsed > 0 {
		t.ElapsedMinutes = int(elapsed.Minutes())
	}
	t.WaitEstimate = WaitEstimate(t.Items)
	t.Progress = Progress(t.Items)
	t.SuggestReady = workflow.SuggestReady(t.Status, statuses)
	t.Items = GroupItems(t.Items)
	return t
}
