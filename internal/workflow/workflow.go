// Package workflow holds the order and order item status policy: which
// transitions exist, who may perform them, and what they imply for the table.
package workflow

import (
	"errors"
	"fmt"

	"github.com/resto-qr/api/internal/enum"
)

var (
	ErrUnknownStatus       = errors.New("unknown status")
	ErrTerminalStatus      = errors.New("status is terminal")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrTransitionForbidden = errors.New("role may not perform this transition")
	ErrItemsLocked         = errors.New("order items can no longer change")
)

type actorSet uint8

const (
	actorKitchen actorSet = 1 << iota
	actorFrontOfHouse
	actorManagement
	actorCustomer
)

func actorOf(role string) actorSet {
	switch role {
	case enum.UserRoleChef:
		return actorKitchen
	case enum.UserRoleWaiter, enum.UserRoleCashier:
		return actorFrontOfHouse
	case enum.UserRoleAdmin, enum.UserRoleManager:
		return actorManagement
	case enum.UserRoleCustomer:
		return actorCustomer
	}
	return 0
}

type edge struct {
	from, to string
	actors   actorSet
}

var orderEdges = []edge{
	{enum.OrderStatusPending, enum.OrderStatusInProgress, actorKitchen | actorManagement},
	{enum.OrderStatusPending, enum.OrderStatusCanceled, actorFrontOfHouse | actorManagement | actorCustomer},
	{enum.OrderStatusInProgress, enum.OrderStatusReady, actorKitchen | actorManagement},
	{enum.OrderStatusReady, enum.OrderStatusServed, actorFrontOfHouse | actorManagement},
	{enum.OrderStatusServed, enum.OrderStatusCompleted, actorFrontOfHouse | actorManagement},
}

var itemEdges = []edge{
	{enum.OrderItemStatusWaiting, enum.OrderItemStatusPreparing, actorKitchen | actorManagement},
	{enum.OrderItemStatusPreparing, enum.OrderItemStatusDone, actorKitchen | actorManagement},
	{enum.OrderItemStatusPreparing, enum.OrderItemStatusFailed, actorKitchen | actorManagement},
}

// IsTerminal reports whether an order in status s accepts no further changes.
func IsTerminal(s string) bool {
	return s == enum.OrderStatusCompleted || s == enum.OrderStatusCanceled
}

// IsItemTerminal reports whether an item in status s is finished.
func IsItemTerminal(s string) bool {
	return s == enum.OrderItemStatusDone || s == enum.OrderItemStatusFailed
}

// CheckOrderTransition validates moving an order from one status to another
// on behalf of role. The returned error wraps one of the package sentinels.
func CheckOrderTransition(from, to, role string) error {
	if !enum.IsOrderStatus(from) || !enum.IsOrderStatus(to) {
		return fmt.Errorf("%w: %s -> %s", ErrUnknownStatus, from, to)
	}
	if IsTerminal(from) {
		return fmt.Errorf("%w: order is %s", ErrTerminalStatus, from)
	}
	return check(orderEdges, from, to, role)
}

// CheckItemTransition validates moving an order item between statuses.
func CheckItemTransition(from, to, role string) error {
	if !enum.IsOrderItemStatus(from) || !enum.IsOrderItemStatus(to) {
		return fmt.Errorf("%w: %s -> %s", ErrUnknownStatus, from, to)
	}
	if IsItemTerminal(from) {
		return fmt.Errorf("%w: item is %s", ErrTerminalStatus, from)
	}
	return check(itemEdges, from, to, role)
}

func check(edges []edge, from, to, role string) error {
	for _, e := range edges {
		if e.from != from || e.to != to {
			continue
		}
		if e.actors&actorOf(role) == 0 {
			return fmt.Errorf("%w: %s cannot move %s to %s", ErrTransitionForbidden, role, from, to)
		}
		return nil
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
}

// AllowedOrderTransitions lists the statuses role may move an order to from
// status from, in policy order.
func AllowedOrderTransitions(from, role string) []string {
	return allowed(orderEdges, from, role)
}

// AllowedItemTransitions is AllowedOrderTransitions for items.
func AllowedItemTransitions(from, role string) []string {
	return allowed(itemEdges, from, role)
}

func allowed(edges []edge, from, role string) []string {
	out := []string{}
	a := actorOf(role)
	for _, e := range edges {
		if e.from == from && e.actors&a != 0 {
			out = append(out, e.to)
		}
	}
	return out
}

// ItemsMutable reports whether items of an order in status s may be edited
// or change status.
func ItemsMutable(orderStatus string) bool {
	return orderStatus == enum.OrderStatusPending || orderStatus == enum.OrderStatusInProgress
}

// Effect is a follow-up write requested by entering an order status.
type Effect struct {
	// TableStatus is the status the order's table should move to, or empty.
	TableStatus string
}

// SideEffects returns what entering status to implies outside the order row.
func SideEffects(to string) Effect {
	if to == enum.OrderStatusCompleted {
		return Effect{TableStatus: enum.TableStatusCleaning}
	}
	return Effect{}
}

// SuggestReady reports whether an in-progress order whose items are all done
// should be offered the READY transition. The suggestion is never applied
// automatically.
func SuggestReady(orderStatus string, itemStatuses []string) bool {
	if orderStatus != enum.OrderStatusInProgress || len(itemStatuses) == 0 {
		return false
	}
	for _, s := range itemStatuses {
		if s != enum.OrderItemStatusDone {
			return false
		}
	}
	return true
}
