package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/enum"
	"github.com/resto-qr/api/internal/events"
	"github.com/resto-qr/api/internal/metrics"
	"github.com/resto-qr/api/internal/workflow"
)

// StatusChangeRequest moves an order to a new status. ExpectedVersion, when
// set, must match the stored version or the change is refused.
type StatusChangeRequest struct {
	OrderID         uuid.UUID
	Status          string
	ExpectedVersion *int64
	Actor           Actor
}

// StatusChangeResult reports the updated order and, when the new status asks
// for one, the outcome of the table status follow-up.
type StatusChangeResult struct {
	Order          database.Order
	PreviousStatus string

	// TableStatus is the requested table status, empty when none was requested.
	TableStatus        string
	TableStatusApplied bool
	TableStatusError   string
}

// ItemStatusRequest moves one order item to a new status.
type ItemStatusRequest struct {
	OrderID uuid.UUID
	ItemID  uuid.UUID
	Status  string
	Actor   Actor
}

// ItemStatusResult carries the updated item, the order with its bumped
// version and READY when every item of an in-progress order is done.
type ItemStatusResult struct {
	Item            database.OrderItem
	Order           database.Order
	SuggestedStatus string
}

// UpdateOrderStatus applies an order transition under a row lock. Entering
// COMPLETED also moves the table to CLEANING inside a savepoint: when that
// write fails only the savepoint is rolled back, the order change still
// commits and the failure is reported in the result.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, req StatusChangeRequest) (*StatusChangeResult, error) {
	if !enum.IsOrderStatus(req.Status) {
		return nil, workflow.ErrUnknownStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !req.Actor.canAccess(order.TableID) {
		return nil, ErrTableAccess
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != order.Version {
		return nil, ErrVersionConflict
	}

	previous := string(order.Status)
	if err := workflow.CheckOrderTransition(previous, req.Status, req.Actor.Role); err != nil {
		return nil, err
	}

	// Conditional update: only succeeds if status hasn't changed since the lock.
	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:       order.ID,
		Status:   database.OrderStatus(req.Status),
		Status_2: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	result := &StatusChangeResult{Order: updated, PreviousStatus: previous}

	if effect := workflow.SideEffects(req.Status); effect.TableStatus != "" && order.TableID.Valid {
		result.TableStatus = effect.TableStatus
		if err := s.applyTableStatus(ctx, tx, uuid.UUID(order.TableID.Bytes), effect.TableStatus); err != nil {
			log.Printf("ERROR: order %s: set table status %s: %v", order.ID, effect.TableStatus, err)
			metrics.TableSideEffectFailures.Inc()
			result.TableStatusError = err.Error()
		} else {
			result.TableStatusApplied = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.StatusTransitions.WithLabelValues("order", req.Status).Inc()

	tableID := TableIDOf(updated)
	s.publish(ctx, events.TypeOrderStatusUpdated, updated.ID.String(), events.OrderRooms(tableID), events.OrderStatusUpdated{
		OrderID:        updated.ID,
		TableID:        tableID,
		Code:           updated.Code,
		PreviousStatus: previous,
		Status:         req.Status,
		Version:        updated.Version,
	})
	if result.TableStatusApplied {
		s.publishTableStatus(ctx, *tableID, result.TableStatus)
	}
	return result, nil
}

// applyTableStatus writes the table status behind a savepoint of tx.
func (s *OrderService) applyTableStatus(ctx context.Context, tx pgx.Tx, tableID uuid.UUID, status string) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if _, err := s.newStore(sp).UpdateTableStatus(ctx, database.UpdateTableStatusParams{
		ID:     tableID,
		Status: database.TableStatus(status),
	}); err != nil {
		sp.Rollback(ctx) //nolint:errcheck
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// UpdateItemStatus applies an item transition, logs it for the kitchen
// history and bumps the order version.
func (s *OrderService) UpdateItemStatus(ctx context.Context, req ItemStatusRequest) (*ItemStatusResult, error) {
	if !enum.IsOrderItemStatus(req.Status) {
		return nil, workflow.ErrUnknownStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if workflow.IsTerminal(string(order.Status)) {
		return nil, workflow.ErrTerminalStatus
	}
	if !workflow.ItemsMutable(string(order.Status)) {
		return nil, workflow.ErrItemsLocked
	}

	item, err := store.GetOrderItem(ctx, database.GetOrderItemParams{ID: req.ItemID, OrderID: order.ID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}
	if err := workflow.CheckItemTransition(string(item.Status), req.Status, req.Actor.Role); err != nil {
		return nil, err
	}

	updatedItem, err := store.UpdateOrderItemStatus(ctx, database.UpdateOrderItemStatusParams{
		Status:        database.OrderItemStatus(req.Status),
		ID:            item.ID,
		OrderID:       order.ID,
		CurrentStatus: item.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("update item status: %w", err)
	}

	if _, err := store.CreateKitchenLog(ctx, database.CreateKitchenLogParams{
		OrderItemID: item.ID,
		UserID:      req.Actor.userID(),
		Action:      database.OrderItemStatus(req.Status),
	}); err != nil {
		return nil, fmt.Errorf("create kitchen log: %w", err)
	}

	bumped, err := store.BumpOrderVersion(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("bump order version: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	statuses := make([]string, len(items))
	for i, it := range items {
		statuses[i] = string(it.Status)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &ItemStatusResult{Item: updatedItem, Order: bumped}
	if workflow.SuggestReady(string(bumped.Status), statuses) {
		result.SuggestedStatus = enum.OrderStatusReady
	}

	metrics.StatusTransitions.WithLabelValues("item", req.Status).Inc()
	s.publish(ctx, events.TypeItemUpdated, bumped.ID.String(), events.OrderRooms(TableIDOf(bumped)), events.ItemUpdated{
		OrderID:         bumped.ID,
		ItemID:          updatedItem.ID,
		Status:          req.Status,
		Version:         bumped.Version,
		SuggestedStatus: result.SuggestedStatus,
	})
	return result, nil
}
