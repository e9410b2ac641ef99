package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/enum"
	"github.com/resto-qr/api/internal/events"
	"github.com/resto-qr/api/internal/workflow"
)

func statusStore(order database.Order) *mockOrderStore {
	return &mockOrderStore{
		getOrderForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			if id != order.ID {
				return database.Order{}, pgx.ErrNoRows
			}
			return order, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			if arg.Status_2 != order.Status {
				return database.Order{}, pgx.ErrNoRows
			}
			o := order
			o.Status = arg.Status
			o.Version++
			return o, nil
		},
		updateTableStatusFn: func(ctx context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error) {
			return database.DiningTable{ID: arg.ID, Status: arg.Status}, nil
		},
	}
}

func TestUpdateOrderStatus_Rejections(t *testing.T) {
	f := newFixture()
	chef := Actor{UserID: uuid.New(), Role: enum.UserRoleChef}
	stale := int64(1)

	tests := []struct {
		name    string
		status  database.OrderStatus
		req     StatusChangeRequest
		wantErr error
	}{
		{"unknown status", database.OrderStatusPENDING, StatusChangeRequest{Status: "COOKING", Actor: chef}, workflow.ErrUnknownStatus},
		{"skipping ahead", database.OrderStatusPENDING, StatusChangeRequest{Status: enum.OrderStatusReady, Actor: chef}, workflow.ErrInvalidTransition},
		{"waiter cannot start cooking", database.OrderStatusPENDING, StatusChangeRequest{Status: enum.OrderStatusInProgress, Actor: f.staff}, workflow.ErrTransitionForbidden},
		{"chef cannot serve", database.OrderStatusREADY, StatusChangeRequest{Status: enum.OrderStatusServed, Actor: chef}, workflow.ErrTransitionForbidden},
		{"completed is terminal", database.OrderStatusCOMPLETED, StatusChangeRequest{Status: enum.OrderStatusPending, Actor: f.staff}, workflow.ErrTerminalStatus},
		{"canceled is terminal", database.OrderStatusCANCELED, StatusChangeRequest{Status: enum.OrderStatusCompleted, Actor: f.staff}, workflow.ErrTerminalStatus},
		{"cancel after cooking started", database.OrderStatusINPROGRESS, StatusChangeRequest{Status: enum.OrderStatusCanceled, Actor: f.staff}, workflow.ErrInvalidTransition},
		{"stale expected version", database.OrderStatusPENDING, StatusChangeRequest{Status: enum.OrderStatusInProgress, Actor: chef, ExpectedVersion: &stale}, ErrVersionConflict},
		{"customer of another table", database.OrderStatusPENDING, StatusChangeRequest{Status: enum.OrderStatusCanceled, Actor: Actor{Role: enum.UserRoleCustomer, TableID: uuid.New()}}, ErrTableAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := openOrder(f, tt.status)
			svc, tx, pub := newTestService(statusStore(order))

			req := tt.req
			req.OrderID = order.ID
			_, err := svc.UpdateOrderStatus(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tx.committed {
				t.Error("transaction should not commit")
			}
			if len(pub.events) != 0 {
				t.Errorf("no events expected, got %v", pub.types())
			}
		})
	}
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	f := newFixture()
	svc, _, _ := newTestService(statusStore(openOrder(f, database.OrderStatusPENDING)))

	_, err := svc.UpdateOrderStatus(context.Background(), StatusChangeRequest{
		OrderID: uuid.New(),
		Status:  enum.OrderStatusCanceled,
		Actor:   f.staff,
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestUpdateOrderStatus_StartCooking(t *testing.T) {
	f := newFixture()
	order := openOrder(f, database.OrderStatusPENDING)
	svc, tx, pub := newTestService(statusStore(order))

	version := order.Version
	result, err := svc.UpdateOrderStatus(context.Background(), StatusChangeRequest{
		OrderID:         order.ID,
		Status:          enum.OrderStatusInProgress,
		ExpectedVersion: &version,
		Actor:           Actor{UserID: uuid.New(), Role: enum.UserRoleChef},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.Status != database.OrderStatusINPROGRESS || result.PreviousStatus != enum.OrderStatusPending {
		t.Errorf("unexpected result %+v", result)
	}
	if result.TableStatus != "" {
		t.Errorf("no table follow-up expected, got %q", result.TableStatus)
	}
	if !tx.committed {
		t.Error("transaction should commit")
	}

	if types := pub.types(); len(types) != 1 || types[0] != events.TypeOrderStatusUpdated {
		t.Fatalf("events: got %v", types)
	}
	payload, err := events.Decode[events.OrderStatusUpdated](pub.events[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Version != order.Version+1 || payload.Status != enum.OrderStatusInProgress {
		t.Errorf("unexpected payload %+v", payload)
	}
	if len(pub.events[0].Rooms) != 3 {
		t.Errorf("rooms: got %v", pub.events[0].Rooms)
	}
}

func TestUpdateOrderStatus_CustomerCancelsOwnPendingOrder(t *testing.T) {
	f := newFixture()
	order := openOrder(f, database.OrderStatusPENDING)
	svc, _, _ := newTestService(statusStore(order))

	result, err := svc.UpdateOrderStatus(context.Background(), StatusChangeRequest{
		OrderID: order.ID,
		Status:  enum.OrderStatusCanceled,
		Actor:   Actor{Role: enum.UserRoleCustomer, TableID: f.tableID},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.Status != database.OrderStatusCANCELED {
		t.Errorf("status: got %s", result.Order.Status)
	}
}

func TestUpdateOrderStatus_CompleteCleansTable(t *testing.T) {
	f := newFixture()
	order := openOrder(f, database.OrderStatusSERVED)
	store := statusStore(order)

	var tableUpdate database.UpdateTableStatusParams
	store.updateTableStatusFn = func(ctx context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error) {
		tableUpdate = arg
		return database.DiningTable{ID: arg.ID, Status: arg.Status}, nil
	}

	svc, tx, pub := newTestService(store)
	sp := &mockTx{}
	tx.savepoint = sp

	result, err := svc.UpdateOrderStatus(context.Background(), StatusChangeRequest{
		OrderID: order.ID,
		Status:  enum.OrderStatusCompleted,
		Actor:   f.staff,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tableUpdate.ID != f.tableID || tableUpdate.Status != database.TableStatusCLEANING {
		t.Errorf("table update: got %+v", tableUpdate)
	}
	if !result.TableStatusApplied || result.TableStatus != enum.TableStatusCleaning || result.TableStatusError != "" {
		t.Errorf("unexpected result %+v", result)
	}
	if !sp.committed || !tx.committed {
		t.Error("savepoint and transaction should commit")
	}
	types := pub.types()
	if len(types) != 2 || types[0] != events.TypeOrderStatusUpdated || types[1] != events.TypeTableStatusUpdated {
		t.Errorf("events: got %v", types)
	}
}

func TestUpdateOrderStatus_TableFailureStillCompletesOrder(t *testing.T) {
	f := newFixture()
	order := openOrder(f, database.OrderStatusSERVED)
	store := statusStore(order)
	store.updateTableStatusFn = func(ctx context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error) {
		return database.DiningTable{}, errors.New("table locked")
	}

	svc, tx, pub := newTestService(store)
	sp := &mockTx{}
	tx.savepoint = sp

	result, err := svc.UpdateOrderStatus(context.Background(), StatusChangeRequest{
		OrderID: order.ID,
		Status:  enum.OrderStatusCompleted,
		Actor:   Actor{UserID: uuid.New(), Role: enum.UserRoleCashier},
	})
	if err != nil {
		t.Fatalf("order transition should succeed, got %v", err)
	}
	if result.Order.Status != database.OrderStatusCOMPLETED {
		t.Errorf("status: got %s", result.Order.Status)
	}
	if result.TableStatusApplied {
		t.Error("table status should be reported as not applied")
	}
	if result.TableStatusError != "table locked" {
		t.Errorf("table error: got %q", result.TableStatusError)
	}
	if !sp.rolledBack {
		t.Error("savepoint should roll back")
	}
	if !tx.committed {
		t.Error("order change should still commit")
	}
	if types := pub.types(); len(types) != 1 || types[0] != events.TypeOrderStatusUpdated {
		t.Errorf("events: got %v", types)
	}
}

func TestUpdateOrderStatus_SavepointFailure(t *testing.T) {
	f := newFixture()
	order := openOrder(f, database.OrderStatusSERVED)
	svc, tx, _ := newTestService(statusStore(order))
	tx.beginErr = errors.New("savepoint refused")

	result, err := svc.UpdateOrderStatus(context.Background(), StatusChangeRequest{
		OrderID: order.ID,
		Status:  enum.OrderStatusCompleted,
		Actor:   f.staff,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TableStatusApplied || result.TableStatusError == "" {
		t.Errorf("unexpected result %+v", result)
	}
	if !tx.committed {
		t.Error("order change should still commit")
	}
}

// =====================
// UpdateItemStatus
// =====================

func itemStore(order database.Order, items []database.OrderItem) (*mockOrderStore, *[]database.CreateKitchenLogParams) {
	var logs []database.CreateKitchenLogParams
	store := statusStore(order)
	store.getOrderItemFn = func(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
		for _, it := range items {
			if it.ID == arg.ID && it.OrderID == arg.OrderID {
				return it, nil
			}
		}
		return database.OrderItem{}, pgx.ErrNoRows
	}
	store.updateItemStatusFn = func(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error) {
		for i, it := range items {
			if it.ID == arg.ID && it.Status == arg.CurrentStatus {
				items[i].Status = arg.Status
				return items[i], nil
			}
		}
		return database.OrderItem{}, pgx.ErrNoRows
	}
	store.createKitchenLogFn = func(ctx context.Context, arg database.CreateKitchenLogParams) (database.KitchenLog, error) {
		logs = append(logs, arg)
		return database.KitchenLog{ID: uuid.New(), OrderItemID: arg.OrderItemID, UserID: arg.UserID, Action: arg.Action}, nil
	}
	store.bumpOrderVersionFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		o := order
		o.Version++
		return o, nil
	}
	store.listOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
		return append([]database.OrderItem(nil), items...), nil
	}
	return store, &logs
}

func TestUpdateItemStatus_ItemsLockedAfterReady(t *testing.T) {
	f := newFixture()
	order := openOrder(f, database.OrderStatusREADY)
	item := waitingItem(order.ID, "10000", 1, 1, database.OrderItemStatusPREPARING)
	store, _ := itemStore(order, []database.OrderItem{item})
	svc, _, _ := newTestService(store)

	_, err := svc.UpdateItemStatus(context.Background(), ItemStatusRequest{
		OrderID: order.ID,
		ItemID:  item.ID,
		Status:  enum.OrderItemStatusDone,
		Actor:   Actor{Role: enum.UserRoleChef},
	})
	if !errors.Is(err, workflow.ErrItemsLocked) {
		t.Fatalf("expected ErrItemsLocked, got %v", err)
	}
}

func TestUpdateItemStatus_TerminalOrder(t *testing.T) {
	f := newFixture()
	order := openOrder(f, database.OrderStatusCANCELED)
	item := waitingItem(order.ID, "10000", 1, 1, database.OrderItemStatusWAITING)
	store, _ := itemStore(order, []database.OrderItem{item})
	svc, _, _ := newTestService(store)

	_, err := svc.UpdateItemStatus(context.Background(), ItemStatusRequest{
		OrderID: order.ID,
		ItemID:  item.ID,
		Status:  enum.OrderItemStatusPreparing,
		Actor:   Actor{Role: enum.UserRoleChef},
	})
	if !errors.Is(err, workflow.ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}
}

func TestUpdateItemStatus_OnlyForward(t *testing.T) {
	f := newFixture()
	chef := Actor{Role: enum.UserRoleChef}

	tests := []struct {
		name    string
		from    database.OrderItemStatus
		to      string
		wantErr error
	}{
		{"back to waiting", database.OrderItemStatusPREPARING, enum.OrderItemStatusWaiting, workflow.ErrInvalidTransition},
		{"skip preparing", database.OrderItemStatusWAITING, enum.OrderItemStatusDone, workflow.ErrInvalidTransition},
		{"done is final", database.OrderItemStatusDONE, enum.OrderItemStatusPreparing, workflow.ErrTerminalStatus},
		{"failed is final", database.OrderItemStatusFAILED, enum.OrderItemStatusDone, workflow.ErrTerminalStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := openOrder(f, database.OrderStatusINPROGRESS)
			item := waitingItem(order.ID, "10000", 1, 1, tt.from)
			store, logs := itemStore(order, []database.OrderItem{item})
			svc, tx, _ := newTestService(store)

			_, err := svc.UpdateItemStatus(context.Background(), ItemStatusRequest{
				OrderID: order.ID, ItemID: item.ID, Status: tt.to, Actor: chef,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(*logs) != 0 || tx.committed {
				t.Error("rejected transition must not write")
			}
		})
	}
}

func TestUpdateItemStatus_WaiterForbidden(t *testing.T) {
	f := newFixture()
	order := openOrder(f, database.OrderStatusPENDING)
	item := waitingItem(order.ID, "10000", 1, 1, database.OrderItemStatusWAITING)
	store, _ := itemStore(order, []database.OrderItem{item})
	svc, _, _ := newTestService(store)

	_, err := svc.UpdateItemStatus(context.Background(), ItemStatusRequest{
		OrderID: order.ID, ItemID: item.ID, Status: enum.OrderItemStatusPreparing, Actor: f.staff,
	})
	if !errors.Is(err, workflow.ErrTransitionForbidden) {
		t.Fatalf("expected ErrTransitionForbidden, got %v", err)
	}
}

func TestUpdateItemStatus_LastItemDoneSuggestsReady(t *testing.T) {
	f := newFixture()
	order := openOrder(f, database.OrderStatusINPROGRESS)
	done := waitingItem(order.ID, "10000", 1, 1, database.OrderItemStatusDONE)
	cooking := waitingItem(order.ID, "25000", 1, 2, database.OrderItemStatusPREPARING)
	store, logs := itemStore(order, []database.OrderItem{done, cooking})
	svc, tx, pub := newTestService(store)

	chef := Actor{UserID: uuid.New(), Role: enum.UserRoleChef}
	result, err := svc.UpdateItemStatus(context.Background(), ItemStatusRequest{
		OrderID: order.ID, ItemID: cooking.ID, Status: enum.OrderItemStatusDone, Actor: chef,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Item.Status != database.OrderItemStatusDONE {
		t.Errorf("item status: got %s", result.Item.Status)
	}
	if result.Order.Version != order.Version+1 {
		t.Errorf("version: got %d, want %d", result.Order.Version, order.Version+1)
	}
	if result.SuggestedStatus != enum.OrderStatusReady {
		t.Errorf("suggested status: got %q, want READY", result.SuggestedStatus)
	}
	if result.Order.Status != database.OrderStatusINPROGRESS {
		t.Error("the order must not move to READY on its own")
	}
	if len(*logs) != 1 || uuid.UUID((*logs)[0].UserID.Bytes) != chef.UserID || (*logs)[0].Action != database.OrderItemStatusDONE {
		t.Errorf("kitchen log: got %+v", *logs)
	}
	if !tx.committed {
		t.Error("transaction should commit")
	}

	if types := pub.types(); len(types) != 1 || types[0] != events.TypeItemUpdated {
		t.Fatalf("events: got %v", types)
	}
	payload, err := events.Decode[events.ItemUpdated](pub.events[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.SuggestedStatus != enum.OrderStatusReady || payload.Version != order.Version+1 {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestUpdateItemStatus_StartPreparingNoSuggestion(t *testing.T) {
	f := newFixture()
	order := openOrder(f, database.OrderStatusPENDING)
	item := waitingItem(order.ID, "10000", 1, 1, database.OrderItemStatusWAITING)
	store, _ := itemStore(order, []database.OrderItem{item})
	svc, _, _ := newTestService(store)

	result, err := svc.UpdateItemStatus(context.Background(), ItemStatusRequest{
		OrderID: order.ID, ItemID: item.ID, Status: enum.OrderItemStatusPreparing, Actor: Actor{Role: enum.UserRoleManager},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SuggestedStatus != "" {
		t.Errorf("no suggestion expected, got %q", result.SuggestedStatus)
	}
}
