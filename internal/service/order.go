package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/enum"
	"github.com/resto-qr/api/internal/events"
	"github.com/resto-qr/api/internal/metrics"
	"github.com/resto-qr/api/internal/workflow"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// tempItemPrefix marks item ids the client generated for rows it has not saved yet.
const tempItemPrefix = "temp-"

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidDishID       = errors.New("invalid dish_id")
	ErrInvalidItemID       = errors.New("invalid item id")
	ErrDishNotFound        = errors.New("dish not found")
	ErrDishUnavailable     = errors.New("dish is not available")
	ErrTableNotFound       = errors.New("table not found")
	ErrTableUnavailable    = errors.New("table is unavailable")
	ErrTableHasActiveOrder = errors.New("table already has an active order")
	ErrTableAccess         = errors.New("order belongs to another table")
	ErrOrderNotFound       = errors.New("order not found")
	ErrItemNotFound        = errors.New("order item not found")
	ErrItemNotEditable     = errors.New("only waiting items can be changed")
	ErrVersionConflict     = errors.New("order was modified concurrently")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order workflow needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetTableForUpdate(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error)
	GetActiveOrderByTable(ctx context.Context, tableID pgtype.UUID) (database.Order, error)
	GetDish(ctx context.Context, id uuid.UUID) (database.Dish, error)
	GetNextOrderNumber(ctx context.Context) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderDetails(ctx context.Context, arg database.UpdateOrderDetailsParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	BumpOrderVersion(ctx context.Context, id uuid.UUID) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) (int64, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetMaxItemPosition(ctx context.Context, orderID uuid.UUID) (int32, error)
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) (int64, error)
	UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
	CreateKitchenLog(ctx context.Context, arg database.CreateKitchenLogParams) (database.KitchenLog, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool, tx or savepoint).
type NewOrderStore func(db database.DBTX) OrderStore

// Actor is the authenticated caller of a mutation. Customers carry the table
// their QR session is bound to and no user id.
type Actor struct {
	UserID  uuid.UUID
	Role    string
	TableID uuid.UUID
}

func (a Actor) isCustomer() bool {
	return a.Role == enum.UserRoleCustomer
}

func (a Actor) userID() pgtype.UUID {
	if a.UserID == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: a.UserID, Valid: true}
}

// canAccess reports whether the actor may touch an order on the given table.
func (a Actor) canAccess(tableID pgtype.UUID) bool {
	if !a.isCustomer() {
		return true
	}
	return tableID.Valid && uuid.UUID(tableID.Bytes) == a.TableID
}

// ItemInput is one line of a create or edit request. ID is empty or carries
// the temp- prefix for lines that do not exist yet.
type ItemInput struct {
	ID       string
	DishID   string
	Quantity int32
	Note     string
}

func (in ItemInput) isNew() bool {
	return in.ID == "" || strings.HasPrefix(in.ID, tempItemPrefix)
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	TableID uuid.UUID
	Note    string
	Items   []ItemInput
	Actor   Actor
}

// EditOrderRequest changes the lines of an open order. A nil Note keeps the
// current note.
type EditOrderRequest struct {
	OrderID        uuid.UUID
	Items          []ItemInput
	RemovedItemIDs []string
	Note           *string
	Actor          Actor
}

// OrderResult is an order with its items in position order.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool      TxBeginner
	newStore  NewOrderStore
	publisher events.Publisher
}

// NewOrderService creates a new OrderService. A nil publisher discards events.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, publisher events.Publisher) *OrderService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &OrderService{pool: pool, newStore: newStore, publisher: publisher}
}

// CreateOrder validates the request, snapshots dish prices and creates the
// order atomically. Retries up to maxOrderNumberRetries times when two
// transactions draw the same order code.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if _, err := uuid.Parse(item.DishID); err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidDishID)
		}
	}
	if req.Actor.isCustomer() && req.Actor.TableID != req.TableID {
		return nil, ErrTableAccess
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, tableChanged, err := s.createOrderTx(ctx, req)
		if err == nil {
			metrics.OrdersCreated.Inc()
			s.publishOrderChanged(ctx, events.TypeOrderCreated, result)
			if tableChanged {
				s.publishTableStatus(ctx, req.TableID, enum.TableStatusOccupied)
			}
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		if isActiveOrderConflict(err) {
			return nil, ErrTableHasActiveOrder
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order code (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_code_key"
	}
	return false
}

// isActiveOrderConflict catches a concurrent order on the same table that
// slipped past the active order lookup.
func isActiveOrderConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_active_table_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*OrderResult, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Table must exist, be usable and have no open order ---
	table, err := store.GetTableForUpdate(ctx, req.TableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrTableNotFound
		}
		return nil, false, fmt.Errorf("get table: %w", err)
	}
	if table.Status == database.TableStatusUNAVAILABLE {
		return nil, false, ErrTableUnavailable
	}
	tableID := pgtype.UUID{Bytes: table.ID, Valid: true}
	if _, err := store.GetActiveOrderByTable(ctx, tableID); err == nil {
		return nil, false, ErrTableHasActiveOrder
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("get active order: %w", err)
	}

	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("get next order number: %w", err)
	}

	// --- Snapshot dishes ---
	total := decimal.Zero
	params := make([]database.CreateOrderItemParams, 0, len(req.Items))
	for i, item := range req.Items {
		p, err := snapshotItem(ctx, store, item)
		if err != nil {
			return nil, false, fmt.Errorf("item[%d]: %w", i, err)
		}
		p.Position = int32(i + 1)
		total = total.Add(numericToDecimal(p.UnitPrice).Mul(decimal.NewFromInt32(p.Quantity)))
		params = append(params, p)
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		Code:       fmt.Sprintf("ORD-%04d", nextNum),
		TableID:    tableID,
		TotalPrice: decimalToNumeric(total),
		Note:       textOrNull(req.Note),
		CreatedBy:  req.Actor.userID(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(params))
	for _, p := range params {
		p.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, p)
		if err != nil {
			return nil, false, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	tableChanged := false
	if table.Status != database.TableStatusOCCUPIED {
		if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
			ID:     table.ID,
			Status: database.TableStatusOCCUPIED,
		}); err != nil {
			return nil, false, fmt.Errorf("occupy table: %w", err)
		}
		tableChanged = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderResult{Order: order, Items: items}, tableChanged, nil
}

// snapshotItem copies the dish name, price and preparation time into new
// order item params. OrderID and Position are left to the caller.
func snapshotItem(ctx context.Context, store OrderStore, in ItemInput) (database.CreateOrderItemParams, error) {
	if in.Quantity <= 0 {
		return database.CreateOrderItemParams{}, ErrInvalidQuantity
	}
	dishID, err := uuid.Parse(in.DishID)
	if err != nil {
		return database.CreateOrderItemParams{}, ErrInvalidDishID
	}
	dish, err := store.GetDish(ctx, dishID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CreateOrderItemParams{}, ErrDishNotFound
		}
		return database.CreateOrderItemParams{}, fmt.Errorf("get dish: %w", err)
	}
	if !dish.IsAvailable {
		return database.CreateOrderItemParams{}, ErrDishUnavailable
	}
	return database.CreateOrderItemParams{
		DishID:          dish.ID,
		DishName:        dish.Name,
		UnitPrice:       dish.Price,
		PreparationTime: dish.PreparationTime,
		Quantity:        in.Quantity,
		Note:            textOrNull(in.Note),
	}, nil
}

// EditOrder applies line changes to an order that the kitchen has not
// locked yet. Only WAITING items may be updated or removed; new lines are
// appended after the current last position. The total is recomputed from
// the stored price snapshots.
func (s *OrderService) EditOrder(ctx context.Context, req EditOrderRequest) (*OrderResult, error) {
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
	if workflow.IsTerminal(string(order.Status)) {
		return nil, workflow.ErrTerminalStatus
	}
	if !workflow.ItemsMutable(string(order.Status)) {
		return nil, workflow.ErrItemsLocked
	}

	for i, raw := range req.RemovedItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("removed_item_ids[%d]: %w", i, ErrInvalidItemID)
		}
		n, err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{ID: id, OrderID: order.ID})
		if err != nil {
			return nil, fmt.Errorf("delete item: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("removed_item_ids[%d]: %w", i, ErrItemNotEditable)
		}
	}

	position, err := store.GetMaxItemPosition(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("get max position: %w", err)
	}
	for i, in := range req.Items {
		if in.isNew() {
			p, err := snapshotItem(ctx, store, in)
			if err != nil {
				return nil, fmt.Errorf("item[%d]: %w", i, err)
			}
			position++
			p.OrderID = order.ID
			p.Position = position
			if _, err := store.CreateOrderItem(ctx, p); err != nil {
				return nil, fmt.Errorf("create order item: %w", err)
			}
			continue
		}

		id, err := uuid.Parse(in.ID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidItemID)
		}
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if _, err := store.UpdateOrderItem(ctx, database.UpdateOrderItemParams{
			ID:       id,
			OrderID:  order.ID,
			Quantity: in.Quantity,
			Note:     textOrNull(in.Note),
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrItemNotEditable)
			}
			return nil, fmt.Errorf("update order item: %w", err)
		}
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	note := order.Note
	if req.Note != nil {
		note = textOrNull(*req.Note)
	}
	updated, err := store.UpdateOrderDetails(ctx, database.UpdateOrderDetailsParams{
		ID:         order.ID,
		TotalPrice: decimalToNumeric(itemsTotal(items)),
		Note:       note,
	})
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{Order: updated, Items: items}
	s.publishOrderChanged(ctx, events.TypeOrderUpdated, result)
	return result, nil
}

// DeleteOrder removes an order and its items. Deleting a table's active
// order frees the table when the order was what kept it occupied.
func (s *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}

	n, err := store.DeleteOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}

	tableID := TableIDOf(order)
	freed := false
	if tableID != nil && !workflow.IsTerminal(string(order.Status)) {
		table, err := store.GetTableForUpdate(ctx, *tableID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("get table: %w", err)
		}
		if err == nil && table.Status == database.TableStatusOCCUPIED {
			if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
				ID:     table.ID,
				Status: database.TableStatusAVAILABLE,
			}); err != nil {
				return fmt.Errorf("free table: %w", err)
			}
			freed = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.publish(ctx, events.TypeOrderDeleted, order.ID.String(), events.OrderRooms(tableID), events.OrderDeleted{
		OrderID: order.ID,
		TableID: tableID,
		Code:    order.Code,
		Version: order.Version + 1,
	})
	if freed {
		s.publishTableStatus(ctx, *tableID, enum.TableStatusAvailable)
	}
	return nil
}

// --- Events ---

// publish hands an event to the configured sinks. Delivery is best effort:
// the state change is already committed, so failures are only logged.
func (s *OrderService) publish(ctx context.Context, typ, key string, rooms []string, payload any) {
	e, err := events.New(typ, key, rooms, payload)
	if err != nil {
		log.Printf("ERROR: build %s event: %v", typ, err)
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Printf("WARN: publish %s: %v", typ, err)
	}
}

func (s *OrderService) publishOrderChanged(ctx context.Context, typ string, r *OrderResult) {
	tableID := TableIDOf(r.Order)
	s.publish(ctx, typ, r.Order.ID.String(), events.OrderRooms(tableID), events.OrderChanged{
		OrderID:    r.Order.ID,
		TableID:    tableID,
		Code:       r.Order.Code,
		Status:     string(r.Order.Status),
		TotalPrice: numericToDecimal(r.Order.TotalPrice).StringFixed(2),
		ItemCount:  len(r.Items),
		Version:    r.Order.Version,
	})
}

func (s *OrderService) publishTableStatus(ctx context.Context, tableID uuid.UUID, status string) {
	s.publish(ctx, events.TypeTableStatusUpdated, tableID.String(),
		[]string{enum.RoomFloor, enum.TableRoom(tableID.String())},
		events.TableStatusUpdated{TableID: tableID, Status: status})
}

// --- Helpers ---

// TableIDOf returns the order's table id, or nil when the table was deleted.
func TableIDOf(o database.Order) *uuid.UUID {
	if !o.TableID.Valid {
		return nil
	}
	id := uuid.UUID(o.TableID.Bytes)
	return &id
}

func itemsTotal(items []database.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(numericToDecimal(it.UnitPrice).Mul(decimal.NewFromInt32(it.Quantity)))
	}
	return total
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
