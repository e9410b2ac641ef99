package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending    = "PENDING"
	OrderStatusInProgress = "IN_PROGRESS"
	OrderStatusReady      = "READY"
	OrderStatusServed     = "SERVED"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCanceled   = "CANCELED"
)

const (
	OrderItemStatusWaiting   = "WAITING"
	OrderItemStatusPreparing = "PREPARING"
	OrderItemStatusDone      = "DONE"
	OrderItemStatusFailed    = "FAILED"
)

const (
	TableStatusAvailable   = "AVAILABLE"
	TableStatusOccupied    = "OCCUPIED"
	TableStatusReserved    = "RESERVED"
	TableStatusCleaning    = "CLEANING"
	TableStatusUnavailable = "UNAVAILABLE"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleManager = "MANAGER"
	UserRoleChef    = "CHEF"
	UserRoleWaiter  = "WAITER"
	UserRoleCashier = "CASHIER"
)

// UserRoleCustomer only appears in table-scoped QR session tokens, never in the users table.
const UserRoleCustomer = "CUSTOMER"

// ── Group B: Configurable labels (no DB constraint) ──

const (
	SortModeTime     = "time"
	SortModePriority = "priority"
)

const (
	RoomKitchen     = "kitchen"
	RoomFloor       = "floor"
	RoomTablePrefix = "table:"
)

// ActiveOrderStatuses are the non-terminal order statuses.
var ActiveOrderStatuses = []string{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusReady,
	OrderStatusServed,
}

// KitchenOrderStatuses is the default filter for the kitchen board.
var KitchenOrderStatuses = []string{
	OrderStatusPending,
	OrderStatusInProgress,
}

func IsOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusReady,
		OrderStatusServed, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

func IsOrderItemStatus(s string) bool {
	switch s {
	case OrderItemStatusWaiting, OrderItemStatusPreparing,
		OrderItemStatusDone, OrderItemStatusFailed:
		return true
	}
	return false
}

func IsTableStatus(s string) bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusReserved,
		TableStatusCleaning, TableStatusUnavailable:
		return true
	}
	return false
}

func IsStaffRole(s string) bool {
	switch s {
	case UserRoleAdmin, UserRoleManager, UserRoleChef, UserRoleWaiter, UserRoleCashier:
		return true
	}
	return false
}

// TableRoom returns the websocket room name for a table.
func TableRoom(tableID string) string {
	return RoomTablePrefix + tableID
}
