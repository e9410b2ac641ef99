package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-qr/api/internal/auth"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/enum"
	"github.com/resto-qr/api/internal/middleware"
	"github.com/resto-qr/api/internal/service"
	"github.com/resto-qr/api/internal/workflow"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	EditOrder(ctx context.Context, req service.EditOrderRequest) (*service.OrderResult, error)
	UpdateOrderStatus(ctx context.Context, req service.StatusChangeRequest) (*service.StatusChangeResult, error)
	UpdateItemStatus(ctx context.Context, req service.ItemStatusRequest) (*service.ItemStatusResult, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListKitchenLogsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListKitchenLogsByOrderRow, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders behind authentication. Customers reach
// only the orders of their own table.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.With(middleware.RequireStaff).Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Edit)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.With(middleware.RequireStaff).Patch("/{id}/items/{itemId}/status", h.UpdateItemStatus)
	r.With(middleware.RequireStaff).Get("/{id}/logs", h.Logs)
	r.With(middleware.RequireRole(enum.UserRoleAdmin)).Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type orderItemRequest struct {
	ID       string `json:"id"`
	DishID   string `json:"dish_id"`
	Quantity int32  `json:"quantity"`
	Note     string `json:"note"`
}

type createOrderRequest struct {
	TableID string             `json:"table_id"`
	Note    string             `json:"note"`
	Items   []orderItemRequest `json:"items"`
}

type editOrderRequest struct {
	Items          []orderItemRequest `json:"items"`
	RemovedItemIDs []string           `json:"removed_item_ids"`
	Note           *string            `json:"note"`
}

type updateStatusRequest struct {
	Status          string `json:"status"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type orderResponse struct {
	ID         uuid.UUID           `json:"id"`
	Code       string              `json:"code"`
	TableID    *uuid.UUID          `json:"table_id"`
	Status     string              `json:"status"`
	TotalPrice string              `json:"total_price"`
	Note       *string             `json:"note"`
	CreatedBy  *uuid.UUID          `json:"created_by"`
	Version    int64               `json:"version"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Items      []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID              uuid.UUID  `json:"id"`
	DishID          uuid.UUID  `json:"dish_id"`
	DishName        string     `json:"dish_name"`
	UnitPrice       string     `json:"unit_price"`
	PreparationTime int32      `json:"preparation_time"`
	Position        int32      `json:"position"`
	Quantity        int32      `json:"quantity"`
	Note            *string    `json:"note"`
	Status          string     `json:"status"`
	PreparedAt      *time.Time `json:"prepared_at"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type statusChangeResponse struct {
	orderResponse
	PreviousStatus     string   `json:"previous_status"`
	AllowedNext        []string `json:"allowed_next"`
	TableStatus        string   `json:"table_status,omitempty"`
	TableStatusApplied *bool    `json:"table_status_applied,omitempty"`
	TableStatusError   string   `json:"table_status_error,omitempty"`
}

type itemStatusResponse struct {
	Item            orderItemResponse `json:"item"`
	OrderVersion    int64             `json:"order_version"`
	SuggestedStatus string            `json:"suggested_status,omitempty"`
}

type kitchenLogResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderItemID uuid.UUID  `json:"order_item_id"`
	DishName    string     `json:"dish_name"`
	UserID      *uuid.UUID `json:"user_id"`
	Action      string     `json:"action"`
	CreatedAt   time.Time  `json:"created_at"`
}

// --- Handlers ---

// Create handles POST /orders. Customers may omit table_id; their session's
// table is used.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var tableID uuid.UUID
	switch {
	case req.TableID != "":
		id, err := uuid.Parse(req.TableID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		tableID = id
	case claims.IsCustomer():
		tableID = claims.TableID
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_id is required"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	for i, item := range req.Items {
		if item.DishID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "dish_id is required"),
			})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "quantity must be > 0"),
			})
			return
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		TableID: tableID,
		Note:    req.Note,
		Items:   toItemInputs(req.Items),
		Actor:   actorFromClaims(claims),
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, result.Items))
}

// List handles GET /orders with optional status (comma separated), table_id,
// start_date and end_date filters.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Parse pagination
	limit := 20
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := q.Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Statuses:    []string{},
		LimitCount:  int32(limit),
		OffsetCount: int32(offset),
	}

	if s := q.Get("status"); s != "" {
		statuses, ok := parseStatusList(s)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Statuses = statuses
	}
	if s := q.Get("table_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		params.TableID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := q.Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := q.Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if claims.IsCustomer() && (!order.TableID.Valid || uuid.UUID(order.TableID.Bytes) != claims.TableID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied to this order"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// Edit handles PATCH /orders/{id}.
func (h *OrderHandler) Edit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req editOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.EditOrder(r.Context(), service.EditOrderRequest{
		OrderID:        orderID,
		Items:          toItemInputs(req.Items),
		RemovedItemIDs: req.RemovedItemIDs,
		Note:           req.Note,
		Actor:          actorFromClaims(claims),
	})
	if err != nil {
		writeServiceError(w, "edit order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result.Order, result.Items))
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	result, err := h.svc.UpdateOrderStatus(r.Context(), service.StatusChangeRequest{
		OrderID:         orderID,
		Status:          req.Status,
		ExpectedVersion: req.ExpectedVersion,
		Actor:           actorFromClaims(claims),
	})
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	resp := statusChangeResponse{
		orderResponse:  toOrderResponse(result.Order, nil),
		PreviousStatus: result.PreviousStatus,
		AllowedNext:    workflow.AllowedOrderTransitions(string(result.Order.Status), claims.Role),
	}
	if result.TableStatus != "" {
		applied := result.TableStatusApplied
		resp.TableStatus = result.TableStatus
		resp.TableStatusApplied = &applied
		resp.TableStatusError = result.TableStatusError
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateItemStatus handles PATCH /orders/{id}/items/{itemId}/status.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	result, err := h.svc.UpdateItemStatus(r.Context(), service.ItemStatusRequest{
		OrderID: orderID,
		ItemID:  itemID,
		Status:  req.Status,
		Actor:   actorFromClaims(claims),
	})
	if err != nil {
		writeServiceError(w, "update item status", err)
		return
	}

	writeJSON(w, http.StatusOK, itemStatusResponse{
		Item:            toOrderItemResponse(result.Item),
		OrderVersion:    result.Order.Version,
		SuggestedStatus: result.SuggestedStatus,
	})
}

// Logs handles GET /orders/{id}/logs, the kitchen history of an order.
func (h *OrderHandler) Logs(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	logs, err := h.store.ListKitchenLogsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list kitchen logs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]kitchenLogResponse, len(logs))
	for i, l := range logs {
		resp[i] = kitchenLogResponse{
			ID:          l.ID,
			OrderItemID: l.OrderItemID,
			DishName:    l.DishName,
			UserID:      uuidPtr(l.UserID),
			Action:      string(l.Action),
			CreatedAt:   l.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), orderID); err != nil {
		writeServiceError(w, "delete order", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

func actorFromClaims(c *auth.Claims) service.Actor {
	return service.Actor{UserID: c.UserID, Role: c.Role, TableID: c.TableID}
}

func toItemInputs(items []orderItemRequest) []service.ItemInput {
	out := make([]service.ItemInput, len(items))
	for i, it := range items {
		out[i] = service.ItemInput{
			ID:       it.ID,
			DishID:   it.DishID,
			Quantity: it.Quantity,
			Note:     it.Note,
		}
	}
	return out
}

// parseStatusList splits a comma separated status filter.
func parseStatusList(s string) ([]string, bool) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !enum.IsOrderStatus(part) {
			return nil, false
		}
		out = append(out, part)
	}
	return out, len(out) > 0
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in a 400 response.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidDishID) ||
		errors.Is(err, service.ErrInvalidItemID) ||
		errors.Is(err, service.ErrDishNotFound) ||
		errors.Is(err, service.ErrDishUnavailable) ||
		errors.Is(err, workflow.ErrUnknownStatus)
}

func isConflictError(err error) bool {
	return errors.Is(err, service.ErrTableUnavailable) ||
		errors.Is(err, service.ErrTableHasActiveOrder) ||
		errors.Is(err, service.ErrItemNotEditable) ||
		errors.Is(err, service.ErrVersionConflict) ||
		errors.Is(err, workflow.ErrInvalidTransition) ||
		errors.Is(err, workflow.ErrTerminalStatus) ||
		errors.Is(err, workflow.ErrItemsLocked)
}

// writeServiceError maps order service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrTableAccess), errors.Is(err, workflow.ErrTransitionForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrTableNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case isConflictError(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:         o.ID,
		Code:       o.Code,
		TableID:    uuidPtr(o.TableID),
		Status:     string(o.Status),
		TotalPrice: numericToString(o.TotalPrice),
		CreatedBy:  uuidPtr(o.CreatedBy),
		Version:    o.Version,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	if resp.Code == "" {
		resp.Code = o.ID.String()[:8]
	}
	if o.Note.Valid {
		resp.Note = &o.Note.String
	}
	if items != nil {
		resp.Items = make([]orderItemResponse, len(items))
		for i, it := range items {
			resp.Items[i] = toOrderItemResponse(it)
		}
	}
	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:              it.ID,
		DishID:          it.DishID,
		DishName:        it.DishName,
		UnitPrice:       numericToString(it.UnitPrice),
		PreparationTime: it.PreparationTime,
		Position:        it.Position,
		Quantity:        it.Quantity,
		Status:          string(it.Status),
	}
	if it.Note.Valid {
		resp.Note = &it.Note.String
	}
	if it.PreparedAt.Valid {
		t := it.PreparedAt.Time
		resp.PreparedAt = &t
	}
	return resp
}

func uuidPtr(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := uuid.UUID(id.Bytes)
	return &u
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
