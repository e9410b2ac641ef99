package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/enum"
	"github.com/resto-qr/api/internal/events"
	"github.com/resto-qr/api/internal/middleware"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListTables(ctx context.Context) ([]database.DiningTable, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error)
	GetActiveOrderByTable(ctx context.Context, tableID pgtype.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// TableHandler handles dining table endpoints.
type TableHandler struct {
	store     TableStore
	publisher events.Publisher
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore, publisher events.Publisher) *TableHandler {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &TableHandler{store: store, publisher: publisher}
}

// RegisterRoutes registers table endpoints on the given Chi router.
// Expected to be mounted at /tables behind authentication.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireStaff).Get("/", h.List)
	r.With(middleware.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager)).Post("/", h.Create)
	r.Route("/{tid}", func(r chi.Router) {
		r.Use(middleware.RequireTableAccess)
		r.Get("/", h.Get)
		r.Get("/orders/active", h.ActiveOrder)
		r.With(middleware.RequireStaff).Patch("/status", h.UpdateStatus)
	})
}

// --- Request / Response types ---

type createTableRequest struct {
	Name     string `json:"name"`
	Capacity int32  `json:"capacity"`
}

type updateTableStatusRequest struct {
	Status string `json:"status"`
}

type tableResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Capacity  int32     `json:"capacity"`
	Status    string    `json:"status"`
	QRCode    string    `json:"qr_code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toTableResponse(t database.DiningTable) tableResponse {
	return tableResponse{
		ID:        t.ID,
		Name:      t.Name,
		Capacity:  t.Capacity,
		Status:    string(t.Status),
		QRCode:    t.QrCode,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// --- Handlers ---

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /tables/{tid}.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "tid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.GetTable(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Create handles POST /tables. The QR code is a random token generated here.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Capacity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "capacity must be > 0"})
		return
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		Name:     req.Name,
		Capacity: req.Capacity,
		QrCode:   NewQRCode(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table name already exists"})
			return
		}
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// UpdateStatus handles PATCH /tables/{tid}/status.
func (h *TableHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "tid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var req updateTableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !enum.IsTableStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	table, err := h.store.UpdateTableStatus(r.Context(), database.UpdateTableStatusParams{
		ID:     tableID,
		Status: database.TableStatus(req.Status),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: update table status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	e, err := events.New(events.TypeTableStatusUpdated, table.ID.String(),
		[]string{enum.RoomFloor, enum.TableRoom(table.ID.String())},
		events.TableStatusUpdated{TableID: table.ID, Status: string(table.Status)})
	if err == nil {
		err = h.publisher.Publish(r.Context(), e)
	}
	if err != nil {
		log.Printf("WARN: publish %s: %v", events.TypeTableStatusUpdated, err)
	}

	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// ActiveOrder handles GET /tables/{tid}/orders/active, the polling backstop
// for a table's open order. Responds 404 when the table has none.
func (h *TableHandler) ActiveOrder(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "tid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	order, err := h.store.GetActiveOrderByTable(r.Context(), pgtype.UUID{Bytes: tableID, Valid: true})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active order"})
			return
		}
		log.Printf("ERROR: get active order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// NewQRCode returns a random opaque token to print on a table.
func NewQRCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
