package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/enum"
	"github.com/resto-qr/api/internal/kitchen"
)

// kitchenBoardLimit caps how many open orders the board loads at once. The
// cap keeps the tickets the sort mode ranks first.
const kitchenBoardLimit = 100

// KitchenStore defines the database methods needed by the kitchen board.
// Satisfied by *database.Queries; narrow interface for testability.
type KitchenStore interface {
	ListKitchenOrders(ctx context.Context, arg database.ListKitchenOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrders(ctx context.Context, orderIds []uuid.UUID) ([]database.OrderItem, error)
}

// KitchenHandler serves the kitchen board.
type KitchenHandler struct {
	store        KitchenStore
	pollInterval time.Duration
	now          func() time.Time
}

// NewKitchenHandler creates a new KitchenHandler. pollInterval is advertised
// to clients as the refresh period for their polling backstop.
func NewKitchenHandler(store KitchenStore, pollInterval time.Duration) *KitchenHandler {
	return &KitchenHandler{store: store, pollInterval: pollInterval, now: time.Now}
}

// RegisterRoutes registers kitchen endpoints. Expected to be mounted at
// /kitchen behind staff authentication.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.Board)
}

type kitchenBoardResponse struct {
	Tickets             []kitchen.Ticket `json:"tickets"`
	Sort                string           `json:"sort"`
	GeneratedAt         time.Time        `json:"generated_at"`
	PollIntervalSeconds int              `json:"poll_interval_seconds"`
}

// Board handles GET /kitchen/orders?sort=time|priority&status=PENDING,IN_PROGRESS.
func (h *KitchenHandler) Board(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode, err := kitchen.ParseSortMode(q.Get("sort"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	statuses := enum.KitchenOrderStatuses
	if s := q.Get("status"); s != "" {
		parsed, ok := parseStatusList(s)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		statuses = parsed
	}

	orders, err := h.store.ListKitchenOrders(r.Context(), database.ListKitchenOrdersParams{
		Statuses:    statuses,
		OldestFirst: mode == enum.SortModePriority,
		LimitCount:  kitchenBoardLimit,
	})
	if err != nil {
		log.Printf("ERROR: kitchen board orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	byOrder := make(map[uuid.UUID][]database.OrderItem, len(orders))
	if len(orders) > 0 {
		ids := make([]uuid.UUID, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		items, err := h.store.ListOrderItemsByOrders(r.Context(), ids)
		if err != nil {
			log.Printf("ERROR: kitchen board items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		for _, it := range items {
			byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
		}
	}

	now := h.now()
	tickets := make([]kitchen.Ticket, len(orders))
	for i, o := range orders {
		tickets[i] = kitchen.BuildTicket(o, byOrder[o.ID], now)
	}
	kitchen.SortTickets(tickets, mode, now)

	writeJSON(w, http.StatusOK, kitchenBoardResponse{
		Tickets:             tickets,
		Sort:                mode,
		GeneratedAt:         now.UTC(),
		PollIntervalSeconds: int(h.pollInterval / time.Second),
	})
}
