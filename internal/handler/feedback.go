package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-qr/api/internal/auth"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/enum"
	"github.com/resto-qr/api/internal/middleware"
)

const maxFeedbackComment = 1000

// FeedbackStore defines the database methods needed by feedback handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type FeedbackStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreateOrderFeedback(ctx context.Context, arg database.CreateOrderFeedbackParams) (database.OrderFeedback, error)
	GetOrderFeedback(ctx context.Context, orderID uuid.UUID) (database.OrderFeedback, error)
}

// FeedbackHandler handles the rating a table leaves on a completed order.
type FeedbackHandler struct {
	store FeedbackStore
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(store FeedbackStore) *FeedbackHandler {
	return &FeedbackHandler{store: store}
}

// RegisterRoutes registers feedback endpoints on the given Chi router.
// Expected to be mounted at /orders behind authentication.
func (h *FeedbackHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/feedback", h.Create)
	r.Get("/{id}/feedback", h.Get)
}

type feedbackRequest struct {
	Rating  int32  `json:"rating"`
	Comment string `json:"comment"`
}

type feedbackResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Rating    int32     `json:"rating"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Create handles POST /orders/{id}/feedback. Only completed orders take
// feedback, once.
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if msg := validateFeedback(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	order, ok := h.loadOrder(w, r, claims, orderID)
	if !ok {
		return
	}
	if string(order.Status) != enum.OrderStatusCompleted {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "feedback is only accepted for completed orders"})
		return
	}

	fb, err := h.store.CreateOrderFeedback(r.Context(), database.CreateOrderFeedbackParams{
		OrderID: orderID,
		Rating:  req.Rating,
		Comment: pgtype.Text{String: req.Comment, Valid: req.Comment != ""},
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "feedback already submitted for this order"})
			return
		}
		log.Printf("ERROR: create feedback: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toFeedbackResponse(fb))
}

// Get handles GET /orders/{id}/feedback.
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	if _, ok := h.loadOrder(w, r, claims, orderID); !ok {
		return
	}

	fb, err := h.store.GetOrderFeedback(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no feedback for this order"})
			return
		}
		log.Printf("ERROR: get feedback: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toFeedbackResponse(fb))
}

// loadOrder fetches the order and checks that a customer session belongs to
// its table. It writes the error response itself.
func (h *FeedbackHandler) loadOrder(w http.ResponseWriter, r *http.Request, claims *auth.Claims, orderID uuid.UUID) (database.Order, bool) {
	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return database.Order{}, false
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Order{}, false
	}

	if claims.IsCustomer() && (!order.TableID.Valid || uuid.UUID(order.TableID.Bytes) != claims.TableID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied to this order"})
		return database.Order{}, false
	}
	return order, true
}

func validateFeedback(req feedbackRequest) string {
	if req.Rating < 1 || req.Rating > 5 {
		return "rating must be between 1 and 5"
	}
	if utf8.RuneCountInString(req.Comment) > maxFeedbackComment {
		return "comment is too long"
	}
	return ""
}

func toFeedbackResponse(fb database.OrderFeedback) feedbackResponse {
	resp := feedbackResponse{
		ID:        fb.ID,
		OrderID:   fb.OrderID,
		Rating:    fb.Rating,
		CreatedAt: fb.CreatedAt,
	}
	if fb.Comment.Valid {
		resp.Comment = &fb.Comment.String
	}
	return resp
}
