package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-qr/api/internal/database"
	"github.com/shopspring/decimal"
)

// DishStore defines the database methods needed by dish handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DishStore interface {
	ListDishes(ctx context.Context, onlyAvailable bool) ([]database.Dish, error)
	GetDish(ctx context.Context, id uuid.UUID) (database.Dish, error)
	CreateDish(ctx context.Context, arg database.CreateDishParams) (database.Dish, error)
	UpdateDish(ctx context.Context, arg database.UpdateDishParams) (database.Dish, error)
}

// DishHandler handles menu endpoints.
type DishHandler struct {
	store DishStore
}

// NewDishHandler creates a new DishHandler.
func NewDishHandler(store DishStore) *DishHandler {
	return &DishHandler{store: store}
}

// RegisterPublicRoutes registers the read-only menu endpoints.
// Expected to be mounted at /dishes.
func (h *DishHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterRoutes registers the menu management endpoints.
// Expected to be mounted at /dishes behind a role check.
func (h *DishHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
}

// --- Request / Response types ---

type dishRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	PreparationTime int32  `json:"preparation_time"`
	IsAvailable     *bool  `json:"is_available"`
}

type dishResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Price           string    `json:"price"`
	PreparationTime int32     `json:"preparation_time"`
	IsAvailable     bool      `json:"is_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toDishResponse(d database.Dish) dishResponse {
	resp := dishResponse{
		ID:              d.ID,
		Name:            d.Name,
		Price:           numericToString(d.Price),
		PreparationTime: d.PreparationTime,
		IsAvailable:     d.IsAvailable,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.Description.Valid {
		resp.Description = &d.Description.String
	}
	return resp
}

// --- Handlers ---

// List handles GET /dishes. Pass available=true to hide sold-out dishes.
func (h *DishHandler) List(w http.ResponseWriter, r *http.Request) {
	onlyAvailable := r.URL.Query().Get("available") == "true"

	dishes, err := h.store.ListDishes(r.Context(), onlyAvailable)
	if err != nil {
		log.Printf("ERROR: list dishes: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dishResponse, len(dishes))
	for i, d := range dishes {
		resp[i] = toDishResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /dishes/{id}.
func (h *DishHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dish ID"})
		return
	}

	dish, err := h.store.GetDish(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "dish not found"})
			return
		}
		log.Printf("ERROR: get dish: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toDishResponse(dish))
}

// Create handles POST /dishes.
func (h *DishHandler) Create(w http.ResponseWriter, r *http.Request) {
	params, ok := decodeDishRequest(w, r)
	if !ok {
		return
	}

	dish, err := h.store.CreateDish(r.Context(), database.CreateDishParams{
		Name:            params.Name,
		Description:     params.Description,
		Price:           params.Price,
		PreparationTime: params.PreparationTime,
		IsAvailable:     params.IsAvailable,
	})
	if err != nil {
		log.Printf("ERROR: create dish: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toDishResponse(dish))
}

// Update handles PUT /dishes/{id}.
func (h *DishHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dish ID"})
		return
	}

	params, ok := decodeDishRequest(w, r)
	if !ok {
		return
	}
	params.ID = id

	dish, err := h.store.UpdateDish(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "dish not found"})
			return
		}
		log.Printf("ERROR: update dish: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toDishResponse(dish))
}

// decodeDishRequest validates the body shared by create and update. It
// writes the error response itself and reports whether the caller may go on.
func decodeDishRequest(w http.ResponseWriter, r *http.Request) (database.UpdateDishParams, bool) {
	var req dishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return database.UpdateDishParams{}, false
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return database.UpdateDishParams{}, false
	}
	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return database.UpdateDishParams{}, false
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return database.UpdateDishParams{}, false
	}
	if req.PreparationTime < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "preparation_time must be >= 0"})
		return database.UpdateDishParams{}, false
	}

	desc := pgtype.Text{}
	if req.Description != "" {
		desc = pgtype.Text{String: req.Description, Valid: true}
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	return database.UpdateDishParams{
		Name:            req.Name,
		Description:     desc,
		Price:           price,
		PreparationTime: req.PreparationTime,
		IsAvailable:     available,
	}, true
}

var errNegativePrice = errors.New("negative price")

func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativePrice
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}
