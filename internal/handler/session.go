package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/resto-qr/api/internal/auth"
	"github.com/resto-qr/api/internal/database"
)

// SessionStore defines the database methods needed to open a table session.
// Satisfied by *database.Queries.
type SessionStore interface {
	GetTableByQRCode(ctx context.Context, qrCode string) (database.DiningTable, error)
}

// SessionHandler exchanges the QR code printed on a table for a customer
// token scoped to that table.
type SessionHandler struct {
	store     SessionStore
	jwtSecret string
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(store SessionStore, jwtSecret string) *SessionHandler {
	return &SessionHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers the public session endpoint.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/qr/{code}/session", h.Open)
}

type sessionResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Table       tableResponse `json:"table"`
}

// Open handles POST /qr/{code}/session.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "qr code is required"})
		return
	}

	table, err := h.store.GetTableByQRCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: open table session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if table.Status == database.TableStatusUNAVAILABLE {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "table is unavailable"})
		return
	}

	token, err := auth.GenerateTableToken(h.jwtSecret, table.ID)
	if err != nil {
		log.Printf("ERROR: generate table token: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(auth.TableSessionTTL).UTC(),
		Table:       toTableResponse(table),
	})
}
