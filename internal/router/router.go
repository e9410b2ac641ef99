package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/resto-qr/api/internal/config"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/enum"
	"github.com/resto-qr/api/internal/events"
	"github.com/resto-qr/api/internal/handler"
	"github.com/resto-qr/api/internal/metrics"
	mw "github.com/resto-qr/api/internal/middleware"
	"github.com/resto-qr/api/internal/service"
	"github.com/resto-qr/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, table scoping, and role-based middleware as needed.
// Every change notification goes through publisher.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, publisher events.Publisher) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	handler.NewAuthHandler(queries, cfg.JWTSecret).RegisterRoutes(r)
	handler.NewSessionHandler(queries, cfg.JWTSecret).RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// The menu is public; changing it is not.
	dishHandler := handler.NewDishHandler(queries)
	r.Route("/dishes", func(r chi.Router) {
		dishHandler.RegisterPublicRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager))
			dishHandler.RegisterRoutes(r)
		})
	})

	newStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newStore, publisher)

	// Protected routes (require authentication). Staff and table sessions
	// share these; handlers and route middleware narrow access further.
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		tableHandler := handler.NewTableHandler(queries, publisher)
		r.Route("/tables", tableHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(orderService, queries)
		feedbackHandler := handler.NewFeedbackHandler(queries)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)
			feedbackHandler.RegisterRoutes(r)
		})

		// Staff-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireStaff)
			kitchenHandler := handler.NewKitchenHandler(queries, cfg.PollInterval)
			r.Route("/kitchen", kitchenHandler.RegisterRoutes)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)
		})
	})

	return r
}
