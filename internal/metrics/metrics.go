package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resto_orders_created_total",
		Help: "The total number of orders created",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resto_status_transitions_total",
		Help: "Applied status transitions by entity kind and target status",
	}, []string{"kind", "to"})

	TableSideEffectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resto_table_side_effect_failures_total",
		Help: "Order completions whose table status update failed",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resto_events_published_total",
		Help: "Events delivered to a sink",
	}, []string{"sink", "type"})

	EventPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resto_event_publish_errors_total",
		Help: "Events a sink failed to accept",
	}, []string{"sink"})

	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resto_ws_clients",
		Help: "The number of connected websocket clients",
	})

	WSDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resto_ws_dropped_clients_total",
		Help: "Websocket clients dropped because their send buffer was full",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resto_http_request_duration_seconds",
		Help:    "Time spent serving HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency labelled by the chi route pattern, so
// path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
