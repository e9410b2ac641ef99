//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/resto-qr/api/internal/config"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/events"
	"github.com/resto-qr/api/internal/router"
	"github.com/resto-qr/api/internal/ws"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow drives one table through a full service against a real
// PostgreSQL database: QR session, order, kitchen progress, serving and
// completion.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:           "8081",
		DatabaseURL:    connStr,
		JWTSecret:      "integration-test-secret",
		AllowedOrigins: []string{"http://localhost:3000"},
		PollInterval:   30 * time.Second,
	}
	hub := ws.NewHub()
	go hub.Run(ctx)
	publisher := events.NewFanout()
	publisher.Add("ws", hub)

	server := httptest.NewServer(router.New(cfg, database.New(pool), pool, hub, publisher))
	defer server.Close()

	health := expectStatus(t, server, "GET", "/health", nil, "", http.StatusOK)
	if health["status"] != "ok" {
		t.Fatalf("health: got %v", health)
	}

	// --- Staff bootstrap ---
	createAdminUser(t, ctx, pool)
	admin := login(t, server, "admin@test.com", "password123")

	for _, u := range []struct{ email, role string }{
		{"chef@test.com", "CHEF"},
		{"waiter@test.com", "WAITER"},
	} {
		expectStatus(t, server, "POST", "/users", map[string]string{
			"email": u.email, "password": "password123", "full_name": u.role, "role": u.role,
		}, admin, http.StatusCreated)
	}
	chef := login(t, server, "chef@test.com", "password123")
	waiter := login(t, server, "waiter@test.com", "password123")

	// --- Floor and menu ---
	table := expectStatus(t, server, "POST", "/tables", map[string]interface{}{"name": "T1", "capacity": 4}, admin, http.StatusCreated)
	tableID := table["id"].(string)
	burger := expectStatus(t, server, "POST", "/dishes", map[string]interface{}{
		"name": "Burger", "price": "25000", "preparation_time": 10,
	}, admin, http.StatusCreated)
	soup := expectStatus(t, server, "POST", "/dishes", map[string]interface{}{
		"name": "Soup", "price": "10000", "preparation_time": 5,
	}, admin, http.StatusCreated)

	// --- Customer scans the QR code and orders ---
	session := expectStatus(t, server, "POST", "/qr/"+table["qr_code"].(string)+"/session", nil, "", http.StatusCreated)
	customer := session["access_token"].(string)

	order := expectStatus(t, server, "POST", "/orders", map[string]interface{}{
		"items": []map[string]interface{}{
			{"dish_id": burger["id"], "quantity": 2},
			{"dish_id": soup["id"], "quantity": 1, "note": "extra hot"},
		},
	}, customer, http.StatusCreated)
	orderID := order["id"].(string)
	if order["total_price"] != "60000.00" {
		t.Fatalf("total_price: got %v, want 60000.00", order["total_price"])
	}
	if order["code"] != "ORD-0001" {
		t.Errorf("code: got %v, want ORD-0001", order["code"])
	}

	// One open order per table.
	expectStatus(t, server, "POST", "/orders", map[string]interface{}{
		"items": []map[string]interface{}{{"dish_id": soup["id"], "quantity": 1}},
	}, customer, http.StatusConflict)

	tableNow := expectStatus(t, server, "GET", "/tables/"+tableID, nil, waiter, http.StatusOK)
	if tableNow["status"] != "OCCUPIED" {
		t.Errorf("table status after order: got %v, want OCCUPIED", tableNow["status"])
	}

	// --- Kitchen ---
	board := expectStatus(t, server, "GET", "/kitchen/orders?sort=priority", nil, chef, http.StatusOK)
	if tickets := board["tickets"].([]interface{}); len(tickets) != 1 {
		t.Fatalf("kitchen tickets: got %d, want 1", len(tickets))
	}

	// Waiters cannot start cooking.
	expectStatus(t, server, "PATCH", "/orders/"+orderID+"/status", map[string]string{"status": "IN_PROGRESS"}, waiter, http.StatusForbidden)
	started := expectStatus(t, server, "PATCH", "/orders/"+orderID+"/status", map[string]interface{}{
		"status": "IN_PROGRESS", "expected_version": 1,
	}, chef, http.StatusOK)
	version := int64(started["version"].(float64))

	// A stale version loses.
	expectStatus(t, server, "PATCH", "/orders/"+orderID+"/status", map[string]interface{}{
		"status": "READY", "expected_version": 1,
	}, chef, http.StatusConflict)

	full := expectStatus(t, server, "GET", "/orders/"+orderID, nil, customer, http.StatusOK)
	items := full["items"].([]interface{})
	var last map[string]interface{}
	for _, raw := range items {
		itemID := raw.(map[string]interface{})["id"].(string)
		path := "/orders/" + orderID + "/items/" + itemID + "/status"
		expectStatus(t, server, "PATCH", path, map[string]string{"status": "PREPARING"}, chef, http.StatusOK)
		last = expectStatus(t, server, "PATCH", path, map[string]string{"status": "DONE"}, chef, http.StatusOK)
	}
	if last["suggested_status"] != "READY" {
		t.Errorf("suggested_status after last item: got %v, want READY", last["suggested_status"])
	}
	if v := int64(last["order_version"].(float64)); v <= version {
		t.Errorf("order version did not advance: %d -> %d", version, v)
	}

	logs := expectList(t, server, "/orders/"+orderID+"/logs", chef)
	if len(logs) != 2*len(items) {
		t.Errorf("kitchen logs: got %d, want %d", len(logs), 2*len(items))
	}

	// --- Serve and close ---
	expectStatus(t, server, "PATCH", "/orders/"+orderID+"/status", map[string]string{"status": "READY"}, chef, http.StatusOK)
	expectStatus(t, server, "PATCH", "/orders/"+orderID+"/status", map[string]string{"status": "SERVED"}, waiter, http.StatusOK)
	done := expectStatus(t, server, "PATCH", "/orders/"+orderID+"/status", map[string]string{"status": "COMPLETED"}, waiter, http.StatusOK)
	if done["table_status_applied"] != true || done["table_status"] != "CLEANING" {
		t.Errorf("table side effect: got applied=%v status=%v", done["table_status_applied"], done["table_status"])
	}

	tableNow = expectStatus(t, server, "GET", "/tables/"+tableID, nil, waiter, http.StatusOK)
	if tableNow["status"] != "CLEANING" {
		t.Errorf("table status after completion: got %v, want CLEANING", tableNow["status"])
	}
	expectStatus(t, server, "GET", "/tables/"+tableID+"/orders/active", nil, customer, http.StatusNotFound)

	board = expectStatus(t, server, "GET", "/kitchen/orders", nil, chef, http.StatusOK)
	if tickets := board["tickets"].([]interface{}); len(tickets) != 0 {
		t.Errorf("kitchen tickets after completion: got %d, want 0", len(tickets))
	}

	// Terminal orders stay terminal.
	expectStatus(t, server, "PATCH", "/orders/"+orderID+"/status", map[string]string{"status": "CANCELED"}, admin, http.StatusConflict)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("resto_test"),
		tcpostgres.WithUsername("resto"),
		tcpostgres.WithPassword("resto"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
	return connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Go test sets cwd to the package directory.
	m, err := migrate.NewWithDatabaseInstance("file://../../migrations", "postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createAdminUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	_, err = pool.Exec(ctx,
		`INSERT INTO users (email, password_hash, full_name, role) VALUES ($1, $2, $3, 'ADMIN')`,
		"admin@test.com", string(hashed), "Test Admin")
	if err != nil {
		t.Fatalf("create admin user: %v", err)
	}
}

// --- HTTP helpers ---

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp := expectStatus(t, server, "POST", "/auth/login", map[string]string{
		"email": email, "password": password,
	}, "", http.StatusOK)
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no access_token in response: %+v", resp)
	}
	return token
}

func send(t *testing.T, server *httptest.Server, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func expectStatus(t *testing.T, server *httptest.Server, method, path string, body interface{}, token string, want int) map[string]interface{} {
	t.Helper()
	resp := send(t, server, method, path, body, token)
	defer resp.Body.Close()

	var out map[string]interface{}
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d; body: %v", method, path, resp.StatusCode, want, out)
	}
	return out
}

func expectList(t *testing.T, server *httptest.Server, path, token string) []interface{} {
	t.Helper()
	resp := send(t, server, "GET", path, nil, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	var out []interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("GET %s: decode: %v", path, err)
	}
	return out
}
