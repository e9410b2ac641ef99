// Command kitchenboard is a terminal kitchen display. It follows the kitchen
// websocket room and polls the board endpoint as a backstop.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/resto-qr/api/internal/board"
	"github.com/resto-qr/api/internal/enum"
	"github.com/resto-qr/api/internal/events"
	"github.com/resto-qr/api/internal/kitchen"
)

const redialDelay = 3 * time.Second

var errUnauthorized = errors.New("unauthorized")

func main() {
	_ = godotenv.Load()

	api := flag.String("api", envOr("KITCHENBOARD_API", "http://localhost:8081"), "API base URL")
	email := flag.String("email", os.Getenv("KITCHENBOARD_EMAIL"), "Staff email")
	password := flag.String("password", os.Getenv("KITCHENBOARD_PASSWORD"), "Staff password")
	sortMode := flag.String("sort", enum.SortModeTime, "Ticket order: time or priority")
	interval := flag.Duration("interval", 30*time.Second, "Polling interval")
	flag.Parse()

	mode, err := kitchen.ParseSortMode(*sortMode)
	if err != nil {
		log.Fatal(err)
	}
	if *email == "" || *password == "" {
		log.Fatal("email and password are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &client{
		base:     strings.TrimRight(*api, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		email:    *email,
		password: *password,
	}
	if err := c.login(ctx); err != nil {
		log.Fatalf("login: %v", err)
	}

	b := board.New()
	redraw := make(chan struct{}, 1)
	pollNow := make(chan struct{}, 1)

	go c.follow(ctx, b, redraw, pollNow)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	poll := func() {
		tok := b.BeginPoll()
		tickets, err := c.fetchBoard(ctx, mode)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("WARN: poll: %v", err)
			}
			return
		}
		b.ApplySnapshot(tok, tickets)
		render(b, mode)
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		case <-pollNow:
			poll()
		case <-redraw:
			render(b, mode)
		}
	}
}

func render(b *board.Board, mode string) {
	fmt.Print("\033[H\033[2J")
	fmt.Printf("Kitchen board  %s  sort=%s\n\n", time.Now().Format("15:04:05"), mode)
	if err := board.Render(os.Stdout, b.Tickets(mode, time.Now())); err != nil {
		log.Printf("ERROR: render: %v", err)
	}
}

func nudge(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// ---- API client ----

type client struct {
	base     string
	http     *http.Client
	email    string
	password string

	mu      sync.Mutex
	access  string
	refresh string
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type boardResponse struct {
	Tickets []kitchen.Ticket `json:"tickets"`
}

func (c *client) login(ctx context.Context) error {
	return c.authenticate(ctx, "/auth/login", map[string]string{"email": c.email, "password": c.password})
}

// renew trades the refresh token for new tokens, falling back to a full
// login when the refresh token is no longer accepted.
func (c *client) renew(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refresh
	c.mu.Unlock()

	err := c.authenticate(ctx, "/auth/refresh", map[string]string{"refresh_token": refresh})
	if errors.Is(err, errUnauthorized) {
		return c.login(ctx)
	}
	return err
}

func (c *client) authenticate(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return errUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return fmt.Errorf("decode tokens: %w", err)
	}
	c.mu.Lock()
	c.access, c.refresh = tokens.AccessToken, tokens.RefreshToken
	c.mu.Unlock()
	return nil
}

func (c *client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access
}

func (c *client) fetchBoard(ctx context.Context, mode string) ([]kitchen.Ticket, error) {
	tickets, err := c.getBoard(ctx, mode)
	if errors.Is(err, errUnauthorized) {
		if err := c.renew(ctx); err != nil {
			return nil, fmt.Errorf("renew session: %w", err)
		}
		return c.getBoard(ctx, mode)
	}
	return tickets, err
}

func (c *client) getBoard(ctx context.Context, mode string) ([]kitchen.Ticket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/kitchen/orders?sort="+url.QueryEscape(mode), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kitchen board: status %d", resp.StatusCode)
	}

	var body boardResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	return body.Tickets, nil
}

// wsURL builds the kitchen room URL from the API base.
func (c *client) wsURL() (string, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := url.Values{}
	q.Set("token", c.accessToken())
	q.Set("room", enum.RoomKitchen)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// follow keeps a websocket open to the kitchen room until ctx ends, feeding
// every event into b. A dropped connection triggers a poll and a redial.
func (c *client) follow(ctx context.Context, b *board.Board, redraw, pollNow chan struct{}) {
	for ctx.Err() == nil {
		if err := c.readEvents(ctx, b, redraw, pollNow); err != nil && ctx.Err() == nil {
			log.Printf("WARN: websocket: %v", err)
		}
		nudge(pollNow)

		select {
		case <-ctx.Done():
			return
		case <-time.After(redialDelay):
		}
	}
}

func (c *client) readEvents(ctx context.Context, b *board.Board, redraw, pollNow chan struct{}) error {
	target, err := c.wsURL()
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			if err := c.renew(ctx); err != nil {
				return fmt.Errorf("renew session: %w", err)
			}
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var e events.Event
		if err := conn.ReadJSON(&e); err != nil {
			return err
		}
		changed, err := b.Apply(e)
		if err != nil {
			log.Printf("WARN: skip %s event: %v", e.Type, err)
			continue
		}
		if changed {
			nudge(redraw)
		}
		if b.NeedsRefresh() {
			nudge(pollNow)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
