package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-qr/api/internal/config"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/handler"
	"github.com/resto-qr/api/internal/postgres"
	"golang.org/x/crypto/bcrypt"
)

type seedDish struct {
	name     string
	price    string
	prepTime int32
}

var starterMenu = []seedDish{
	{"Grilled Chicken Rice", "32000", 15},
	{"Beef Noodle Soup", "38000", 12},
	{"Fried Tofu", "12000", 6},
	{"Iced Tea", "8000", 2},
}

func main() {
	// CLI flags
	email := flag.String("email", "", "Admin email address")
	password := flag.String("password", "", "Admin password")
	name := flag.String("name", "", "Admin full name")
	tables := flag.Int("tables", 8, "Number of dining tables to create on an empty database")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	// Fall back to defaults
	if *email == "" {
		*email = "admin@resto.local"
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}
	if *name == "" {
		*name = "Restaurant Admin"
	}

	*email = strings.ToLower(*email)

	cfg := config.Load()
	ctx := context.Background()

	if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Seed in a transaction: all or nothing.
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	q := database.New(tx)

	if err := seedAdmin(ctx, q, *email, *password, *name); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	if err := seedTables(ctx, q, *tables); err != nil {
		log.Fatalf("Failed to seed tables: %v", err)
	}
	if err := seedMenu(ctx, q); err != nil {
		log.Fatalf("Failed to seed menu: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Println("Seed completed successfully")
}

// seedAdmin creates the admin account unless the email is already taken.
func seedAdmin(ctx context.Context, q *database.Queries, email, password, fullName string) error {
	existing, err := q.GetUserByEmail(ctx, email)
	if err == nil {
		log.Printf("User '%s' already exists (ID: %s), skipping", email, existing.ID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := q.CreateUser(ctx, database.CreateUserParams{
		Email:        email,
		PasswordHash: string(hashed),
		FullName:     fullName,
		Role:         database.UserRoleADMIN,
	})
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	log.Printf("Created admin '%s' (ID: %s)", email, user.ID)
	return nil
}

// seedTables creates n tables when none exist and prints their QR codes.
func seedTables(ctx context.Context, q *database.Queries, n int) error {
	existing, err := q.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("%d tables already exist, skipping", len(existing))
		return nil
	}

	for i := 1; i <= n; i++ {
		t, err := q.CreateTable(ctx, database.CreateTableParams{
			Name:     fmt.Sprintf("T%d", i),
			Capacity: 4,
			QrCode:   handler.NewQRCode(),
		})
		if err != nil {
			return fmt.Errorf("insert table %d: %w", i, err)
		}
		log.Printf("Created table %s, QR code %s", t.Name, t.QrCode)
	}
	return nil
}

// seedMenu creates the starter dishes on an empty menu.
func seedMenu(ctx context.Context, q *database.Queries) error {
	existing, err := q.ListDishes(ctx, false)
	if err != nil {
		return fmt.Errorf("list dishes: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("%d dishes already exist, skipping", len(existing))
		return nil
	}

	for _, d := range starterMenu {
		var price pgtype.Numeric
		if err := price.Scan(d.price); err != nil {
			return fmt.Errorf("price %s: %w", d.name, err)
		}
		if _, err := q.CreateDish(ctx, database.CreateDishParams{
			Name:            d.name,
			Price:           price,
			PreparationTime: d.prepTime,
			IsAvailable:     true,
		}); err != nil {
			return fmt.Errorf("insert dish %s: %w", d.name, err)
		}
	}
	log.Printf("Created %d dishes", len(starterMenu))
	return nil
}
