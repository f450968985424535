package customer

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"marketplace-checkout/internal/migrate"
	customerrepo "marketplace-checkout/internal/repository/customer"
	tokenrepo "marketplace-checkout/internal/repository/token"
)

func TestSignupAndLogin_Integration(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	logger := zerolog.New(zerolog.NewTestWriter(t))
	repo := customerrepo.NewPostgres(pool, &logger)
	tokenRepo := tokenrepo.NewPostgres(pool)
	svc := New(repo, tokenRepo)

	password := "Abcdefg1"
	cust, err := svc.Signup(ctx, SignupInput{
		Email:     "integration@example.com",
		Password:  password,
		FirstName: "Int",
		LastName:  "User",
		Addresses: []AddressInput{
			{CountryID: "MW", CityID: "zomba", City: "Zomba", Line1: "Chinamwali"},
		},
		DefaultShippingAddress: intPtr(0),
		DefaultBillingAddress:  intPtr(0),
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if cust == nil || cust.ID == "" {
		t.Fatalf("expected created customer, got %+v", cust)
	}

	_, access, refresh, err := svc.Login(ctx, "integration@example.com", password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatalf("expected tokens, got access=%q refresh=%q", access, refresh)
	}

	found, err := svc.LookupByToken(ctx, access)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != cust.ID || len(found.Addresses) != 1 {
		t.Fatalf("unexpected customer %+v", found)
	}
}

func integrationPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE orders, cart_lines, carts, tokens, customers RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
