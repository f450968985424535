package customer

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/migrate"
)

func TestPostgres_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer pool.Close()
	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE orders, carts, tokens, customers CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	repo := NewPostgres(pool, nil)
	created, err := repo.Create(ctx, domain.Customer{
		Email:        "Chisomo@Example.com",
		PasswordHash: "hash",
		FirstName:    "Chisomo",
		Phone:        "0991234567",
		Addresses: []domain.CustomerAddress{
			{ID: "home", CountryID: "MW", CityID: "lilongwe", City: "Lilongwe", Line1: "Area 47"},
		},
		DefaultShippingAddressID: "home",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Email != "chisomo@example.com" {
		t.Fatalf("email not normalised: %q", created.Email)
	}

	byEmail, err := repo.GetByEmail(ctx, "CHISOMO@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	addr, ok := byEmail.Address("home")
	if !ok || addr.CityID != "lilongwe" {
		t.Fatalf("saved address not round-tripped: %+v", byEmail.Addresses)
	}

	if _, err := repo.GetByID(ctx, created.ID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if _, err := repo.Create(ctx, domain.Customer{Email: "chisomo@example.com", PasswordHash: "x"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
