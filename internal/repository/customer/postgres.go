package customer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"marketplace-checkout/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres returns a Repository backed by Postgres. A nil logger discards.
func NewPostgres(pool *pgxpool.Pool, logger *zerolog.Logger) Repository {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("repo", "customer").Logger()
	}
	return &postgresRepo{pool: pool, logger: l}
}

const customerColumns = `id::text, email, password_hash, first_name, last_name, phone, addresses,
       default_shipping_address_id, default_billing_address_id, created_at`

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	addresses := c.Addresses
	if addresses == nil {
		addresses = []domain.CustomerAddress{}
	}
	addrJSON, err := json.Marshal(addresses)
	if err != nil {
		return nil, err
	}

	q := `
INSERT INTO customers (
    email, password_hash, first_name, last_name, phone, addresses,
    default_shipping_address_id, default_billing_address_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + customerColumns
	return r.scanCustomer(r.pool.QueryRow(
		ctx,
		q,
		strings.ToLower(strings.TrimSpace(c.Email)),
		c.PasswordHash,
		c.FirstName,
		c.LastName,
		c.Phone,
		addrJSON,
		c.DefaultShippingAddressID,
		c.DefaultBillingAddressID,
	))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	q := `SELECT ` + customerColumns + `
FROM customers
WHERE lower(email) = lower($1)
LIMIT 1
`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, strings.TrimSpace(email)))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	q := `SELECT ` + customerColumns + `
FROM customers
WHERE id::text = $1
LIMIT 1
`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	var addrJSON []byte
	err := row.Scan(
		&c.ID,
		&c.Email,
		&c.PasswordHash,
		&c.FirstName,
		&c.LastName,
		&c.Phone,
		&addrJSON,
		&c.DefaultShippingAddressID,
		&c.DefaultBillingAddressID,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error().Err(err).Msg("scan customer")
		return nil, err
	}
	if len(addrJSON) > 0 {
		if err := json.Unmarshal(addrJSON, &c.Addresses); err != nil {
			r.logger.Error().Err(err).Str("customer_id", c.ID).Msg("decode addresses")
			return nil, err
		}
	}
	return &c, nil
}
