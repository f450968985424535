package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/events"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const orderColumns = `id::text, cart_id::text, customer_id::text, payment_gateway_id, billing, shipping,
       notes, create_account, currency, total_cents, status, created_at`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order, event func(domain.Order) (events.Event, error)) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	status := o.Status
	if status == "" {
		status = "pending"
	}
	created, err := scanOrder(tx.QueryRow(ctx, `
INSERT INTO orders (cart_id, customer_id, payment_gateway_id, billing, shipping, notes, create_account, currency, total_cents, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING `+orderColumns,
		o.CartID, o.CustomerID, o.PaymentGatewayID, []byte(o.Billing), []byte(o.Shipping),
		o.Notes, o.CreateAccount, o.Currency, o.TotalCents, status,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	if event != nil {
		e, err := event(*created)
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO outbox_events (aggregate_id, event_type, payload)
VALUES ($1, $2, $3)
`, e.AggregateID, e.Type, []byte(e.Payload)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return o, err
}

func (r *postgresRepo) Unpublished(ctx context.Context, limit int) ([]events.Event, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, aggregate_id, event_type, payload, created_at
FROM outbox_events
WHERE published_at IS NULL
ORDER BY id ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var e events.Event
		var payload []byte
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.Type, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *postgresRepo) MarkPublished(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE outbox_events SET published_at = now() WHERE id = $1 AND published_at IS NULL`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var billing, shipping []byte
	if err := row.Scan(
		&o.ID,
		&o.CartID,
		&o.CustomerID,
		&o.PaymentGatewayID,
		&billing,
		&shipping,
		&o.Notes,
		&o.CreateAccount,
		&o.Currency,
		&o.TotalCents,
		&o.Status,
		&o.CreatedAt,
	); err != nil {
		return nil, err
	}
	o.Billing = billing
	o.Shipping = shipping
	return &o, nil
}
