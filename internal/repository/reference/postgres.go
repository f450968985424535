package reference

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace-checkout/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) ListCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM countries ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Country, error) {
		var c domain.Country
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
}

func (r *postgresRepo) ListPaymentGateways(ctx context.Context) ([]domain.PaymentGateway, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, code, display_name, description
FROM payment_gateways
WHERE enabled
ORDER BY sort_order, display_name
`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PaymentGateway, error) {
		var g domain.PaymentGateway
		err := row.Scan(&g.ID, &g.Code, &g.DisplayName, &g.Description)
		return g, err
	})
}

func (r *postgresRepo) ListDeliveryCities(ctx context.Context) ([]domain.DeliveryCity, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, name, region_name, icon
FROM delivery_cities
ORDER BY sort_order, name
`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DeliveryCity, error) {
		var c domain.DeliveryCity
		err := row.Scan(&c.ID, &c.Name, &c.RegionName, &c.Icon)
		return c, err
	})
}

func (r *postgresRepo) UpsertCountries(ctx context.Context, countries []domain.Country) error {
	batch := &pgx.Batch{}
	for i, c := range countries {
		batch.Queue(`
INSERT INTO countries (id, name, sort_order) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, sort_order = EXCLUDED.sort_order
`, c.ID, c.Name, i)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *postgresRepo) UpsertPaymentGateways(ctx context.Context, gateways []domain.PaymentGateway) error {
	batch := &pgx.Batch{}
	for i, g := range gateways {
		batch.Queue(`
INSERT INTO payment_gateways (id, code, display_name, description, sort_order) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    code = EXCLUDED.code,
    display_name = EXCLUDED.display_name,
    description = EXCLUDED.description,
    sort_order = EXCLUDED.sort_order
`, g.ID, g.Code, g.DisplayName, g.Description, i)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// UpsertDeliveryCities writes cities in one transaction and returns how many
// rows were inserted or changed.
func (r *postgresRepo) UpsertDeliveryCities(ctx context.Context, cities []domain.DeliveryCity) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	n := 0
	for i, c := range cities {
		cmd, err := tx.Exec(ctx, `
INSERT INTO delivery_cities (id, name, region_name, icon, sort_order) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    region_name = EXCLUDED.region_name,
    icon = EXCLUDED.icon,
    sort_order = EXCLUDED.sort_order
WHERE (delivery_cities.name, delivery_cities.region_name, delivery_cities.icon, delivery_cities.sort_order)
   IS DISTINCT FROM (EXCLUDED.name, EXCLUDED.region_name, EXCLUDED.icon, EXCLUDED.sort_order)
`, c.ID, c.Name, c.RegionName, c.Icon, i)
		if err != nil {
			return 0, err
		}
		n += int(cmd.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}
