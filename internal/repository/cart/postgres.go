package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
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

func (r *postgresRepo) Create(ctx context.Context, in CreateCartInput) (*domain.CartSnapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var cartID string
	if err := tx.QueryRow(ctx, `
INSERT INTO carts (customer_id, currency, shipping_cents)
VALUES ($1, $2, $3)
RETURNING id::text
`, in.CustomerID, in.Currency, in.Shipping).Scan(&cartID); err != nil {
		return nil, err
	}

	for i, l := range in.Lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("line %d: quantity must be positive", i)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO cart_lines (cart_id, product_ref, variant_ref, name, seller_name, unit_price_cents, quantity, in_stock, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, cartID, l.ProductRef, l.VariantRef, l.Name, l.SellerName, l.UnitPrice, l.Quantity, l.InStock, i); err != nil {
			return nil, err
		}
	}

	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetSnapshot(ctx, cartID)
}

// checkIDs reports ErrNotFound for ids that cannot be row keys, so malformed
// ids never reach postgres as a cast error.
func checkIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *postgresRepo) GetSnapshot(ctx context.Context, cartID string) (*domain.CartSnapshot, error) {
	if err := checkIDs(cartID); err != nil {
		return nil, err
	}
	var snap domain.CartSnapshot
	err := r.pool.QueryRow(ctx, `
SELECT id::text, currency, subtotal_cents, shipping_cents, discount_cents, total_cents, coupon_code
FROM carts
WHERE id = $1
`, cartID).Scan(
		&snap.ID,
		&snap.Currency,
		&snap.Subtotal,
		&snap.Shipping,
		&snap.DiscountAmount,
		&snap.Total,
		&snap.CouponCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT id::text, product_ref, variant_ref, name, seller_name, unit_price_cents, quantity, in_stock
FROM cart_lines
WHERE cart_id = $1
ORDER BY position ASC, created_at ASC
`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap.Items = []domain.CartItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		snap.Items = append(snap.Items, item)
		snap.ItemCount += item.Quantity
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *postgresRepo) UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, r.RemoveItem(ctx, cartID, itemID)
	}
	if err := checkIDs(cartID, itemID); err != nil {
		return nil, err
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	item, err := scanItem(tx.QueryRow(ctx, `
UPDATE cart_lines
SET quantity = $1
WHERE id = $2 AND cart_id = $3
RETURNING id::text, product_ref, variant_ref, name, seller_name, unit_price_cents, quantity, in_stock
`, quantity, itemID, cartID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *postgresRepo) RemoveItem(ctx context.Context, cartID, itemID string) error {
	if err := checkIDs(cartID, itemID); err != nil {
		return err
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
DELETE FROM cart_lines
WHERE id = $1 AND cart_id = $2
`, itemID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) Clear(ctx context.Context, cartID string) error {
	if err := checkIDs(cartID); err != nil {
		return err
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
UPDATE carts
SET shipping_cents = 0, discount_cents = 0, coupon_code = ''
WHERE id = $1
`, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetCoupon stores the code on the cart. Discount and shipping are owned by
// the upstream pricing service and are returned unchanged.
func (r *postgresRepo) SetCoupon(ctx context.Context, cartID, code string) (*domain.CartSnapshot, error) {
	if err := checkIDs(cartID); err != nil {
		return nil, err
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE carts
SET coupon_code = $1, version = version + 1, updated_at = now()
WHERE id = $2
`, code, cartID)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetSnapshot(ctx, cartID)
}

func scanItem(row pgx.Row) (domain.CartItem, error) {
	var item domain.CartItem
	err := row.Scan(
		&item.ID,
		&item.ProductRef,
		&item.VariantRef,
		&item.Name,
		&item.SellerName,
		&item.UnitPrice,
		&item.Quantity,
		&item.InStock,
	)
	item.LineTotal = item.UnitPrice * int64(item.Quantity)
	return item, err
}

func updateCartTotal(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `
UPDATE carts
SET subtotal_cents = s.subtotal,
    total_cents = s.subtotal - carts.discount_cents + carts.shipping_cents,
    version = carts.version + 1,
    updated_at = now()
FROM (
	SELECT COALESCE(SUM(unit_price_cents * quantity), 0) AS subtotal
	FROM cart_lines
	WHERE cart_id = $1
) s
WHERE carts.id = $1
`, cartID)
	return err
}
