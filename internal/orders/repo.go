package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// Insert persists the order header and its lines in one transaction. The
// total is whatever the coordinator computed from snapshot prices; it never
// changes afterwards.
func (r *Repo) Insert(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, buyer_id, status, total_cents, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		o.ID, o.BuyerID, o.Status, o.TotalCents, o.CreatedAt)
	if err != nil {
		return err
	}
	for _, l := range o.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines(order_id, product_id, quantity, unit_price_cents)
			VALUES ($1,$2,$3,$4)`,
			o.ID, l.ProductID, l.Quantity, l.UnitPriceCents)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx,
		`SELECT id, buyer_id, status, total_cents, created_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.BuyerID, &o.Status, &o.TotalCents, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if err := r.attachLines(ctx, []*Order{&o}); err != nil {
		return Order{}, err
	}
	return o, nil
}

// ListByBuyer returns the buyer's orders, newest first.
func (r *Repo) ListByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return r.list(ctx, `
		SELECT id, buyer_id, status, total_cents, created_at
		FROM orders WHERE buyer_id=$1 ORDER BY created_at DESC`, buyerID)
}

// ListBySeller returns orders containing at least one of the seller's
// products, newest first.
func (r *Repo) ListBySeller(ctx context.Context, sellerID string) ([]Order, error) {
	return r.list(ctx, `
		SELECT DISTINCT o.id, o.buyer_id, o.status, o.total_cents, o.created_at
		FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		JOIN products p ON p.id = l.product_id
		WHERE p.seller_id = $1
		ORDER BY o.created_at DESC`, sellerID)
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.Status, &o.TotalCents, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*Order, len(out))
	for i := range out {
		refs[i] = &out[i]
	}
	if err := r.attachLines(ctx, refs); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) attachLines(ctx context.Context, os []*Order) error {
	if len(os) == 0 {
		return nil
	}
	ids := make([]string, 0, len(os))
	byID := make(map[string]*Order, len(os))
	for _, o := range os {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, quantity, unit_price_cents
		FROM order_lines WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			l       Line
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.Quantity, &l.UnitPriceCents); err != nil {
			return err
		}
		if o := byID[orderID]; o != nil {
			o.Lines = append(o.Lines, l)
		}
	}
	return rows.Err()
}

// UpdateStatus applies a guarded status transition under a row lock so two
// concurrent updates cannot both succeed from the same starting status.
func (r *Repo) UpdateStatus(ctx context.Context, id string, to Status) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cur Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !CanTransition(cur, to) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, cur, to)
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, to); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
