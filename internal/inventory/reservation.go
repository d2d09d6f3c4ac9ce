// Package inventory owns every stock mutation. The reserve path is a single
// conditional update against the ledger store, so it stays correct with any
// number of API instances running; nothing here takes an in-process lock.
package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/metrics"
)

var (
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrProductUnavailable = errors.New("product unavailable")
)

// Inventory log change types, mirrored in the audit table.
const (
	ChangePurchase   = "purchase"
	ChangeRestock    = "restock"
	ChangeAdjustment = "adjustment"
)

// Reservation reports a successful decrement. PrevStock is what the product
// held immediately before this reservation took effect; the caller uses it
// for low-stock crossing detection.
type Reservation struct {
	ProductID string
	Qty       int
	PrevStock int
	NewStock  int
}

type Repo struct {
	DB      *pgxpool.Pool
	Log     *zap.Logger
	Metrics *metrics.Registry
}

// Reserve atomically checks and decrements one product's stock. The
// condition rides inside the UPDATE itself: either the full quantity comes
// off, or nothing does. On ErrInsufficientStock the returned PrevStock holds
// the stock observed at rejection time.
func (r *Repo) Reserve(ctx context.Context, productID string, qty int, reason string) (Reservation, error) {
	var newStock int
	err := r.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2
		WHERE id = $1 AND enabled AND stock >= $2
		RETURNING stock`, productID, qty).Scan(&newStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.classifyRejection(ctx, productID, qty)
	}
	if err != nil {
		return Reservation{}, err
	}

	res := Reservation{ProductID: productID, Qty: qty, PrevStock: newStock + qty, NewStock: newStock}
	r.Metrics.ReservationsOK.Inc()
	r.logChange(ctx, productID, ChangePurchase, res.PrevStock, res.NewStock, reason)
	return res, nil
}

// classifyRejection runs after the conditional update matched no row: the
// product is missing, disabled, or short on stock.
func (r *Repo) classifyRejection(ctx context.Context, productID string, qty int) (Reservation, error) {
	var (
		stock   int
		enabled bool
	)
	err := r.DB.QueryRow(ctx, `SELECT stock, enabled FROM products WHERE id=$1`, productID).Scan(&stock, &enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		r.Metrics.ReservationsUnavailable.Inc()
		return Reservation{}, ErrProductUnavailable
	}
	if err != nil {
		return Reservation{}, err
	}
	if !enabled {
		r.Metrics.ReservationsUnavailable.Inc()
		return Reservation{}, ErrProductUnavailable
	}
	r.Metrics.ReservationsInsufficient.Inc()
	return Reservation{ProductID: productID, Qty: qty, PrevStock: stock, NewStock: stock}, ErrInsufficientStock
}

// Release re-increments stock reserved earlier in a cart that failed. It
// returns the stock level after the increment.
func (r *Repo) Release(ctx context.Context, productID string, qty int, reason string) (int, error) {
	var newStock int
	err := r.DB.QueryRow(ctx,
		`UPDATE products SET stock = stock + $2 WHERE id = $1 RETURNING stock`,
		productID, qty).Scan(&newStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductUnavailable
	}
	if err != nil {
		return 0, err
	}
	r.logChange(ctx, productID, ChangeAdjustment, newStock-qty, newStock, reason)
	return newStock, nil
}

// SetStock atomically overwrites a product's stock level and reports the
// level it replaced. The old value comes out of the same statement that
// writes the new one, so the audit row and any threshold-crossing decision
// are based on the stock that was actually displaced, never on an earlier
// read that a concurrent reservation may have invalidated.
func (r *Repo) SetStock(ctx context.Context, productID string, newStock int, reason string) (int, error) {
	var oldStock int
	err := r.DB.QueryRow(ctx, `
		UPDATE products p SET stock = $2
		FROM (SELECT id, stock FROM products WHERE id = $1 FOR UPDATE) prev
		WHERE p.id = prev.id
		RETURNING prev.stock`, productID, newStock).Scan(&oldStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductUnavailable
	}
	if err != nil {
		return 0, err
	}
	change := ChangeAdjustment
	if newStock > oldStock {
		change = ChangeRestock
	}
	r.logChange(ctx, productID, change, oldStock, newStock, reason)
	return oldStock, nil
}

// LogChange records a stock mutation made outside the reserve/release path
// (seller restocks, admin adjustments).
func (r *Repo) LogChange(ctx context.Context, productID, changeType string, oldStock, newStock int, reason string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO inventory_logs(product_id, change_type, old_stock, new_stock, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,now())`,
		productID, changeType, oldStock, newStock, reason)
	return err
}

// logChange is the best-effort flavor used on the hot path: the stock
// mutation already committed, so a failed audit row is logged, not fatal.
func (r *Repo) logChange(ctx context.Context, productID, changeType string, oldStock, newStock int, reason string) {
	if err := r.LogChange(ctx, productID, changeType, oldStock, newStock, reason); err != nil {
		r.Log.Warn("inventory log write failed",
			zap.String("product_id", productID),
			zap.String("change_type", changeType),
			zap.Error(err))
	}
}
