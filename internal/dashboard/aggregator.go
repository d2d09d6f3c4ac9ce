// Package dashboard computes the read-only rollups behind the admin and
// seller views. Slightly stale numbers are fine here, so snapshots are
// cached; nothing in this package writes to the store.
package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/redisx"
)

type StatusRollup struct {
	Status     string `json:"status"`
	Count      int    `json:"count"`
	TotalCents int64  `json:"total_cents"`
}

type ChangeRollup struct {
	ChangeType string `json:"change_type"`
	Count      int    `json:"count"`
	NetChange  int64  `json:"net_change"`
}

type Stats struct {
	TotalUsers       int            `json:"total_users"`
	UsersByRole      map[string]int `json:"users_by_role"`
	TotalProducts    int            `json:"total_products"`
	LowStockProducts int            `json:"low_stock_products"`
	Orders           []StatusRollup `json:"order_statistics"`
	Inventory        []ChangeRollup `json:"inventory_statistics"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

type Aggregator struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
	Log   *zap.Logger

	LowStockThreshold int
}

// Snapshot serves the cached rollup when fresh enough, otherwise runs the
// five aggregate queries in parallel and recaches the result.
func (a *Aggregator) Snapshot(ctx context.Context) (Stats, error) {
	if a.Redis != nil {
		if s, err := a.Redis.Get(ctx, redisx.KeyDashboardStats).Result(); err == nil && s != "" {
			var st Stats
			if json.Unmarshal([]byte(s), &st) == nil {
				return st, nil
			}
		}
	}

	st := Stats{UsersByRole: make(map[string]int)}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := a.DB.Query(gctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				role string
				n    int
			)
			if err := rows.Scan(&role, &n); err != nil {
				return err
			}
			st.UsersByRole[role] = n
			st.TotalUsers += n
		}
		return rows.Err()
	})

	g.Go(func() error {
		return a.DB.QueryRow(gctx, `SELECT COUNT(*) FROM products`).Scan(&st.TotalProducts)
	})

	g.Go(func() error {
		return a.DB.QueryRow(gctx,
			`SELECT COUNT(*) FROM products WHERE enabled AND stock <= $1`,
			a.LowStockThreshold).Scan(&st.LowStockProducts)
	})

	g.Go(func() error {
		rows, err := a.DB.Query(gctx, `
			SELECT status, COUNT(*), COALESCE(SUM(total_cents), 0)
			FROM orders GROUP BY status ORDER BY status`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var ru StatusRollup
			if err := rows.Scan(&ru.Status, &ru.Count, &ru.TotalCents); err != nil {
				return err
			}
			st.Orders = append(st.Orders, ru)
		}
		return rows.Err()
	})

	g.Go(func() error {
		rows, err := a.DB.Query(gctx, `
			SELECT change_type, COUNT(*), COALESCE(SUM(new_stock - old_stock), 0)
			FROM inventory_logs GROUP BY change_type ORDER BY change_type`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var ru ChangeRollup
			if err := rows.Scan(&ru.ChangeType, &ru.Count, &ru.NetChange); err != nil {
				return err
			}
			st.Inventory = append(st.Inventory, ru)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	st.GeneratedAt = time.Now().UTC()

	if a.Redis != nil {
		b, _ := json.Marshal(st)
		if err := a.Redis.Set(ctx, redisx.KeyDashboardStats, b, redisx.TTLDashboardStats).Err(); err != nil {
			a.Log.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return st, nil
}
