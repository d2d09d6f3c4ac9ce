package redisx

import "time"

const (
	// Cached admin dashboard rollup: dash:stats -> JSON snapshot.
	KeyDashboardStats = "dash:stats"

	// Cached order status: order_status:{order_id} -> status string.
	KeyOrderStatus = "order_status:%s"
)

var (
	TTLDashboardStats = 30 * time.Second
	TTLStatusCache    = 5 * time.Minute
)
