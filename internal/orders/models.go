package orders

import "time"

// LineRequest is what the buyer submits: product and quantity, nothing
// price-related. Prices are always resolved server-side.
type LineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Line is a persisted order line. UnitPriceCents is a snapshot taken at
// placement time and never follows later product price changes.
type Line struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Order is immutable once persisted except for its status.
type Order struct {
	ID         string    `json:"id"`
	BuyerID    string    `json:"buyer_id"`
	Lines      []Line    `json:"lines"`
	TotalCents int64     `json:"total_cents"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
