package catalog

import "time"

type Product struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ref is the slice of a product the placement path needs: the price and
// name snapshot plus the owning seller for event addressing.
type Ref struct {
	ID         string
	SellerID   string
	Name       string
	PriceCents int64
	Enabled    bool
}

// Filters narrows catalog reads. Nil price bounds mean unbounded.
type Filters struct {
	Category      string
	Search        string
	MinPriceCents *int64
	MaxPriceCents *int64
	InStock       bool
}
