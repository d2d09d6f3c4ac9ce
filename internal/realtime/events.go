package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TopicEvents carries every domain event across API instances. Each
// instance consumes it with its own group so all replicas see all events.
const TopicEvents = "market.events"

const (
	EventStockUpdate   = "stock_update"
	EventLowStockAlert = "low_stock_alert"
	EventNewOrder      = "new_order"
)

// Room names. A connection always sits in the broadcast room; the user room
// and the shared sellers room are joined explicitly.
const (
	RoomBroadcast = "broadcast"
	RoomSellers   = "sellers"
)

func UserRoom(userID string) string { return "user:" + userID }

// Event is the unit the router fans out: a typed payload addressed to a set
// of rooms. Origin names the instance that produced it so the bridge
// consumer can skip envelopes it already delivered locally.
type Event struct {
	ID         string          `json:"event_id"`
	Type       string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Origin     string          `json:"origin"`
	Key        string          `json:"key,omitempty"`
	Rooms      []string        `json:"rooms"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent stamps identity and time onto a payload. Events emitted from one
// placement share the same Key, which doubles as the Kafka partition key so
// their relative order survives the bridge.
func NewEvent(eventType, origin, key string, rooms []string, payload any) Event {
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Origin:     origin,
		Key:        key,
		Rooms:      rooms,
		Payload:    b,
	}
}

type StockUpdate struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	NewStock    int    `json:"new_stock"`
}

type LowStockAlert struct {
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	CurrentStock int    `json:"current_stock"`
}

type NewOrder struct {
	OrderID      string    `json:"order_id"`
	TotalCents   int64     `json:"total_cents"`
	ProductCount int       `json:"product_count"`
	PlacedAt     time.Time `json:"timestamp"`
}
