package realtime

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/kafka"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/metrics"
)

// BridgePublisher is the slice of the Kafka producer the router needs.
type BridgePublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Router fans domain events out to the union of their target rooms. Local
// connections get the event synchronously, in emission order; the bridge
// replicates it to the other instances' routers. There is no durable log and
// no replay; a member that is not connected simply misses the event.
type Router struct {
	Registry *Registry
	Bridge   BridgePublisher // nil disables cross-instance fan-out
	Origin   string
	Log      *zap.Logger
	Metrics  *metrics.Registry
}

func (r *Router) Publish(ctx context.Context, ev Event) {
	r.deliver(ev)
	if r.Bridge == nil {
		return
	}
	key := ev.Key
	if key == "" {
		key = ev.ID
	}
	r.Bridge.Publish([]byte(key), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(ev.Type)})
}

// deliver sends the event once per connection across the room union.
func (r *Router) deliver(ev Event) {
	seen := make(map[Conn]struct{})
	for _, room := range ev.Rooms {
		for _, c := range r.Registry.MembersOf(room) {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			if err := c.Send(ev); err != nil {
				r.Metrics.EventsDropped.Inc()
				r.Log.Debug("event delivery failed",
					zap.String("event_type", ev.Type),
					zap.String("room", room),
					zap.Error(err))
				continue
			}
			r.Metrics.EventsDelivered.Inc()
		}
	}
}

// HandleBridge is the Kafka consumer handler re-delivering events produced
// by other instances to this instance's local rooms.
func (r *Router) HandleBridge(ctx context.Context, m kafkago.Message) error {
	var ev Event
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		r.Log.Warn("bridge message undecodable", zap.Error(err))
		return nil // skip and commit; retrying cannot fix it
	}
	if ev.Origin == r.Origin {
		return nil // already delivered locally at publish time
	}
	r.deliver(ev)
	return nil
}
