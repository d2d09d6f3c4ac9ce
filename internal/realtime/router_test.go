package realtime

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/kafka"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/metrics"
)

type failConn struct{}

func (failConn) Send(Event) error { return errors.New("connection closed") }

func newTestRouter(g *Registry) *Router {
	return &Router{
		Registry: g,
		Origin:   "node-a",
		Log:      zap.NewNop(),
		Metrics:  metrics.NewRegistry(),
	}
}

func TestRouterDeliversOncePerConnAcrossRoomUnion(t *testing.T) {
	g := NewRegistry()
	c := &memConn{}
	g.BindUser(c, "s1")
	g.BindSellerRole(c)

	r := newTestRouter(g)
	ev := NewEvent(EventLowStockAlert, "node-a", "o1",
		[]string{UserRoom("s1"), RoomSellers},
		LowStockAlert{ProductID: "p1", ProductName: "widget", CurrentStock: 3})
	r.Publish(context.Background(), ev)

	if got := len(c.received()); got != 1 {
		t.Fatalf("delivered %d times, want exactly 1", got)
	}
}

func TestRouterPreservesEmissionOrder(t *testing.T) {
	g := NewRegistry()
	c := &memConn{}
	g.Register(c)

	r := newTestRouter(g)
	types := []string{EventStockUpdate, EventNewOrder, EventLowStockAlert}
	for _, typ := range types {
		r.Publish(context.Background(), NewEvent(typ, "node-a", "o1", []string{RoomBroadcast}, struct{}{}))
	}

	got := c.received()
	if len(got) != len(types) {
		t.Fatalf("delivered %d events, want %d", len(got), len(types))
	}
	for i, typ := range types {
		if got[i].Type != typ {
			t.Fatalf("event %d = %s, want %s", i, got[i].Type, typ)
		}
	}
}

func TestRouterDisconnectedMemberMissesEvent(t *testing.T) {
	g := NewRegistry()
	c := &memConn{}
	g.BindUser(c, "u1")
	g.Unbind(c)

	r := newTestRouter(g)
	r.Publish(context.Background(), NewEvent(EventNewOrder, "node-a", "o1", []string{UserRoom("u1")}, struct{}{}))

	if got := len(c.received()); got != 0 {
		t.Fatalf("disconnected conn received %d events", got)
	}
}

func TestRouterFailingConnDoesNotBlockOthers(t *testing.T) {
	g := NewRegistry()
	bad := failConn{}
	good := &memConn{}
	g.Register(bad)
	g.Register(good)

	r := newTestRouter(g)
	r.Publish(context.Background(), NewEvent(EventStockUpdate, "node-a", "", []string{RoomBroadcast}, struct{}{}))

	if got := len(good.received()); got != 1 {
		t.Fatalf("healthy conn received %d events, want 1", got)
	}
}

func TestBridgeSkipsOwnOrigin(t *testing.T) {
	g := NewRegistry()
	c := &memConn{}
	g.Register(c)
	r := newTestRouter(g)

	own := NewEvent(EventStockUpdate, "node-a", "", []string{RoomBroadcast}, struct{}{})
	if err := r.HandleBridge(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(own)}); err != nil {
		t.Fatalf("bridge: %v", err)
	}
	if got := len(c.received()); got != 0 {
		t.Fatalf("own-origin event re-delivered %d times", got)
	}

	remote := NewEvent(EventStockUpdate, "node-b", "", []string{RoomBroadcast}, struct{}{})
	if err := r.HandleBridge(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(remote)}); err != nil {
		t.Fatalf("bridge: %v", err)
	}
	if got := len(c.received()); got != 1 {
		t.Fatalf("remote event delivered %d times, want 1", got)
	}
}

func TestBridgeSwallowsUndecodableMessage(t *testing.T) {
	r := newTestRouter(NewRegistry())
	if err := r.HandleBridge(context.Background(), kafkago.Message{Value: []byte("not json")}); err != nil {
		t.Fatalf("poison message should be skipped, got %v", err)
	}
}
