package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/catalog"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/inventory"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/metrics"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/realtime"
)

const (
	rollbackAttempts = 3
	rollbackBackoff  = 100 * time.Millisecond
)

// Reserver is the atomic stock primitive the coordinator drives, one call
// per cart line.
type Reserver interface {
	Reserve(ctx context.Context, productID string, qty int, reason string) (inventory.Reservation, error)
	Release(ctx context.Context, productID string, qty int, reason string) (int, error)
}

// ProductResolver supplies the price/name/seller snapshot for a line.
type ProductResolver interface {
	Resolve(ctx context.Context, id string) (catalog.Ref, error)
}

type OrderWriter interface {
	Insert(ctx context.Context, o *Order) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev realtime.Event)
}

// Coordinator turns a validated cart into a persisted order. Lines are
// reserved one by one in the order the buyer gave them; the first line that
// fails aborts the call and every earlier reservation is compensated before
// control returns. Only after the order row is durable do events go out.
type Coordinator struct {
	Stock    Reserver
	Products ProductResolver
	Orders   OrderWriter
	Router   EventPublisher
	Log      *zap.Logger
	Metrics  *metrics.Registry

	// Origin is stamped into emitted events so the fan-out bridge can tell
	// this instance's events from everyone else's.
	Origin            string
	LowStockThreshold int
	StoreTimeout      time.Duration
}

func (c *Coordinator) PlaceOrder(ctx context.Context, buyerID string, reqs []LineRequest) (*Order, error) {
	start := time.Now()
	if len(reqs) == 0 {
		return nil, ErrEmptyCart
	}
	for _, lr := range reqs {
		if lr.ProductID == "" || lr.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	orderID := uuid.NewString()
	reason := "order " + orderID

	var (
		refs     []catalog.Ref
		reserved []inventory.Reservation
	)

	fail := func(ref catalog.Ref, productID string, available int, cause error) error {
		c.rollback(ctx, reserved, reason)
		return &LineFailure{ProductID: productID, ProductName: ref.Name, Available: available, Reason: cause}
	}

	for _, lr := range reqs {
		opCtx, cancel := context.WithTimeout(ctx, c.StoreTimeout)
		ref, err := c.Products.Resolve(opCtx, lr.ProductID)
		if err != nil {
			cancel()
			if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fail(catalog.Ref{}, lr.ProductID, 0, inventory.ErrProductUnavailable)
			}
			c.rollback(ctx, reserved, reason)
			return nil, fmt.Errorf("resolve product %s: %w", lr.ProductID, err)
		}
		if !ref.Enabled {
			cancel()
			return nil, fail(ref, lr.ProductID, 0, inventory.ErrProductUnavailable)
		}

		res, err := c.Stock.Reserve(opCtx, lr.ProductID, lr.Quantity, reason)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, inventory.ErrInsufficientStock):
				return nil, fail(ref, lr.ProductID, res.PrevStock, inventory.ErrInsufficientStock)
			case errors.Is(err, inventory.ErrProductUnavailable),
				errors.Is(err, context.DeadlineExceeded):
				// a reservation that never answered in time counts as
				// unavailable; it is never left pending
				return nil, fail(ref, lr.ProductID, 0, inventory.ErrProductUnavailable)
			default:
				c.rollback(ctx, reserved, reason)
				return nil, fmt.Errorf("reserve %s: %w", lr.ProductID, err)
			}
		}
		refs = append(refs, ref)
		reserved = append(reserved, res)
	}

	order := &Order{ID: orderID, BuyerID: buyerID, Status: StatusPlaced, CreatedAt: time.Now().UTC()}
	for i, lr := range reqs {
		order.Lines = append(order.Lines, Line{
			ProductID:      lr.ProductID,
			Quantity:       lr.Quantity,
			UnitPriceCents: refs[i].PriceCents,
		})
		order.TotalCents += refs[i].PriceCents * int64(lr.Quantity)
	}

	pCtx, cancel := context.WithTimeout(ctx, c.StoreTimeout)
	err := c.Orders.Insert(pCtx, order)
	cancel()
	if err != nil {
		c.rollback(ctx, reserved, reason)
		return nil, fmt.Errorf("persist order: %w", err)
	}

	c.Metrics.OrdersPlaced.Inc()
	c.Metrics.PlacementLatencySec.Observe(time.Since(start).Seconds())
	c.emit(ctx, order, refs, reserved)
	return order, nil
}

// rollback re-increments stock for every reservation made in this call, in
// reverse order. It keeps going on per-line failure: one product failing to
// compensate must not strand the others. A line whose retries are exhausted
// is an operational incident; there is no safe automatic recovery here.
func (c *Coordinator) rollback(ctx context.Context, reserved []inventory.Reservation, reason string) {
	if len(reserved) == 0 {
		return
	}
	// compensation is mandatory even when the request context is done
	base := context.WithoutCancel(ctx)
	for i := len(reserved) - 1; i >= 0; i-- {
		res := reserved[i]
		var err error
		for attempt := 1; attempt <= rollbackAttempts; attempt++ {
			opCtx, cancel := context.WithTimeout(base, c.StoreTimeout)
			_, err = c.Stock.Release(opCtx, res.ProductID, res.Qty, reason+" rollback")
			cancel()
			if err == nil {
				break
			}
			time.Sleep(rollbackBackoff)
		}
		if err != nil {
			c.Metrics.RollbackFailures.Inc()
			c.Log.Error("stock rollback failed, ledger left inconsistent",
				zap.String("product_id", res.ProductID),
				zap.Int("quantity", res.Qty),
				zap.String("reason", reason),
				zap.Error(err))
		}
	}
}

type affected struct {
	ref  catalog.Ref
	prev int
	next int
}

// emit publishes this order's events in their required order: stock updates
// first, then the order notice to its sellers, then any low-stock alerts.
func (c *Coordinator) emit(ctx context.Context, order *Order, refs []catalog.Ref, reserved []inventory.Reservation) {
	// collapse duplicate cart lines into one entry per product
	var agg []*affected
	byProduct := make(map[string]*affected)
	for i, res := range reserved {
		if a, ok := byProduct[res.ProductID]; ok {
			a.next = res.NewStock
			continue
		}
		a := &affected{ref: refs[i], prev: res.PrevStock, next: res.NewStock}
		byProduct[res.ProductID] = a
		agg = append(agg, a)
	}

	for _, a := range agg {
		c.Router.Publish(ctx, realtime.NewEvent(realtime.EventStockUpdate, c.Origin, order.ID,
			[]string{realtime.RoomBroadcast},
			realtime.StockUpdate{ProductID: a.ref.ID, ProductName: a.ref.Name, NewStock: a.next}))
	}

	var sellerRooms []string
	seen := make(map[string]struct{})
	for _, a := range agg {
		if _, ok := seen[a.ref.SellerID]; ok {
			continue
		}
		seen[a.ref.SellerID] = struct{}{}
		sellerRooms = append(sellerRooms, realtime.UserRoom(a.ref.SellerID))
	}
	c.Router.Publish(ctx, realtime.NewEvent(realtime.EventNewOrder, c.Origin, order.ID, sellerRooms,
		realtime.NewOrder{
			OrderID:      order.ID,
			TotalCents:   order.TotalCents,
			ProductCount: len(order.Lines),
			PlacedAt:     order.CreatedAt,
		}))

	for _, a := range agg {
		if a.prev > c.LowStockThreshold && a.next <= c.LowStockThreshold {
			c.Router.Publish(ctx, realtime.NewEvent(realtime.EventLowStockAlert, c.Origin, order.ID,
				[]string{realtime.UserRoom(a.ref.SellerID), realtime.RoomSellers},
				realtime.LowStockAlert{ProductID: a.ref.ID, ProductName: a.ref.Name, CurrentStock: a.next}))
		}
	}
}
