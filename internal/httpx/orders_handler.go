package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/inventory"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/orders"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/redisx"
)

type OrdersHandler struct {
	Coordinator *orders.Coordinator
	Repo        *orders.Repo
	Redis       *redis.Client
	Log         *zap.Logger
}

type placeOrderReq struct {
	Products []orders.LineRequest `json:"products"`
}

type placeOrderResp struct {
	Message    string `json:"message"`
	OrderID    string `json:"order_id"`
	TotalCents int64  `json:"total_cents"`
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/orders", func(r chi.Router) {
		r.With(Require(RoleBuyer)).Post("/", h.placeOrder)
		r.With(Require(RoleBuyer)).Get("/my-orders", h.myOrders)
		r.With(Require(RoleBuyer, RoleAdmin)).Get("/{id}", h.getOrder)
		r.With(Require(RoleSeller)).Get("/seller-orders", h.sellerOrders)
		r.With(Require(RoleSeller, RoleAdmin)).Put("/{id}/status", h.updateStatus)
	})
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	order, err := h.Coordinator.PlaceOrder(r.Context(), id.UserID, req.Products)
	if err != nil {
		h.writePlacementError(w, err)
		return
	}

	// cache the fresh status so reads right after checkout skip the store
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
	_ = h.Redis.Set(r.Context(), statusKey, string(order.Status), redisx.TTLStatusCache).Err()

	writeJSON(w, http.StatusCreated, placeOrderResp{
		Message:    "order placed successfully",
		OrderID:    order.ID,
		TotalCents: order.TotalCents,
	})
}

// writePlacementError maps the coordinator's taxonomy onto status codes.
// Store-level failures stay opaque to the client.
func (h *OrdersHandler) writePlacementError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "products list is required"})
	case errors.Is(err, orders.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "each product needs a product_id and a quantity of at least 1"})
	default:
		var lf *orders.LineFailure
		if errors.As(err, &lf) {
			if errors.Is(lf.Reason, inventory.ErrInsufficientStock) {
				name := lf.ProductName
				if name == "" {
					name = lf.ProductID
				}
				writeJSON(w, http.StatusConflict, map[string]any{
					"error":           fmt.Sprintf("insufficient stock for %s, available: %d", name, lf.Available),
					"product_id":      lf.ProductID,
					"available_stock": lf.Available,
				})
				return
			}
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":      fmt.Sprintf("product %s is not available", lf.ProductID),
				"product_id": lf.ProductID,
			})
			return
		}
		h.Log.Error("order placement failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "order could not be placed"})
	}
}

// getOrder serves one order to its buyer, or to an admin.
func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	orderID := chi.URLParam(r, "id")

	o, err := h.Repo.Get(r.Context(), orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if err != nil {
		h.Log.Error("order lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "order unavailable"})
		return
	}
	if id.Role != RoleAdmin && o.BuyerID != id.UserID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your order"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	os, err := h.Repo.ListByBuyer(r.Context(), id.UserID)
	if err != nil {
		h.Log.Error("list buyer orders failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "orders unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": os})
}

func (h *OrdersHandler) sellerOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	os, err := h.Repo.ListBySeller(r.Context(), id.UserID)
	if err != nil {
		h.Log.Error("list seller orders failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "orders unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": os})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	status, ok := orders.ParseStatus(req.Status)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	err := h.Repo.UpdateStatus(r.Context(), orderID, status)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	case errors.Is(err, orders.ErrBadTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case err != nil:
		h.Log.Error("order status update failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "status update failed"})
		return
	}

	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Set(r.Context(), statusKey, string(status), redisx.TTLStatusCache).Err()

	writeJSON(w, http.StatusOK, map[string]string{"message": "order status updated"})
}
