package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/catalog"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/inventory"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/orders"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/realtime"
)

// CatalogStore is the slice of the catalog repo the products handler drives.
type CatalogStore interface {
	List(ctx context.Context, f catalog.Filters) ([]catalog.Product, error)
	Categories(ctx context.Context) ([]string, error)
	ListBySeller(ctx context.Context, sellerID string) ([]catalog.Product, error)
	Get(ctx context.Context, id string) (catalog.Product, error)
	Create(ctx context.Context, p *catalog.Product) error
	Update(ctx context.Context, id string, u catalog.Update) error
}

// StockEditor covers the manual stock mutations; the conditional
// reserve/release path never passes through here.
type StockEditor interface {
	SetStock(ctx context.Context, productID string, newStock int, reason string) (int, error)
	LogChange(ctx context.Context, productID, changeType string, oldStock, newStock int, reason string) error
}

type ProductsHandler struct {
	Catalog   CatalogStore
	Inventory StockEditor
	Router    orders.EventPublisher
	Log       *zap.Logger

	Origin            string
	LowStockThreshold int
}

type createProductReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
	Category    string `json:"category"`
}

type updateProductReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents"`
	Stock       *int    `json:"stock"`
	Category    *string `json:"category"`
}

func (u *updateProductReq) valid() bool {
	if u.Name != nil && *u.Name == "" {
		return false
	}
	if u.Category != nil && *u.Category == "" {
		return false
	}
	if u.PriceCents != nil && *u.PriceCents < 0 {
		return false
	}
	if u.Stock != nil && *u.Stock < 0 {
		return false
	}
	return true
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/categories", h.categories)
		r.With(Require(RoleSeller)).Get("/my-products", h.myProducts)
		r.With(Require(RoleSeller, RoleAdmin)).Post("/", h.create)
		r.With(Require(RoleSeller, RoleAdmin)).Put("/{id}", h.update)
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filters{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		InStock:  q.Get("in_stock") == "true",
	}
	if v := q.Get("min_price_cents"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.MinPriceCents = &n
		}
	}
	if v := q.Get("max_price_cents"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.MaxPriceCents = &n
		}
	}

	ps, err := h.Catalog.List(r.Context(), f)
	if err != nil {
		h.Log.Error("catalog list failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": ps})
}

func (h *ProductsHandler) categories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Catalog.Categories(r.Context())
	if err != nil {
		h.Log.Error("categories failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cs})
}

func (h *ProductsHandler) myProducts(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	ps, err := h.Catalog.ListBySeller(r.Context(), id.UserID)
	if err != nil {
		h.Log.Error("seller products failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": ps})
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Name == "" || req.Category == "" || req.PriceCents < 0 || req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid fields"})
		return
	}

	p := catalog.Product{
		SellerID:    id.UserID,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Category:    req.Category,
	}
	if err := h.Catalog.Create(r.Context(), &p); err != nil {
		h.Log.Error("product create failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "product could not be created"})
		return
	}
	if err := h.Inventory.LogChange(r.Context(), p.ID, inventory.ChangeRestock, 0, p.Stock, "initial stock"); err != nil {
		h.Log.Warn("initial stock log failed", zap.String("product_id", p.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":    "product created",
		"product_id": p.ID,
	})
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	productID := chi.URLParam(r, "id")

	var req updateProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if !req.valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid fields"})
		return
	}

	p, err := h.Catalog.Get(r.Context(), productID)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	if err != nil {
		h.Log.Error("product lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
		return
	}
	if id.Role != RoleAdmin && p.SellerID != id.UserID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your product"})
		return
	}

	err = h.Catalog.Update(r.Context(), productID, catalog.Update{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Category:    req.Category,
	})
	if err != nil {
		h.Log.Error("product update failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "product could not be updated"})
		return
	}

	// Stock goes through the inventory unit, which swaps the value in one
	// atomic statement and hands back the level it replaced. Reservations
	// landing around the edit are never clobbered by a stale read.
	if req.Stock != nil {
		oldStock, err := h.Inventory.SetStock(r.Context(), productID, *req.Stock, "manual update")
		if err != nil {
			h.Log.Error("stock update failed", zap.String("product_id", productID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stock could not be updated"})
			return
		}
		if oldStock != *req.Stock {
			h.publishStockEdit(r.Context(), p, oldStock, *req.Stock)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "product updated"})
}

// publishStockEdit pushes the same live events the order path produces, so
// catalog viewers and the owning seller stay current. Crossing detection uses
// the atomically observed old stock.
func (h *ProductsHandler) publishStockEdit(ctx context.Context, p catalog.Product, oldStock, newStock int) {
	h.Router.Publish(ctx, realtime.NewEvent(realtime.EventStockUpdate, h.Origin, p.ID,
		[]string{realtime.RoomBroadcast},
		realtime.StockUpdate{ProductID: p.ID, ProductName: p.Name, NewStock: newStock}))

	if oldStock > h.LowStockThreshold && newStock <= h.LowStockThreshold {
		h.Router.Publish(ctx, realtime.NewEvent(realtime.EventLowStockAlert, h.Origin, p.ID,
			[]string{realtime.UserRoom(p.SellerID), realtime.RoomSellers},
			realtime.LowStockAlert{ProductID: p.ID, ProductName: p.Name, CurrentStock: newStock}))
	}
}
