package httpx

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/catalog"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/dashboard"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/inventory"
)

type AdminHandler struct {
	Dash      *dashboard.Aggregator
	Catalog   *catalog.Repo
	Inventory *inventory.Repo
	Log       *zap.Logger
}

func (h *AdminHandler) Register(r *chi.Mux) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(Require(RoleAdmin))
		r.Get("/dashboard", h.getDashboard)
		r.Put("/products/{id}/disable", h.disableProduct)
	})
}

func (h *AdminHandler) getDashboard(w http.ResponseWriter, r *http.Request) {
	st, err := h.Dash.Snapshot(r.Context())
	if err != nil {
		h.Log.Error("dashboard snapshot failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "dashboard unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dashboard": st})
}

// disableProduct pulls a product from catalog reads without touching its
// stock or its historical order references.
func (h *AdminHandler) disableProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

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

	if err := h.Catalog.SetEnabled(r.Context(), productID, false); err != nil {
		h.Log.Error("product disable failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "product could not be disabled"})
		return
	}
	if err := h.Inventory.LogChange(r.Context(), productID, inventory.ChangeAdjustment, p.Stock, p.Stock, "disabled by admin"); err != nil {
		h.Log.Warn("disable audit log failed", zap.String("product_id", productID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "product disabled"})
}
