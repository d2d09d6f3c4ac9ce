package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/catalog"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/realtime"
)

type fakeCatalog struct {
	products map[string]catalog.Product
	updates  []catalog.Update
}

func (f *fakeCatalog) List(context.Context, catalog.Filters) ([]catalog.Product, error) {
	return nil, nil
}

func (f *fakeCatalog) Categories(context.Context) ([]string, error) { return nil, nil }

func (f *fakeCatalog) ListBySeller(context.Context, string) ([]catalog.Product, error) {
	return nil, nil
}

func (f *fakeCatalog) Get(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) Create(_ context.Context, p *catalog.Product) error {
	p.ID = "p-new"
	return nil
}

func (f *fakeCatalog) Update(_ context.Context, id string, u catalog.Update) error {
	f.updates = append(f.updates, u)
	return nil
}

type fakeStockEditor struct {
	oldStock int
	sets     []int
}

func (f *fakeStockEditor) SetStock(_ context.Context, productID string, newStock int, reason string) (int, error) {
	f.sets = append(f.sets, newStock)
	return f.oldStock, nil
}

func (f *fakeStockEditor) LogChange(context.Context, string, string, int, int, string) error {
	return nil
}

type capturePublisher struct{ events []realtime.Event }

func (p *capturePublisher) Publish(_ context.Context, ev realtime.Event) {
	p.events = append(p.events, ev)
}

type productsFixture struct {
	catalog *fakeCatalog
	stock   *fakeStockEditor
	pub     *capturePublisher
	mux     *chi.Mux
}

func newProductsFixture(products map[string]catalog.Product) *productsFixture {
	f := &productsFixture{
		catalog: &fakeCatalog{products: products},
		stock:   &fakeStockEditor{},
		pub:     &capturePublisher{},
	}
	h := &ProductsHandler{
		Catalog:           f.catalog,
		Inventory:         f.stock,
		Router:            f.pub,
		Log:               zap.NewNop(),
		Origin:            "node-test",
		LowStockThreshold: 5,
	}
	f.mux = chi.NewRouter()
	f.mux.Use(WithIdentity)
	h.Register(f.mux)
	return f
}

func doRequest(t *testing.T, h http.Handler, method, path, userID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("X-User-Id", userID)
	req.Header.Set("X-User-Role", role)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sellerProduct(id, seller string, stock int) catalog.Product {
	return catalog.Product{ID: id, SellerID: seller, Name: "widget", PriceCents: 100, Stock: stock, Category: "tools", Enabled: true}
}

func TestUpdateProductRejectsNegativeStock(t *testing.T) {
	f := newProductsFixture(map[string]catalog.Product{"p1": sellerProduct("p1", "s1", 10)})

	rec := doRequest(t, f.mux, http.MethodPut, "/products/p1", "s1", "seller",
		map[string]any{"stock": -5})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(f.stock.sets) != 0 || len(f.catalog.updates) != 0 {
		t.Fatal("negative stock reached the store")
	}
}

func TestUpdateProductRejectsNegativePrice(t *testing.T) {
	f := newProductsFixture(map[string]catalog.Product{"p1": sellerProduct("p1", "s1", 10)})

	rec := doRequest(t, f.mux, http.MethodPut, "/products/p1", "s1", "seller",
		map[string]any{"price_cents": -100})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(f.catalog.updates) != 0 {
		t.Fatal("negative price reached the store")
	}
}

func TestUpdateProductOwnership(t *testing.T) {
	f := newProductsFixture(map[string]catalog.Product{"p1": sellerProduct("p1", "s1", 10)})

	rec := doRequest(t, f.mux, http.MethodPut, "/products/p1", "s2", "seller",
		map[string]any{"name": "renamed"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if len(f.catalog.updates) != 0 {
		t.Fatal("another seller's update reached the store")
	}
}

func TestUpdateProductAdminBypassesOwnership(t *testing.T) {
	f := newProductsFixture(map[string]catalog.Product{"p1": sellerProduct("p1", "s1", 10)})

	rec := doRequest(t, f.mux, http.MethodPut, "/products/p1", "a1", "admin",
		map[string]any{"name": "renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(f.catalog.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(f.catalog.updates))
	}
}

func TestUpdateProductStockEditEmitsEvents(t *testing.T) {
	f := newProductsFixture(map[string]catalog.Product{"p1": sellerProduct("p1", "s1", 6)})
	f.stock.oldStock = 6

	// 6 -> 4 crosses the threshold of 5
	rec := doRequest(t, f.mux, http.MethodPut, "/products/p1", "s1", "seller",
		map[string]any{"stock": 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(f.stock.sets) != 1 || f.stock.sets[0] != 4 {
		t.Fatalf("stock writes = %v, want [4]", f.stock.sets)
	}

	if len(f.pub.events) != 2 {
		t.Fatalf("emitted %d events, want stock_update and low_stock_alert", len(f.pub.events))
	}
	if f.pub.events[0].Type != realtime.EventStockUpdate {
		t.Fatalf("event 0 = %s, want %s", f.pub.events[0].Type, realtime.EventStockUpdate)
	}
	alert := f.pub.events[1]
	if alert.Type != realtime.EventLowStockAlert {
		t.Fatalf("event 1 = %s, want %s", alert.Type, realtime.EventLowStockAlert)
	}
	rooms := map[string]bool{}
	for _, r := range alert.Rooms {
		rooms[r] = true
	}
	if !rooms[realtime.UserRoom("s1")] || !rooms[realtime.RoomSellers] {
		t.Fatalf("alert rooms = %v, want owner and sellers rooms", alert.Rooms)
	}
}

func TestUpdateProductNoAlertWithoutCrossing(t *testing.T) {
	f := newProductsFixture(map[string]catalog.Product{"p1": sellerProduct("p1", "s1", 4)})
	f.stock.oldStock = 4

	if rec := doRequest(t, f.mux, http.MethodPut, "/products/p1", "s1", "seller",
		map[string]any{"stock": 2}); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	for _, ev := range f.pub.events {
		if ev.Type == realtime.EventLowStockAlert {
			t.Fatal("alert emitted without a threshold crossing")
		}
	}
}

func TestUpdateProductUnchangedStockEmitsNothing(t *testing.T) {
	f := newProductsFixture(map[string]catalog.Product{"p1": sellerProduct("p1", "s1", 4)})
	f.stock.oldStock = 4

	if rec := doRequest(t, f.mux, http.MethodPut, "/products/p1", "s1", "seller",
		map[string]any{"stock": 4}); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(f.pub.events) != 0 {
		t.Fatalf("emitted %d events for an unchanged stock level", len(f.pub.events))
	}
}

func TestCreateProductRejectsInvalidFields(t *testing.T) {
	f := newProductsFixture(nil)

	for _, body := range []map[string]any{
		{"name": "", "category": "tools", "price_cents": 100, "stock": 1},
		{"name": "widget", "category": "tools", "price_cents": -1, "stock": 1},
		{"name": "widget", "category": "tools", "price_cents": 100, "stock": -1},
	} {
		rec := doRequest(t, f.mux, http.MethodPost, "/products", "s1", "seller", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %v: status = %d, want 400", body, rec.Code)
		}
	}
}
