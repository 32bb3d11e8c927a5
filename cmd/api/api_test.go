package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/cache/cachetest"
	"storefront/internal/domain/inventory"
	"storefront/internal/domain/orders"
	"storefront/internal/domain/products"
	"storefront/internal/domain/storage"
	"storefront/internal/domain/storage/memstore"
	"storefront/internal/events/eventstest"
	"storefront/internal/sales"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

type testApp struct {
	app     *application
	handler http.Handler
	events  *eventstest.Recorder
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithCache(t, nil)
}

// newTestAppWithCache wires the product cache to b; a nil b disables it.
func newTestAppWithCache(t *testing.T, b cache.Backend) *testApp {
	t.Helper()
	gen, err := orders.NewOrderNumberGenerator("api-test")
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()
	store := memstore.New(gen).Container()
	pc := cache.NewProductCache(b, time.Minute, logger)
	rec := &eventstest.Recorder{}

	app := &application{
		config: config{
			env:   "test",
			store: storeConfig{driver: "memory"},
			auth: authConfig{
				basic: basicConfig{user: "ops", pass: "secret"},
			},
		},
		store:         store,
		orders:        sales.NewOrderService(sales.NewStockLedger(store, logger), store.Orders, pc, rec, logger),
		productCache:  pc,
		publisher:     rec,
		logger:        logger,
		authenticator: auth.NewJWTAuthenticator("test-secret", "storefront", "storefront", time.Hour),
	}
	return &testApp{app: app, handler: app.mount(), events: rec}
}

func (ta *testApp) token(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := ta.app.authenticator.GenerateToken(userID, role)
	require.NoError(t, err)
	return tok
}

func (ta *testApp) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

func (ta *testApp) seed(t *testing.T, slug string, stock int, status inventory.Status) *products.Product {
	t.Helper()
	p, err := ta.app.store.Products.CreateProduct(context.Background(), &products.Product{
		Name: slug, Slug: slug, PriceCents: 1500, Stock: stock, Status: status,
	})
	require.NoError(t, err)
	return p
}

func (ta *testApp) stock(t *testing.T, id int64) *products.Product {
	t.Helper()
	p, err := ta.app.store.Products.GetProductByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

type errorBody struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Status  int                   `json:"status"`
	Error   *inventory.StockError `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func orderBody(lines ...inventory.LineItem) map[string]any {
	return map[string]any{
		"items":            lines,
		"shipping_address": "New Road, Kathmandu",
	}
}

// ==================== Products ====================

func TestListProducts_HidesInactive(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "visible", 3, "")
	ta.seed(t, "hidden", 3, inventory.StatusInactive)

	rec := ta.do(t, http.MethodGet, "/v1/products", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeData[ProductListResponse](t, rec)
	require.Len(t, got.Products, 1)
	assert.Equal(t, "visible", got.Products[0].Slug)
	assert.Equal(t, 1, got.Pagination.Total)
}

func TestListProducts_BadFilter(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodGet, "/v1/products?sort=random", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduct(t *testing.T) {
	ta := newTestApp(t)
	p := ta.seed(t, "ball", 3, "")
	hidden := ta.seed(t, "hidden", 3, inventory.StatusInactive)

	rec := ta.do(t, http.MethodGet, fmt.Sprintf("/v1/products/%d", p.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeData[products.Product](t, rec).Stock)

	rec = ta.do(t, http.MethodGet, fmt.Sprintf("/v1/products/%d", hidden.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ta.do(t, http.MethodGet, "/v1/products/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminProducts_CreateUpdateDelete(t *testing.T) {
	ta := newTestApp(t)
	admin := ta.token(t, 1, auth.RoleAdmin)

	rec := ta.do(t, http.MethodPost, "/v1/admin/products", map[string]any{
		"name":        "Trail Runner 2",
		"price_cents": 899900,
		"stock":       0,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeData[products.Product](t, rec)
	assert.Equal(t, "trail-runner-2", created.Slug)
	assert.Equal(t, inventory.StatusOutOfStock, created.Status)

	rec = ta.do(t, http.MethodPatch, fmt.Sprintf("/v1/admin/products/%d", created.ID), map[string]any{"stock": 12}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[products.Product](t, rec)
	assert.Equal(t, 12, updated.Stock)
	assert.Equal(t, inventory.StatusActive, updated.Status)

	rec = ta.do(t, http.MethodPatch, fmt.Sprintf("/v1/admin/products/%d", created.ID), map[string]any{"stock": -1}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, http.MethodPost, "/v1/admin/products", map[string]any{
		"name": "Trail Runner 2", "price_cents": 1,
	}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ta.do(t, http.MethodDelete, fmt.Sprintf("/v1/admin/products/%d", created.ID), nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ta.do(t, http.MethodDelete, fmt.Sprintf("/v1/admin/products/%d", created.ID), nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductCache_InvalidatedByStockChanges(t *testing.T) {
	backend := cachetest.NewBackend()
	ta := newTestAppWithCache(t, backend)
	p := ta.seed(t, "ball", 5, "")
	key := cache.GenerateKey("product", p.ID)
	customer := ta.token(t, 5, auth.RoleCustomer)
	admin := ta.token(t, 1, auth.RoleAdmin)

	detailStock := func() int {
		t.Helper()
		rec := ta.do(t, http.MethodGet, fmt.Sprintf("/v1/products/%d", p.ID), nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.True(t, backend.Has(key))
		return decodeData[products.Product](t, rec).Stock
	}
	assert.Equal(t, 5, detailStock())

	rec := ta.do(t, http.MethodPost, "/v1/orders", orderBody(inventory.LineItem{ProductID: p.ID, Quantity: 2}), customer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decodeData[orders.Order](t, rec)
	assert.False(t, backend.Has(key), "place")
	assert.Equal(t, 3, detailStock())

	rec = ta.do(t, http.MethodPost, fmt.Sprintf("/v1/orders/%d/cancel", placed.ID), nil, customer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, backend.Has(key), "cancel")
	assert.Equal(t, 5, detailStock())

	rec = ta.do(t, http.MethodPost, "/v1/orders", orderBody(inventory.LineItem{ProductID: p.ID, Quantity: 1}), customer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decodeData[orders.Order](t, rec)
	assert.Equal(t, 4, detailStock())

	rec = ta.do(t, http.MethodDelete, fmt.Sprintf("/v1/admin/orders/%d", second.ID), nil, admin)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.False(t, backend.Has(key), "delete")
	assert.Equal(t, 5, detailStock())

	rec = ta.do(t, http.MethodPatch, fmt.Sprintf("/v1/admin/products/%d", p.ID), map[string]any{"stock": 9}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, backend.Has(key), "admin edit")
	assert.Equal(t, 9, detailStock())
}

// ==================== Auth ====================

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodGet, "/v1/admin/orders", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ta.do(t, http.MethodGet, "/v1/admin/orders", nil, ta.token(t, 2, auth.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ta.do(t, http.MethodGet, "/v1/admin/orders", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ta.do(t, http.MethodGet, "/v1/admin/orders", nil, ta.token(t, 1, auth.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth_BasicAuth(t *testing.T) {
	ta := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.SetBasicAuth("ops", "secret")
	rec = httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "memory", decodeData[map[string]string](t, rec)["store"])
}

// ==================== Orders ====================

func TestPlaceOrder_Created(t *testing.T) {
	ta := newTestApp(t)
	a := ta.seed(t, "ball", 5, "")
	b := ta.seed(t, "net", 2, "")

	rec := ta.do(t, http.MethodPost, "/v1/orders", orderBody(
		inventory.LineItem{ProductID: a.ID, Quantity: 2},
		inventory.LineItem{ProductID: b.ID, Quantity: 2},
	), ta.token(t, 9, auth.RoleCustomer))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	o := decodeData[orders.Order](t, rec)
	assert.Equal(t, int64(9), o.UserID)
	assert.Equal(t, int64(4*1500), o.TotalCents)
	assert.Len(t, o.Items, 2)

	assert.Equal(t, 3, ta.stock(t, a.ID).Stock)
	assert.Equal(t, inventory.StatusOutOfStock, ta.stock(t, b.ID).Status)
	assert.Len(t, ta.events.Events(), 1)
}

func TestPlaceOrder_StockFailures(t *testing.T) {
	ta := newTestApp(t)
	ok := ta.seed(t, "ball", 5, "")
	low := ta.seed(t, "net", 1, "")
	off := ta.seed(t, "retired", 9, inventory.StatusInactive)
	customer := ta.token(t, 3, auth.RoleCustomer)

	tests := []struct {
		name       string
		lines      []inventory.LineItem
		wantStatus int
		wantKind   inventory.Kind
		wantID     int64
	}{
		{
			name:       "insufficient stock",
			lines:      []inventory.LineItem{{ProductID: ok.ID, Quantity: 1}, {ProductID: low.ID, Quantity: 2}},
			wantStatus: http.StatusConflict,
			wantKind:   inventory.KindInsufficientStock,
			wantID:     low.ID,
		},
		{
			name:       "inactive product",
			lines:      []inventory.LineItem{{ProductID: off.ID, Quantity: 1}},
			wantStatus: http.StatusBadRequest,
			wantKind:   inventory.KindProductInactive,
			wantID:     off.ID,
		},
		{
			name:       "unknown product",
			lines:      []inventory.LineItem{{ProductID: 4040, Quantity: 1}},
			wantStatus: http.StatusBadRequest,
			wantKind:   inventory.KindProductNotFound,
			wantID:     4040,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(t, http.MethodPost, "/v1/orders", orderBody(tt.lines...), customer)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			body := decodeError(t, rec)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantKind, body.Error.Kind)
			assert.Equal(t, tt.wantID, body.Error.ProductID)
		})
	}

	assert.Equal(t, 5, ta.stock(t, ok.ID).Stock)
	assert.Equal(t, 1, ta.stock(t, low.ID).Stock)
	assert.Empty(t, ta.events.Events())
}

func TestPlaceOrder_InsufficientCarriesQuantities(t *testing.T) {
	ta := newTestApp(t)
	p := ta.seed(t, "net", 1, "")

	rec := ta.do(t, http.MethodPost, "/v1/orders", orderBody(inventory.LineItem{ProductID: p.ID, Quantity: 3}), ta.token(t, 3, auth.RoleCustomer))
	require.Equal(t, http.StatusConflict, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "net", body.Error.Name)
	assert.Equal(t, 3, body.Error.Requested)
	assert.Equal(t, 1, body.Error.Available)
}

func TestPlaceOrder_InvalidPayload(t *testing.T) {
	ta := newTestApp(t)
	customer := ta.token(t, 3, auth.RoleCustomer)

	rec := ta.do(t, http.MethodPost, "/v1/orders", orderBody(), customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, http.MethodPost, "/v1/orders", orderBody(inventory.LineItem{ProductID: 1, Quantity: 0}), customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, http.MethodPost, "/v1/orders", map[string]any{"items": []any{}, "unknown": true}, customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, http.MethodPost, "/v1/orders", orderBody(inventory.LineItem{ProductID: 1, Quantity: inventory.MaxLineQuantity + 1}), customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder_MergedQuantityAboveLimit(t *testing.T) {
	ta := newTestApp(t)
	p := ta.seed(t, "ball", 5, "")

	half := inventory.MaxLineQuantity/2 + 1
	rec := ta.do(t, http.MethodPost, "/v1/orders", orderBody(
		inventory.LineItem{ProductID: p.ID, Quantity: half},
		inventory.LineItem{ProductID: p.ID, Quantity: half},
	), ta.token(t, 3, auth.RoleCustomer))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, 5, ta.stock(t, p.ID).Stock)
	assert.Empty(t, ta.events.Events())
}

type brokenUoW struct{}

func (brokenUoW) WithSalesTx(context.Context, func(*storage.SalesTx) error) error {
	return &inventory.TransactionError{Op: "begin transaction", Err: errors.New("too many connections")}
}

func TestPlaceOrder_TransactionFailureIs503(t *testing.T) {
	ta := newTestApp(t)
	p := ta.seed(t, "ball", 5, "")
	logger := zap.NewNop().Sugar()
	ta.app.orders = sales.NewOrderService(sales.NewStockLedger(brokenUoW{}, logger), ta.app.store.Orders, ta.app.productCache, ta.events, logger)

	rec := ta.do(t, http.MethodPost, "/v1/orders", orderBody(inventory.LineItem{ProductID: p.ID, Quantity: 1}), ta.token(t, 3, auth.RoleCustomer))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, 5, ta.stock(t, p.ID).Stock)
}

func TestOrderLifecycle_CancelAndDelete(t *testing.T) {
	ta := newTestApp(t)
	p := ta.seed(t, "ball", 4, "")
	customer := ta.token(t, 5, auth.RoleCustomer)
	admin := ta.token(t, 1, auth.RoleAdmin)

	rec := ta.do(t, http.MethodPost, "/v1/orders", orderBody(inventory.LineItem{ProductID: p.ID, Quantity: 4}), customer)
	require.Equal(t, http.StatusCreated, rec.Code)
	o := decodeData[orders.Order](t, rec)

	// Someone else's order looks missing.
	rec = ta.do(t, http.MethodGet, fmt.Sprintf("/v1/orders/%d", o.ID), nil, ta.token(t, 6, auth.RoleCustomer))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ta.do(t, http.MethodPatch, fmt.Sprintf("/v1/admin/orders/%d/status", o.ID), map[string]any{"status": "confirmed"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Customers can only cancel pending orders.
	rec = ta.do(t, http.MethodPost, fmt.Sprintf("/v1/orders/%d/cancel", o.ID), nil, customer)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ta.do(t, http.MethodPatch, fmt.Sprintf("/v1/admin/orders/%d/status", o.ID), map[string]any{
		"status": "cancelled", "cancelled_reason": "payment failed",
	}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, orders.StatusCancelled, decodeData[orders.Order](t, rec).Status)
	assert.Equal(t, 4, ta.stock(t, p.ID).Stock)
	assert.Equal(t, inventory.StatusActive, ta.stock(t, p.ID).Status)

	rec = ta.do(t, http.MethodPatch, fmt.Sprintf("/v1/admin/orders/%d/status", o.ID), map[string]any{"status": "shipping"}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ta.do(t, http.MethodDelete, fmt.Sprintf("/v1/admin/orders/%d", o.ID), nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 4, ta.stock(t, p.ID).Stock)

	rec = ta.do(t, http.MethodGet, fmt.Sprintf("/v1/admin/orders/%d", o.ID), nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelMyOrder_ReleasesStock(t *testing.T) {
	ta := newTestApp(t)
	p := ta.seed(t, "ball", 2, "")
	customer := ta.token(t, 5, auth.RoleCustomer)

	rec := ta.do(t, http.MethodPost, "/v1/orders", orderBody(inventory.LineItem{ProductID: p.ID, Quantity: 2}), customer)
	require.Equal(t, http.StatusCreated, rec.Code)
	o := decodeData[orders.Order](t, rec)

	rec = ta.do(t, http.MethodPost, fmt.Sprintf("/v1/orders/%d/cancel", o.ID), map[string]any{"reason": "ordered twice"}, customer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, ta.stock(t, p.ID).Stock)

	rec = ta.do(t, http.MethodGet, "/v1/orders?status=cancelled", nil, customer)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[OrderListResponse](t, rec)
	assert.Equal(t, 1, list.Pagination.Total)
	assert.Equal(t, "cancelled", list.Status)

	rec = ta.do(t, http.MethodGet, "/v1/orders?status=lost", nil, customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ==================== Docs ====================

func TestSwaggerDoc_CoversMountedRoutes(t *testing.T) {
	ta := newTestApp(t)
	routes, ok := ta.handler.(chi.Routes)
	require.True(t, ok)

	raw, err := swag.ReadDoc()
	require.NoError(t, err)
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	undocumented := []string{"/v1/debug/vars", "/v1/swagger/*"}
	err = chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if slices.Contains(undocumented, route) {
			return nil
		}
		path := strings.TrimSuffix(strings.TrimPrefix(route, "/v1"), "/")
		ops, found := doc.Paths[path]
		if assert.True(t, found, "missing path %s", path) {
			assert.Contains(t, ops, strings.ToLower(method), "missing %s %s", method, path)
		}
		return nil
	})
	require.NoError(t, err)
}
