package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl1809/shopcore/internal/adapter/storage"
	"github.com/rl1809/shopcore/internal/core/domain"
	"github.com/rl1809/shopcore/internal/core/service"
)

type testShop struct {
	router    http.Handler
	catalog   *service.CatalogService
	customers *service.CustomerRegistry
	carts     *service.CartService
	orders    *service.OrderService
}

func newTestShop(t *testing.T) *testShop {
	t.Helper()

	catalog := service.NewCatalogService(nil)
	for _, p := range []struct {
		name  string
		price domain.Money
	}{
		{"Shoes", 2000},
		{"Wine", 500},
		{"Phone", 50045},
	} {
		_, err := catalog.Register(p.name, p.price)
		require.NoError(t, err)
	}

	customers := service.NewCustomerRegistry(nil)
	_, err := customers.RegisterAdmin("admin", "Administrator")
	require.NoError(t, err)

	carts := service.NewCartService(catalog, customers, nil)
	orders := service.NewOrderService(customers, storage.NewMemoryAdapter(), 0)

	h := NewHTTPHandler(catalog, customers, carts, orders, nil)
	return &testShop{
		router:    NewRouter(h),
		catalog:   catalog,
		customers: customers,
		carts:     carts,
		orders:    orders,
	}
}

func (s *testShop) do(t *testing.T, method, path, username string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if username != "" {
		req.Header.Set(HeaderUsername, username)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	shop := newTestShop(t)

	rr := shop.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(HeaderRequestID))
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rr)["status"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	shop := newTestShop(t)

	rr := shop.do(t, http.MethodGet, "/api/products/99", "", nil, HeaderRequestID, "abc-123")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "abc-123", rr.Header().Get(HeaderRequestID))
	assert.Equal(t, "abc-123", decodeBody[ErrorResponse](t, rr).RequestID)
}

func TestProducts(t *testing.T) {
	shop := newTestShop(t)

	rr := shop.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	items := decodeBody[[]domain.CatalogItem](t, rr)
	require.Len(t, items, 3)
	assert.Equal(t, "Phone", items[2].Name)
	assert.Equal(t, domain.Money(50045), items[2].UnitPrice)

	rr = shop.do(t, http.MethodGet, "/api/products/2", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Wine", decodeBody[domain.CatalogItem](t, rr).Name)

	rr = shop.do(t, http.MethodGet, "/api/products/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegisterProduct(t *testing.T) {
	shop := newTestShop(t)
	_, err := shop.customers.Register("alice", "Alice")
	require.NoError(t, err)

	body := RegisterProductRequest{Name: "Socks", UnitPrice: 225}

	rr := shop.do(t, http.MethodPost, "/api/products", "alice", body)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = shop.do(t, http.MethodPost, "/api/products", "admin", body)
	require.Equal(t, http.StatusCreated, rr.Code)
	item := decodeBody[domain.CatalogItem](t, rr)
	assert.Equal(t, 4, item.ID)
	assert.Equal(t, domain.Money(225), item.UnitPrice)

	rr = shop.do(t, http.MethodPost, "/api/products", "admin", RegisterProductRequest{Name: "Gift", UnitPrice: -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSignup(t *testing.T) {
	shop := newTestShop(t)

	rr := shop.do(t, http.MethodPost, "/api/customers", "", SignupRequest{Username: "alice", Name: "Alice"})
	require.Equal(t, http.StatusCreated, rr.Code)
	customer := decodeBody[domain.Customer](t, rr)
	assert.Equal(t, 2, customer.ID)
	assert.Equal(t, domain.RoleCustomer, customer.Role)

	rr = shop.do(t, http.MethodPost, "/api/customers", "", SignupRequest{Username: "alice", Name: "Other"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = shop.do(t, http.MethodPost, "/api/customers", "", SignupRequest{Username: "al", Name: "Alice"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = shop.do(t, http.MethodGet, "/api/customers", "alice", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = shop.do(t, http.MethodGet, "/api/customers", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]domain.Customer](t, rr), 2)
}

func TestActorRequired(t *testing.T) {
	shop := newTestShop(t)

	rr := shop.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = shop.do(t, http.MethodGet, "/api/me", "nobody", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unknown user", decodeBody[ErrorResponse](t, rr).Error)
}

func TestProfileUpdates(t *testing.T) {
	shop := newTestShop(t)
	_, err := shop.customers.Register("alice", "Alice")
	require.NoError(t, err)

	rr := shop.do(t, http.MethodPut, "/api/me/address", "alice", CheckoutRequest{Address: "1 Main St"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1 Main St", decodeBody[domain.Customer](t, rr).Address)

	rr = shop.do(t, http.MethodPut, "/api/me/address", "alice", CheckoutRequest{Address: "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = shop.do(t, http.MethodPut, "/api/me/name", "alice", SignupRequest{Name: "Alice Liddell"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = shop.do(t, http.MethodGet, "/api/me", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decodeBody[domain.Customer](t, rr)
	assert.Equal(t, "Alice Liddell", me.Name)
	assert.Equal(t, "1 Main St", me.Address)
}

func TestCartRoutes(t *testing.T) {
	shop := newTestShop(t)
	_, err := shop.customers.Register("alice", "Alice")
	require.NoError(t, err)

	rr := shop.do(t, http.MethodGet, "/api/me/cart", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cart := decodeBody[CartResponse](t, rr)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, domain.Money(0), cart.Total)

	shop.do(t, http.MethodPost, "/api/me/cart/items", "alice", AddItemRequest{ProductID: 1})
	shop.do(t, http.MethodPost, "/api/me/cart/items", "alice", AddItemRequest{ProductID: 2})
	rr = shop.do(t, http.MethodPost, "/api/me/cart/items", "alice", AddItemRequest{ProductID: 1})
	require.Equal(t, http.StatusOK, rr.Code)
	cart = decodeBody[CartResponse](t, rr)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, domain.Money(4500), cart.Total)

	rr = shop.do(t, http.MethodPost, "/api/me/cart/items", "alice", AddItemRequest{ProductID: 42})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = shop.do(t, http.MethodDelete, "/api/me/cart/items/1", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cart = decodeBody[CartResponse](t, rr)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "Wine", cart.Lines[0].Item.Name)
	assert.Equal(t, domain.Money(500), cart.Total)
}

func TestCheckoutRoute(t *testing.T) {
	shop := newTestShop(t)
	_, err := shop.customers.Register("alice", "Alice")
	require.NoError(t, err)

	rr := shop.do(t, http.MethodPost, "/api/me/checkout", "alice", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)

	rr = shop.do(t, http.MethodPost, "/api/me/checkout", "alice", CheckoutRequest{Address: "1 Main St"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	shop.do(t, http.MethodPost, "/api/me/cart/items", "alice", AddItemRequest{ProductID: 3})
	rr = shop.do(t, http.MethodPost, "/api/me/checkout", "alice", nil, HeaderIdempotency, "req-1")
	require.Equal(t, http.StatusCreated, rr.Code)
	order := decodeBody[domain.Order](t, rr)
	assert.Equal(t, 1, order.ID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.Money(50045), order.Total)
	assert.Equal(t, "alice", order.Customer.Username)

	shop.do(t, http.MethodPost, "/api/me/cart/items", "alice", AddItemRequest{ProductID: 1})
	rr = shop.do(t, http.MethodPost, "/api/me/checkout", "alice", nil, HeaderIdempotency, "req-1")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = shop.do(t, http.MethodGet, "/api/me/orders", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]domain.Order](t, rr), 1)
}

func TestOrderAdminRoutes(t *testing.T) {
	shop := newTestShop(t)
	alice, err := shop.customers.Register("alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, shop.customers.SetAddress(alice.ID, "1 Main St"))
	_, err = shop.carts.AddItem(alice.ID, 2)
	require.NoError(t, err)
	shop.do(t, http.MethodPost, "/api/me/checkout", "alice", nil)

	rr := shop.do(t, http.MethodGet, "/api/orders", "alice", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = shop.do(t, http.MethodGet, "/api/orders", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]domain.Order](t, rr), 1)

	rr = shop.do(t, http.MethodGet, "/api/orders/7", "admin", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = shop.do(t, http.MethodPut, "/api/orders/1/status", "alice", StatusRequest{Status: "delivered"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = shop.do(t, http.MethodPut, "/api/orders/1/status", "admin", StatusRequest{Status: "shipped"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = shop.do(t, http.MethodPut, "/api/orders/1/status", "admin", StatusRequest{Status: "delivered"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.OrderStatusDelivered, decodeBody[domain.Order](t, rr).Status)

	rr = shop.do(t, http.MethodGet, "/api/orders/1", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.OrderStatusDelivered, decodeBody[domain.Order](t, rr).Status)
}

func TestStrictTransitionsRoute(t *testing.T) {
	catalog := service.NewCatalogService(nil)
	_, err := catalog.Register("Shoes", 2000)
	require.NoError(t, err)
	customers := service.NewCustomerRegistry(nil)
	_, err = customers.RegisterAdmin("admin", "Administrator")
	require.NoError(t, err)
	alice, err := customers.Register("alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, customers.SetAddress(alice.ID, "1 Main St"))

	carts := service.NewCartService(catalog, customers, nil)
	orders := service.NewOrderService(customers, nil, 0, service.WithTransitionPolicy(domain.StrictTransitions))
	shop := &testShop{router: NewRouter(NewHTTPHandler(catalog, customers, carts, orders, nil))}

	_, err = carts.AddItem(alice.ID, 1)
	require.NoError(t, err)
	shop.do(t, http.MethodPost, "/api/me/checkout", "alice", nil)

	rr := shop.do(t, http.MethodPut, "/api/orders/1/status", "admin", StatusRequest{Status: "CANCELLED"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = shop.do(t, http.MethodPut, "/api/orders/1/status", "admin", StatusRequest{Status: "DELIVERED"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRecovererReturns500(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewHTTPHandler(nil, nil, nil, nil, zap.New(core))

	r := chi.NewRouter()
	r.Use(h.middlewares()...)
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	requestID := rr.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, requestID)

	panics := logs.FilterMessage("panic").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "boom", panics[0].ContextMap()["panic"])
	assert.Equal(t, requestID, panics[0].ContextMap()["request_id"])

	access := logs.FilterMessage("request").All()
	require.Len(t, access, 1)
	assert.Equal(t, int64(http.StatusInternalServerError), access[0].ContextMap()["status"])
}
