package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rl1809/shopcore/internal/core/domain"
	"github.com/rl1809/shopcore/internal/core/service"
)

type HTTPHandler struct {
	catalog   *service.CatalogService
	customers *service.CustomerRegistry
	carts     *service.CartService
	orders    *service.OrderService
	logger    *zap.Logger
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

type CartResponse struct {
	Lines []domain.CartLine `json:"lines"`
	Total domain.Money      `json:"total"`
}

type RegisterProductRequest struct {
	Name      string       `json:"name"`
	UnitPrice domain.Money `json:"unitPrice"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

type AddItemRequest struct {
	ProductID int `json:"productId"`
}

type CheckoutRequest struct {
	Address string `json:"address"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

func NewHTTPHandler(
	catalog *service.CatalogService,
	customers *service.CustomerRegistry,
	carts *service.CartService,
	orders *service.OrderService,
	logger *zap.Logger,
) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		catalog:   catalog,
		customers: customers,
		carts:     carts,
		orders:    orders,
		logger:    logger,
	}
}

func NewRouter(h *HTTPHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(h.middlewares()...)

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Post("/customers", h.Signup)

		r.Group(func(r chi.Router) {
			r.Use(h.requireActor)

			r.Get("/me", h.Profile)
			r.Put("/me/address", h.SetAddress)
			r.Put("/me/name", h.SetName)
			r.Get("/me/cart", h.GetCart)
			r.Post("/me/cart/items", h.AddItem)
			r.Delete("/me/cart/items/{productId}", h.RemoveItem)
			r.Post("/me/checkout", h.Checkout)
			r.Get("/me/orders", h.MyOrders)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)

				r.Post("/products", h.RegisterProduct)
				r.Get("/customers", h.ListCustomers)
				r.Get("/orders", h.ListOrders)
				r.Get("/orders/{id}", h.GetOrder)
				r.Put("/orders/{id}/status", h.SetOrderStatus)
			})
		})
	})

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.List())
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.catalog.LookupByID(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) RegisterProduct(w http.ResponseWriter, r *http.Request) {
	var req RegisterProductRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.catalog.Register(req.Name, req.UnitPrice)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *HTTPHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decode(w, r, &req) {
		return
	}

	customer, err := h.customers.Register(req.Username, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (h *HTTPHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.customers.List())
}

func (h *HTTPHandler) Profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actorFrom(r.Context()))
}

func (h *HTTPHandler) SetAddress(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Address) == "" {
		writeMessage(w, r, http.StatusBadRequest, "address must not be blank")
		return
	}

	h.updateProfile(w, r, func(id int) error {
		return h.customers.SetAddress(id, req.Address)
	})
}

func (h *HTTPHandler) SetName(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decode(w, r, &req) {
		return
	}

	h.updateProfile(w, r, func(id int) error {
		return h.customers.SetName(id, req.Name)
	})
}

func (h *HTTPHandler) updateProfile(w http.ResponseWriter, r *http.Request, update func(id int) error) {
	actor := actorFrom(r.Context())
	if err := update(actor.ID); err != nil {
		h.writeError(w, r, err)
		return
	}

	customer, err := h.customers.FindByID(actor.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.carts.Lines(actorFrom(r.Context()).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(lines))
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decode(w, r, &req) {
		return
	}

	lines, err := h.carts.AddItem(actorFrom(r.Context()).ID, req.ProductID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(lines))
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}

	lines, err := h.carts.RemoveItem(actorFrom(r.Context()).ID, productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(lines))
}

// Checkout places an order for the caller's cart. A customer without an
// address on file must send one in the body.
func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := actorFrom(r.Context())
	if err := ensureAddress(h.customers, actor, req.Address); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.orders.Checkout(r.Context(), actor.ID, r.Header.Get(HeaderIdempotency))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *HTTPHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.orders.OrdersFor(actorFrom(r.Context()).ID)
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orders.History())
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orders.FindByID(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.orders.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func newCartResponse(lines []domain.CartLine) CartResponse {
	resp := CartResponse{Lines: lines}
	if resp.Lines == nil {
		resp.Lines = []domain.CartLine{}
	}
	for _, line := range lines {
		resp.Total += line.LineTotal
	}
	return resp
}

// ensureAddress records address for a customer who has none on file.
func ensureAddress(customers *service.CustomerRegistry, actor domain.Customer, address string) error {
	if actor.HasAddress() {
		return nil
	}
	if strings.TrimSpace(address) == "" {
		return domain.ErrAddressRequired
	}
	return customers.SetAddress(actor.ID, address)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidField), errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateUsername), errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAddressRequired):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		message = "internal error"
	}
	writeMessage(w, r, status, message)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     message,
		RequestID: GetRequestID(r.Context()),
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "invalid "+param)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
