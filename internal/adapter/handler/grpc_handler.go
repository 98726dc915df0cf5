package handler

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/shopcore/internal/core/domain"
	"github.com/rl1809/shopcore/internal/core/service"
)

// MetadataUsername carries the caller's username on gRPC requests.
const MetadataUsername = "x-username"

const storefrontServiceName = "shopcore.v1.Storefront"

type CartItemRequest struct {
	ProductID int `json:"productId"`
}

type CheckoutRPCRequest struct {
	RequestID string `json:"requestId"`
	Address   string `json:"address,omitempty"`
}

type GetOrderRequest struct {
	OrderID int `json:"orderId"`
}

type SetOrderStatusRequest struct {
	OrderID int    `json:"orderId"`
	Status  string `json:"status"`
}

// StorefrontServer is the gRPC surface of the shop.
type StorefrontServer interface {
	AddItem(context.Context, *CartItemRequest) (*CartResponse, error)
	RemoveItem(context.Context, *CartItemRequest) (*CartResponse, error)
	Checkout(context.Context, *CheckoutRPCRequest) (*domain.Order, error)
	GetOrder(context.Context, *GetOrderRequest) (*domain.Order, error)
	SetOrderStatus(context.Context, *SetOrderStatusRequest) (*domain.Order, error)
}

type GRPCHandler struct {
	customers *service.CustomerRegistry
	carts     *service.CartService
	orders    *service.OrderService
	logger    *zap.Logger
}

func NewGRPCHandler(customers *service.CustomerRegistry, carts *service.CartService, orders *service.OrderService, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{
		customers: customers,
		carts:     carts,
		orders:    orders,
		logger:    logger,
	}
}

func RegisterStorefrontServer(s grpc.ServiceRegistrar, srv StorefrontServer) {
	s.RegisterService(&storefrontServiceDesc, srv)
}

func (h *GRPCHandler) AddItem(ctx context.Context, req *CartItemRequest) (*CartResponse, error) {
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}

	lines, err := h.carts.AddItem(actor.ID, req.ProductID)
	if err != nil {
		return nil, h.statusError(err)
	}
	resp := newCartResponse(lines)
	return &resp, nil
}

func (h *GRPCHandler) RemoveItem(ctx context.Context, req *CartItemRequest) (*CartResponse, error) {
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}

	lines, err := h.carts.RemoveItem(actor.ID, req.ProductID)
	if err != nil {
		return nil, h.statusError(err)
	}
	resp := newCartResponse(lines)
	return &resp, nil
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *CheckoutRPCRequest) (*domain.Order, error) {
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := ensureAddress(h.customers, actor, req.Address); err != nil {
		return nil, h.statusError(err)
	}

	order, err := h.orders.Checkout(ctx, actor.ID, req.RequestID)
	if err != nil {
		return nil, h.statusError(err)
	}
	return &order, nil
}

// GetOrder returns an order to its owner or to an admin.
func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*domain.Order, error) {
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}

	order, err := h.orders.FindByID(req.OrderID)
	if err != nil {
		return nil, h.statusError(err)
	}
	if !actor.IsAdmin() && order.Customer.ID != actor.ID {
		return nil, h.statusError(domain.ErrForbidden)
	}
	return &order, nil
}

func (h *GRPCHandler) SetOrderStatus(ctx context.Context, req *SetOrderStatusRequest) (*domain.Order, error) {
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, h.statusError(domain.ErrForbidden)
	}

	order, err := h.orders.SetStatus(ctx, req.OrderID, req.Status)
	if err != nil {
		return nil, h.statusError(err)
	}
	return &order, nil
}

func (h *GRPCHandler) actor(ctx context.Context) (domain.Customer, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(MetadataUsername)
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return domain.Customer{}, status.Error(codes.Unauthenticated, "missing metadata: "+MetadataUsername)
	}

	actor, err := h.customers.FindByUsername(strings.TrimSpace(values[0]))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Customer{}, status.Error(codes.Unauthenticated, "unknown user")
	}
	if err != nil {
		return domain.Customer{}, h.statusError(err)
	}
	return actor, nil
}

func (h *GRPCHandler) statusError(err error) error {
	code := codeFor(err)
	if code == codes.Internal {
		h.logger.Error("rpc failed", zap.Error(err))
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrInvalidField), errors.Is(err, domain.ErrInvalidStatus):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrForbidden):
		return codes.PermissionDenied
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrDuplicateUsername), errors.Is(err, domain.ErrDuplicateRequest):
		return codes.AlreadyExists
	case errors.Is(err, domain.ErrAddressRequired),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrIllegalTransition):
		return codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

func unaryHandler[Req any, Resp any](call func(StorefrontServer, context.Context, *Req) (Resp, error), method string) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + storefrontServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StorefrontServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(StorefrontServer), ctx, req.(*Req))
		})
	}
}

var storefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: storefrontServiceName,
	HandlerType: (*StorefrontServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddItem", Handler: unaryHandler(StorefrontServer.AddItem, "AddItem")},
		{MethodName: "RemoveItem", Handler: unaryHandler(StorefrontServer.RemoveItem, "RemoveItem")},
		{MethodName: "Checkout", Handler: unaryHandler(StorefrontServer.Checkout, "Checkout")},
		{MethodName: "GetOrder", Handler: unaryHandler(StorefrontServer.GetOrder, "GetOrder")},
		{MethodName: "SetOrderStatus", Handler: unaryHandler(StorefrontServer.SetOrderStatus, "SetOrderStatus")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shopcore/v1/storefront",
}

// StorefrontClient calls the storefront service using the JSON codec.
type StorefrontClient struct {
	cc grpc.ClientConnInterface
}

func NewStorefrontClient(cc grpc.ClientConnInterface) *StorefrontClient {
	return &StorefrontClient{cc: cc}
}

func (c *StorefrontClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+storefrontServiceName+"/"+method, in, out, opts...)
}

func (c *StorefrontClient) AddItem(ctx context.Context, in *CartItemRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	out := new(CartResponse)
	if err := c.invoke(ctx, "AddItem", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StorefrontClient) RemoveItem(ctx context.Context, in *CartItemRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	out := new(CartResponse)
	if err := c.invoke(ctx, "RemoveItem", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StorefrontClient) Checkout(ctx context.Context, in *CheckoutRPCRequest, opts ...grpc.CallOption) (*domain.Order, error) {
	out := new(domain.Order)
	if err := c.invoke(ctx, "Checkout", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StorefrontClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*domain.Order, error) {
	out := new(domain.Order)
	if err := c.invoke(ctx, "GetOrder", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StorefrontClient) SetOrderStatus(ctx context.Context, in *SetOrderStatusRequest, opts ...grpc.CallOption) (*domain.Order, error) {
	out := new(domain.Order)
	if err := c.invoke(ctx, "SetOrderStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WithUsername attaches the caller's username to an outgoing context.
func WithUsername(ctx context.Context, username string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, MetadataUsername, username)
}
