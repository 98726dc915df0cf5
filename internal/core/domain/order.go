package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// CustomerRef identifies the customer an order was placed by, as they were
// at checkout time.
type CustomerRef struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Order is a snapshot of a cart at checkout. Lines and Total are fixed at
// creation; only Status and UpdatedAt change afterwards.
type Order struct {
	ID        int         `json:"id"`
	Customer  CustomerRef `json:"customer"`
	Lines     []CartLine  `json:"lines"`
	Total     Money       `json:"total"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Clone returns a copy that shares no slices with o.
func (o Order) Clone() Order {
	lines := make([]CartLine, len(o.Lines))
	copy(lines, o.Lines)
	o.Lines = lines
	return o
}

type LedgerEventKind string

const (
	LedgerEventOrderPlaced   LedgerEventKind = "order_placed"
	LedgerEventStatusChanged LedgerEventKind = "status_changed"
)

// LedgerEvent is emitted after the ledger changes, for fulfilment workers.
type LedgerEvent struct {
	Kind  LedgerEventKind
	Order Order
}
