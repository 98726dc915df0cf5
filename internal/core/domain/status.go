package domain

import (
	"fmt"
	"strings"
)

var knownStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus matches name case-insensitively against the known statuses.
// Surrounding whitespace is not stripped.
func ParseOrderStatus(name string) (OrderStatus, error) {
	candidate := OrderStatus(strings.ToUpper(name))
	for _, s := range knownStatuses {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, name)
}

// IsTerminal reports whether no further fulfilment happens in this status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// TransitionPolicy decides whether an order may move from one status to another.
type TransitionPolicy func(from, to OrderStatus) error

// PermissiveTransitions accepts every transition between known statuses.
func PermissiveTransitions(from, to OrderStatus) error {
	return nil
}

// StrictTransitions only lets a pending order become delivered or cancelled.
// Setting the current status again is accepted.
func StrictTransitions(from, to OrderStatus) error {
	if from == to {
		return nil
	}
	if from == OrderStatusPending && to.IsTerminal() {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}
