package domain

import "errors"

var (
	ErrInvalidField      = errors.New("invalid field")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrAddressRequired   = errors.New("delivery address required")
	ErrForbidden         = errors.New("admin role required")
	ErrDuplicateRequest  = errors.New("duplicate request")
)
