package domain

import "strings"

// MinFieldLength is the shortest accepted username or name.
const MinFieldLength = 3

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Customer is a read-only view of a registered customer. The cart it owns
// lives in the registry and is reached through the cart service.
type Customer struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Role     Role   `json:"role"`
}

func (c Customer) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// HasAddress reports whether a delivery address is on file.
func (c Customer) HasAddress() bool {
	return strings.TrimSpace(c.Address) != ""
}
