package domain

// CatalogItem is a sellable product. It never changes after registration.
type CatalogItem struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	UnitPrice Money  `json:"unitPrice"`
}
