package domain

// CartLine is one consolidated entry of a cart.
type CartLine struct {
	Item      CatalogItem `json:"item"`
	Quantity  int         `json:"quantity"`
	LineTotal Money       `json:"lineTotal"`
}

// Cart holds at most one line per catalog item, in insertion order.
// A Cart is not safe for concurrent use.
type Cart struct {
	lines []CartLine
}

// AddItem increments the quantity of the item's line, or appends a new line
// with quantity 1. The line total is recomputed from the unit price.
func (c *Cart) AddItem(item CatalogItem) {
	for i := range c.lines {
		if c.lines[i].Item.ID == item.ID {
			c.lines[i].Quantity++
			c.lines[i].LineTotal = c.lines[i].Item.UnitPrice.Times(c.lines[i].Quantity)
			return
		}
	}
	c.lines = append(c.lines, CartLine{
		Item:      item,
		Quantity:  1,
		LineTotal: item.UnitPrice,
	})
}

// RemoveItem drops every line for itemID. Unknown ids are ignored.
func (c *Cart) RemoveItem(itemID int) {
	kept := c.lines[:0]
	for _, line := range c.lines {
		if line.Item.ID != itemID {
			kept = append(kept, line)
		}
	}
	clear(c.lines[len(kept):])
	c.lines = kept
}

func (c *Cart) Total() Money {
	var total Money
	for _, line := range c.lines {
		total += line.LineTotal
	}
	return total
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Clear() {
	c.lines = nil
}
