package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	shoes = CatalogItem{ID: 1, Name: "Shoes", UnitPrice: MoneyFromFloat(20)}
	wine  = CatalogItem{ID: 2, Name: "Wine", UnitPrice: MoneyFromFloat(5)}
	socks = CatalogItem{ID: 5, Name: "Socks", UnitPrice: MoneyFromFloat(2.25)}
)

func TestCartAddItem_Consolidates(t *testing.T) {
	for _, n := range []int{1, 2, 7} {
		var cart Cart
		for i := 0; i < n; i++ {
			cart.AddItem(socks)
		}

		lines := cart.Lines()
		require.Len(t, lines, 1)
		assert.Equal(t, n, lines[0].Quantity)
		assert.Equal(t, socks.UnitPrice.Times(n), lines[0].LineTotal)
	}
}

func TestCartAddItem_KeepsInsertionOrder(t *testing.T) {
	var cart Cart
	cart.AddItem(wine)
	cart.AddItem(shoes)
	cart.AddItem(wine)

	lines := cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, wine.ID, lines[0].Item.ID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, shoes.ID, lines[1].Item.ID)
	assert.Equal(t, MoneyFromFloat(30), cart.Total())
}

func TestCartRemoveItem_Idempotent(t *testing.T) {
	var cart Cart
	cart.AddItem(shoes)
	cart.AddItem(shoes)
	cart.AddItem(wine)

	cart.RemoveItem(shoes.ID)
	require.Equal(t, 1, cart.Len())

	cart.RemoveItem(shoes.ID)
	cart.RemoveItem(99)
	require.Equal(t, 1, cart.Len())
	assert.Equal(t, wine.UnitPrice, cart.Total())
}

func TestCartLines_DoesNotAlias(t *testing.T) {
	var cart Cart
	cart.AddItem(shoes)
	cart.AddItem(wine)

	snapshot := cart.Lines()
	cart.RemoveItem(shoes.ID)
	cart.AddItem(wine)

	require.Len(t, snapshot, 2)
	assert.Equal(t, shoes.ID, snapshot[0].Item.ID)
	assert.Equal(t, 1, snapshot[1].Quantity)

	snapshot[0].Quantity = 42
	assert.Equal(t, 2, cart.Lines()[0].Quantity)
}

func TestCartTotal_Empty(t *testing.T) {
	var cart Cart
	assert.Equal(t, Money(0), cart.Total())
	assert.Empty(t, cart.Lines())
}

func TestCartClear(t *testing.T) {
	var cart Cart
	cart.AddItem(shoes)
	before := cart.Lines()

	cart.Clear()

	assert.Zero(t, cart.Len())
	assert.Equal(t, Money(0), cart.Total())
	assert.Len(t, before, 1)
}
