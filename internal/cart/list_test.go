package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storefront/internal/shop"
)

var (
	tee = shop.Product{ID: "42", Name: "Tee", Price: 1500}
	hat = shop.Product{ID: "7", Name: "Hat", Price: 900}
)

func TestAddMergesSameKey(t *testing.T) {
	quantities := []int{1, 3, 2, 5}

	var list []shop.LineItem
	for _, q := range quantities {
		list = Add(list, tee, q, "M", "black")
	}

	require.Len(t, list, 1)
	assert.Equal(t, 11, list[0].Quantity)
}

func TestAddDistinctSizesStaySeparate(t *testing.T) {
	list := []shop.LineItem{{Product: tee, Quantity: 2, Size: "M"}}

	list = Add(list, tee, 1, "L", "")

	require.Len(t, list, 2)
	assert.Equal(t, "M", list[0].Size)
	assert.Equal(t, "L", list[1].Size)
	assert.Equal(t, 3, CalculateTotals(list).Items)
}

func TestAddDefaultsQuantityToOne(t *testing.T) {
	list := Add(nil, tee, 0, "", "")
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Quantity)

	list = Add(list, tee, -4, "", "")
	assert.Equal(t, 2, list[0].Quantity)
}

func TestAddDoesNotMutateInput(t *testing.T) {
	in := []shop.LineItem{{Product: tee, Quantity: 1}}
	out := Add(in, tee, 2, "", "")

	assert.Equal(t, 1, in[0].Quantity)
	assert.Equal(t, 3, out[0].Quantity)

	out = Add(in, hat, 1, "", "")
	assert.Len(t, in, 1)
	assert.Len(t, out, 2)
}

func TestRemoveDropsEveryVariant(t *testing.T) {
	list := []shop.LineItem{
		{Product: tee, Quantity: 1, Size: "M"},
		{Product: hat, Quantity: 1},
		{Product: tee, Quantity: 2, Size: "L", Color: "red"},
	}

	out := Remove(list, "42")

	require.Len(t, out, 1)
	assert.Equal(t, "7", out[0].Product.ID)
	assert.Len(t, list, 3, "input untouched")
}

func TestRemoveThenAddOtherKeyDoesNotResurrect(t *testing.T) {
	list := []shop.LineItem{
		{Product: tee, Quantity: 4, Size: "M"},
		{Product: tee, Quantity: 1, Size: "S"},
	}

	list = Remove(list, "42")
	list = Add(list, hat, 1, "", "")
	list = Add(list, tee, 1, "XL", "")

	require.Len(t, list, 2)
	for _, li := range list {
		if li.Product.ID == "42" {
			assert.Equal(t, "XL", li.Size)
			assert.Equal(t, 1, li.Quantity)
		}
	}
}

func TestUpdateQuantityFloorsAtOne(t *testing.T) {
	tests := []struct {
		name string
		qty  int
		want int
	}{
		{"zero", 0, 1},
		{"negative", -3, 1},
		{"one", 1, 1},
		{"many", 9, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := []shop.LineItem{{Product: tee, Quantity: 5}}
			out := UpdateQuantity(list, "42", tt.qty)
			assert.Equal(t, tt.want, out[0].Quantity)
			assert.Equal(t, 5, list[0].Quantity, "input untouched")
		})
	}
}

func TestUpdateQuantityUnknownProduct(t *testing.T) {
	list := []shop.LineItem{{Product: tee, Quantity: 5}}
	assert.Equal(t, list, UpdateQuantity(list, "nope", 3))
}

func TestCalculateTotals(t *testing.T) {
	list := []shop.LineItem{
		{Product: tee, Quantity: 2},
		{Product: hat, Quantity: 3},
	}

	got := CalculateTotals(list)
	assert.Equal(t, shop.Totals{Items: 5, Subtotal: 2*1500 + 3*900}, got)
	assert.Equal(t, shop.Totals{}, CalculateTotals(nil))
}

func TestCalculateTotalsDependsOnlyOnContents(t *testing.T) {
	a := Add(Add(Add(nil, tee, 1, "M", ""), tee, 2, "M", ""), hat, 1, "", "")
	b := []shop.LineItem{{Product: tee, Quantity: 3, Size: "M"}, {Product: hat, Quantity: 1}}

	assert.Equal(t, a, b)
	assert.Equal(t, CalculateTotals(a), CalculateTotals(b))
}

func TestCalculateTotalsUsesSnapshotPrice(t *testing.T) {
	list := Add(nil, tee, 2, "", "")

	repriced := tee
	repriced.Price = 9999
	list = Add(list, repriced, 1, "", "")

	// Merging keeps the price snapshot taken when the line was created.
	require.Len(t, list, 1)
	assert.Equal(t, int64(3*1500), CalculateTotals(list).Subtotal)
}
