package cart

import "github.com/roach88/storefront/internal/shop"

// Add returns list with quantity units of product added under the key
// (product.ID, size, color). An existing entry with the same key has its
// quantity increased; otherwise a new entry is appended. A quantity below 1
// is treated as 1.
func Add(list []shop.LineItem, product shop.Product, quantity int, size, color string) []shop.LineItem {
	if quantity < 1 {
		quantity = 1
	}
	key := shop.ItemKey{ProductID: product.ID, Size: size, Color: color}

	out := make([]shop.LineItem, len(list), len(list)+1)
	copy(out, list)
	for i := range out {
		if out[i].Key() == key {
			out[i].Quantity += quantity
			return out
		}
	}
	return append(out, shop.LineItem{Product: product, Quantity: quantity, Size: size, Color: color})
}

// Remove returns list without any entry for productID, whatever its size or color.
func Remove(list []shop.LineItem, productID string) []shop.LineItem {
	out := make([]shop.LineItem, 0, len(list))
	for _, li := range list {
		if li.Product.ID != productID {
			out = append(out, li)
		}
	}
	return out
}

// UpdateQuantity returns list with every entry for productID set to
// max(1, quantity). Use Remove to delete an entry.
func UpdateQuantity(list []shop.LineItem, productID string, quantity int) []shop.LineItem {
	quantity = max(1, quantity)
	out := make([]shop.LineItem, len(list))
	copy(out, list)
	for i := range out {
		if out[i].Product.ID == productID {
			out[i].Quantity = quantity
		}
	}
	return out
}

// CalculateTotals sums quantities and price × quantity using each line's
// product price snapshot.
func CalculateTotals(list []shop.LineItem) shop.Totals {
	var t shop.Totals
	for _, li := range list {
		t.Items += li.Quantity
		t.Subtotal += li.LineTotal()
	}
	return t
}

// contains reports whether any entry belongs to productID.
func contains(list []shop.LineItem, productID string) bool {
	for _, li := range list {
		if li.Product.ID == productID {
			return true
		}
	}
	return false
}
