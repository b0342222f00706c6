// Package cart implements the cart engine.
//
// The list operations (Add, Remove, UpdateQuantity, CalculateTotals) are pure:
// they never mutate their input and return a new slice. Engine composes them
// with local persistence and user-facing notices.
//
// Merge semantics: a line item is identified by (product id, size, color).
// Add merges into an existing entry with the same key. Remove and
// UpdateQuantity match on product id only and therefore affect every size
// and color variant of that product.
//
// The cart is always local-only, whatever the signed-in identity.
package cart
