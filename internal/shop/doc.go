// Package shop defines the storefront data model shared by the cart and
// favorites engines.
//
// Prices are integer minor currency units. Floats never appear in persisted
// JSON so that serialized lists are byte-stable across round trips.
package shop
