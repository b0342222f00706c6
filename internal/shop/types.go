package shop

// Product is the minimal product record needed to build and total a cart
// line or to render a favorite.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Image string `json:"image,omitempty"`
}

// LineItem is one entry in the cart.
//
// Size and Color are optional; the empty string means unspecified.
type LineItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Size     string  `json:"size,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// ItemKey identifies the logical cart entry a line item belongs to.
// Two line items with the same key must be merged, never duplicated.
type ItemKey struct {
	ProductID string
	Size      string
	Color     string
}

// Key returns the merge key for the line item.
func (li LineItem) Key() ItemKey {
	return ItemKey{ProductID: li.Product.ID, Size: li.Size, Color: li.Color}
}

// LineTotal returns price × quantity using the product snapshot stored on the line.
func (li LineItem) LineTotal() int64 {
	return li.Product.Price * int64(li.Quantity)
}

// Totals is derived cart state. It is always recomputed from the line items.
type Totals struct {
	Items    int   `json:"total_items"`
	Subtotal int64 `json:"subtotal"`
}
