package cart

import "errors"

var (
	// ErrOutOfStock is returned when adding a product whose stock is below one.
	ErrOutOfStock = errors.New("cart: product out of stock")
	// ErrInvalidSeller is returned for seller ids that are not positive.
	ErrInvalidSeller = errors.New("cart: invalid seller id")
)

// Product is a seller's listing as the cart sees it. Stock becomes the line's
// MaxQuantity.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	ImageURL    string
	Stock       int
}

// Line is one product in the cart. Field names on the wire match what earlier
// clients persisted so existing blobs keep loading.
type Line struct {
	ProductID   int64   `json:"productId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"price"`
	ImageRef    string  `json:"imageUrl"`
	Quantity    int     `json:"qtyInCart"`
	MaxQuantity int     `json:"maxQuantity"`
}

// Subtotal is UnitPrice x Quantity.
func (l Line) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Cart is an immutable snapshot of the store. SellerID is 0 when the cart is
// empty.
type Cart struct {
	SellerID int64
	Lines    []Line
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}

// TotalAmount sums every line.
func (c Cart) TotalAmount() float64 {
	var total float64
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}

// ItemCount sums quantities across lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// ProductIDs and Quantities return the parallel arrays an order request carries.
func (c Cart) ProductIDs() []int64 {
	ids := make([]int64, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ProductID
	}
	return ids
}

// Quantities returns the quantity of each line, in line order.
func (c Cart) Quantities() []int {
	qs := make([]int, len(c.Lines))
	for i, l := range c.Lines {
		qs[i] = l.Quantity
	}
	return qs
}

func (c Cart) clone() Cart {
	out := Cart{SellerID: c.SellerID}
	if len(c.Lines) > 0 {
		out.Lines = append([]Line(nil), c.Lines...)
	}
	return out
}

// normalize enforces the invariants on state read back from storage.
func normalize(c Cart) (Cart, bool) {
	changed := false
	lines := make([]Line, 0, len(c.Lines))
	seen := make(map[int64]struct{}, len(c.Lines))
	for _, l := range c.Lines {
		if l.Quantity < 1 || l.MaxQuantity < 1 {
			changed = true
			continue
		}
		if _, dup := seen[l.ProductID]; dup {
			changed = true
			continue
		}
		seen[l.ProductID] = struct{}{}
		if l.Quantity > l.MaxQuantity {
			l.Quantity = l.MaxQuantity
			changed = true
		}
		lines = append(lines, l)
	}

	if c.SellerID <= 0 && len(lines) > 0 {
		return Cart{}, true
	}
	if len(lines) == 0 {
		return Cart{}, changed || c.SellerID != 0
	}
	return Cart{SellerID: c.SellerID, Lines: lines}, changed
}
