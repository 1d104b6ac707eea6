package cart

import "math"

const (
	// FreeDeliveryThreshold is the subtotal at which delivery becomes free.
	FreeDeliveryThreshold = 200.0
	// DeliveryFeeRate is charged on subtotals below the threshold.
	DeliveryFeeRate = 0.04
)

// Quote is the checkout price breakdown.
type Quote struct {
	Subtotal    float64
	DeliveryFee float64
	Total       float64
	// FreeDeliveryShortfall is how much more would make delivery free; 0 once it is.
	FreeDeliveryShortfall float64
}

// QuoteFor applies the delivery-fee rule to subtotal.
func QuoteFor(subtotal float64) Quote {
	q := Quote{Subtotal: subtotal}
	if subtotal < FreeDeliveryThreshold {
		q.DeliveryFee = subtotal * DeliveryFeeRate
		q.FreeDeliveryShortfall = FreeDeliveryThreshold - subtotal
	}
	q.Total = subtotal + q.DeliveryFee
	return q
}

// Round2 rounds half away from zero to two decimals, the precision order
// prices are sent with.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
